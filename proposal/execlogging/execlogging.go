// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package execlogging implements an executable proposal that records the
// winning option in the execution receipt
package execlogging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/govern/proposal"
)

const Kind = "execlogging"

var ErrExecutionFailed = errors.New("execution failed on request")

type Params struct {
	proposal.BaseParams
	// ExecType is "call" or "delegatecall"
	ExecType      string `json:"execType"`
	FailOnExecute bool   `json:"failOnExecute"`
}

type Proposal struct {
	proposal.Base
	execType      proposal.ExecType
	failOnExecute bool
}

// New builds an execlogging proposal from JSON deployment parameters
func New(params json.RawMessage) (proposal.Proposal, error) {
	var tmpParams Params
	if err := json.Unmarshal(params, &tmpParams); err != nil {
		return nil, err
	}
	base, err := proposal.NewBase(tmpParams.BaseParams)
	if err != nil {
		return nil, err
	}
	execType := proposal.ExecTypeCall
	if tmpParams.ExecType != "" {
		execType, err = proposal.ParseExecType(tmpParams.ExecType)
		if err != nil {
			return nil, err
		}
	}
	return &Proposal{
		Base:          base,
		execType:      execType,
		failOnExecute: tmpParams.FailOnExecute,
	}, nil
}

func (p *Proposal) ExecutableType() proposal.ExecType {
	return p.execType
}

func (p *Proposal) Execute(
	ctx context.Context,
	env proposal.ExecEnv,
	winner uint64,
) error {
	options := p.Options()
	label := ""
	if winner < uint64(len(options)) {
		label = string(options[winner])
	}
	env.Note(
		fmt.Sprintf(
			"executed option %d (%s) of proposal %d as %s, caller %s",
			winner,
			label,
			env.ProposalID(),
			env.ExecutingAs().Hex(),
			env.Caller().Hex(),
		),
	)
	env.Logger().InfoContext(
		ctx,
		"proposal executed",
		"component", "proposal",
		"proposal_id", env.ProposalID(),
		"winner", winner,
		"mode", env.Mode().String(),
	)
	if p.failOnExecute {
		return ErrExecutionFailed
	}
	return nil
}
