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

// Package netparam implements a proposal whose options are candidate values
// for a single network parameter. The winning value is applied through
// delegated execution
package netparam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/proposal"
)

const Kind = "netparam"

var ErrNoParameter = errors.New("no parameter name provided")

type Params struct {
	proposal.BaseParams
	Parameter string `json:"parameter"`
}

type Proposal struct {
	proposal.Base
	parameter string
	values    []*big.Int
}

// New builds a network parameter proposal. Every option label must be an
// integer value, which may use exponent notation such as "16e18"
func New(params json.RawMessage) (proposal.Proposal, error) {
	var tmpParams Params
	if err := json.Unmarshal(params, &tmpParams); err != nil {
		return nil, err
	}
	if tmpParams.Parameter == "" {
		return nil, ErrNoParameter
	}
	base, err := proposal.NewBase(tmpParams.BaseParams)
	if err != nil {
		return nil, err
	}
	values := make([]*big.Int, len(tmpParams.Options))
	for i, opt := range tmpParams.Options {
		values[i], err = fixedpoint.ParseInteger(opt)
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i, err)
		}
	}
	return &Proposal{
		Base:      base,
		parameter: tmpParams.Parameter,
		values:    values,
	}, nil
}

// Parameter returns the name of the parameter this proposal changes
func (p *Proposal) Parameter() string {
	return p.parameter
}

func (p *Proposal) ExecutableType() proposal.ExecType {
	return proposal.ExecTypeDelegatecall
}

func (p *Proposal) Execute(
	ctx context.Context,
	env proposal.ExecEnv,
	winner uint64,
) error {
	if winner >= uint64(len(p.values)) {
		return fmt.Errorf("winner %d out of range", winner)
	}
	value := p.values[winner]
	env.Note(fmt.Sprintf("setting %s to %s", p.parameter, value.String()))
	return env.Emit(
		ctx,
		proposal.SetParameter{
			Name:  p.parameter,
			Value: new(big.Int).Set(value),
		},
	)
}
