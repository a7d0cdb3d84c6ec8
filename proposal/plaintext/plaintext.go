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

// Package plaintext implements a non-executable proposal that only records
// the community's opinion on its options
package plaintext

import (
	"context"
	"encoding/json"

	"github.com/blinklabs-io/govern/proposal"
)

const Kind = "plaintext"

type Proposal struct {
	proposal.Base
}

// New builds a plaintext proposal from JSON deployment parameters
func New(params json.RawMessage) (proposal.Proposal, error) {
	var tmpParams proposal.BaseParams
	if err := json.Unmarshal(params, &tmpParams); err != nil {
		return nil, err
	}
	base, err := proposal.NewBase(tmpParams)
	if err != nil {
		return nil, err
	}
	return &Proposal{Base: base}, nil
}

func (p *Proposal) ExecutableType() proposal.ExecType {
	return proposal.ExecTypeNonExecutable
}

func (p *Proposal) Execute(context.Context, proposal.ExecEnv, uint64) error {
	return nil
}
