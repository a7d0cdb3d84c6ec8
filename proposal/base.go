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
package proposal

import (
	"fmt"
	"math/big"

	"github.com/blinklabs-io/govern/internal/fixedpoint"
)

// BaseParams are the deployment parameters shared by all built-in kinds.
// Ratios are decimal strings such as "0.6"
type BaseParams struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	MinVotes          string   `json:"minVotes"`
	MinAgreement      string   `json:"minAgreement"`
	Options           []string `json:"options"`
	TemplateID        uint64   `json:"templateId"`
	StartDelay        uint64   `json:"startDelay"`
	MinVotingDuration uint64   `json:"minVotingDuration"`
	MaxVotingDuration uint64   `json:"maxVotingDuration"`
}

// Base implements the read-only part of Proposal and Describer. Built-in
// kinds embed it and add ExecutableType and Execute
type Base struct {
	minVotes          *big.Int
	minAgreement      *big.Int
	name              string
	description       string
	options           [][]byte
	templateID        uint64
	startDelay        uint64
	minVotingDuration uint64
	maxVotingDuration uint64
}

// NewBase builds a Base from deployment parameters. Option counts are not
// checked here since the engine validates them at creation
func NewBase(params BaseParams) (Base, error) {
	minVotes, err := parseRatio(params.MinVotes)
	if err != nil {
		return Base{}, fmt.Errorf("minVotes: %w", err)
	}
	minAgreement, err := parseRatio(params.MinAgreement)
	if err != nil {
		return Base{}, fmt.Errorf("minAgreement: %w", err)
	}
	options := make([][]byte, len(params.Options))
	for i, opt := range params.Options {
		options[i] = []byte(opt)
	}
	return Base{
		templateID:        params.TemplateID,
		name:              params.Name,
		description:       params.Description,
		options:           options,
		minVotes:          minVotes,
		minAgreement:      minAgreement,
		startDelay:        params.StartDelay,
		minVotingDuration: params.MinVotingDuration,
		maxVotingDuration: params.MaxVotingDuration,
	}, nil
}

func parseRatio(val string) (*big.Int, error) {
	if val == "" {
		return new(big.Int), nil
	}
	return fixedpoint.ParseRatio(val)
}

func (b Base) Type() uint64 {
	return b.templateID
}

func (b Base) Name() string {
	return b.name
}

func (b Base) Description() string {
	return b.description
}

func (b Base) Options() [][]byte {
	ret := make([][]byte, len(b.options))
	for i, opt := range b.options {
		ret[i] = append([]byte(nil), opt...)
	}
	return ret
}

func (b Base) MinVotes() *big.Int {
	if b.minVotes == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.minVotes)
}

func (b Base) MinAgreement() *big.Int {
	if b.minAgreement == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.minAgreement)
}

func (b Base) StartDelay() uint64 {
	return b.startDelay
}

func (b Base) MinVotingDuration() uint64 {
	return b.minVotingDuration
}

func (b Base) MaxVotingDuration() uint64 {
	return b.maxVotingDuration
}
