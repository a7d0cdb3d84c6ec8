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

// Package template holds the proposal template registry. A template fixes the
// shape a proposal must have and the ranges its declared parameters must fall in
package template

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrTemplateExists     = errors.New("template already exists")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrTemplateIDTooLarge = errors.New("template id is too large")
	ErrInvalidScales      = errors.New(
		"opinion scales must be non-empty and strictly increasing from 0",
	)
	ErrInvalidRatio     = errors.New("ratio must be within [0, 1]")
	ErrInvalidDuration  = errors.New("min voting duration exceeds max voting duration")
	ErrInvalidDelay     = errors.New("min start delay exceeds max start delay")
	ErrInvalidExecKind  = errors.New("invalid executable kind")
	ErrUnknownVerifier  = errors.New("unknown verifier")
	ErrInvalidReference = errors.New("invalid verifier reference")
)

// Template is a registered proposal template
type Template struct {
	MinVotes             *big.Int
	MinAgreement         *big.Int
	Name                 string
	OpinionScales        []uint64
	ID                   uint64
	MinVotingDuration    uint64
	MaxVotingDuration    uint64
	MinStartDelay        uint64
	MaxStartDelay        uint64
	AddedAt              uint64
	Verifier             common.Address
	ExecutableKind       proposal.ExecType
	AllowEarlyResolution bool
}

// Validate checks the template invariants that do not need storage access
func (t Template) Validate() error {
	if t.ID > math.MaxInt64 {
		return fmt.Errorf("%w: %d", ErrTemplateIDTooLarge, t.ID)
	}
	if !t.ExecutableKind.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidExecKind, t.ExecutableKind)
	}
	if len(t.OpinionScales) == 0 || t.OpinionScales[0] != 0 {
		return ErrInvalidScales
	}
	for i := 1; i < len(t.OpinionScales); i++ {
		if t.OpinionScales[i] <= t.OpinionScales[i-1] {
			return ErrInvalidScales
		}
	}
	if !fixedpoint.InUnitRange(t.MinVotes) {
		return fmt.Errorf("minVotes: %w", ErrInvalidRatio)
	}
	if !fixedpoint.InUnitRange(t.MinAgreement) {
		return fmt.Errorf("minAgreement: %w", ErrInvalidRatio)
	}
	if t.MinVotingDuration > t.MaxVotingDuration {
		return ErrInvalidDuration
	}
	if t.MinStartDelay > t.MaxStartDelay {
		return ErrInvalidDelay
	}
	return nil
}

// MaxScale returns the largest allowed opinion scale value
func (t Template) MaxScale() uint64 {
	if len(t.OpinionScales) == 0 {
		return 0
	}
	return t.OpinionScales[len(t.OpinionScales)-1]
}

// HasScale reports whether v is an allowed opinion scale value
func (t Template) HasScale(v uint64) bool {
	_, found := slices.BinarySearch(t.OpinionScales, v)
	return found
}

func (t Template) toModel() *models.ProposalTemplate {
	ret := &models.ProposalTemplate{
		TemplateID:           t.ID,
		Name:                 t.Name,
		ExecutableKind:       uint8(t.ExecutableKind),
		MinVotes:             types.NewBigInt(t.MinVotes),
		MinAgreement:         types.NewBigInt(t.MinAgreement),
		OpinionScales:        types.Uint64List(slices.Clone(t.OpinionScales)),
		MinVotingDuration:    t.MinVotingDuration,
		MaxVotingDuration:    t.MaxVotingDuration,
		MinStartDelay:        t.MinStartDelay,
		MaxStartDelay:        t.MaxStartDelay,
		AllowEarlyResolution: t.AllowEarlyResolution,
		AddedAt:              t.AddedAt,
	}
	if t.Verifier != (common.Address{}) {
		ret.Verifier = t.Verifier.Bytes()
	}
	return ret
}

// FromModel converts a stored template
func FromModel(m *models.ProposalTemplate) Template {
	return Template{
		ID:                   m.TemplateID,
		Name:                 m.Name,
		Verifier:             common.BytesToAddress(m.Verifier),
		ExecutableKind:       proposal.ExecType(m.ExecutableKind),
		MinVotes:             m.MinVotes.Big(),
		MinAgreement:         m.MinAgreement.Big(),
		OpinionScales:        slices.Clone([]uint64(m.OpinionScales)),
		MinVotingDuration:    m.MinVotingDuration,
		MaxVotingDuration:    m.MaxVotingDuration,
		MinStartDelay:        m.MinStartDelay,
		MaxStartDelay:        m.MaxStartDelay,
		AllowEarlyResolution: m.AllowEarlyResolution,
		AddedAt:              m.AddedAt,
	}
}

// Params are the parameters a proposal declares, checked against its
// template at creation
type Params struct {
	MinVotes          *big.Int
	MinAgreement      *big.Int
	StartDelay        uint64
	MinVotingDuration uint64
	MaxVotingDuration uint64
	ExecutableKind    proposal.ExecType
}

// ParamsOf reads the declared parameters of a proposal
func ParamsOf(p proposal.Proposal) Params {
	return Params{
		ExecutableKind:    p.ExecutableType(),
		MinVotes:          p.MinVotes(),
		MinAgreement:      p.MinAgreement(),
		StartDelay:        p.StartDelay(),
		MinVotingDuration: p.MinVotingDuration(),
		MaxVotingDuration: p.MaxVotingDuration(),
	}
}

// Check reports whether params fall inside the template's ranges
func (t Template) Check(params Params) bool {
	if params.ExecutableKind != t.ExecutableKind {
		return false
	}
	if !inRange(params.MinVotes, t.MinVotes) {
		return false
	}
	if !inRange(params.MinAgreement, t.MinAgreement) {
		return false
	}
	if params.StartDelay < t.MinStartDelay || params.StartDelay > t.MaxStartDelay {
		return false
	}
	if params.MinVotingDuration < t.MinVotingDuration {
		return false
	}
	if params.MaxVotingDuration > t.MaxVotingDuration {
		return false
	}
	return params.MinVotingDuration <= params.MaxVotingDuration
}

// inRange reports whether val lies in [floor, 1e18]
func inRange(val *big.Int, floor *big.Int) bool {
	if val == nil || !fixedpoint.InUnitRange(val) {
		return false
	}
	if floor != nil && val.Cmp(floor) < 0 {
		return false
	}
	return true
}
