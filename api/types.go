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

package api

import (
	"encoding/json"
	"strings"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/params"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type CountersResponse struct {
	CollectedFees   string `json:"collected_fees"`
	ProposalFee     string `json:"proposal_fee"`
	LastProposalID  uint64 `json:"last_proposal_id"`
	ActiveProposals uint64 `json:"active_proposals"`
	TaskCount       uint64 `json:"task_count"`
}

type TemplateResponse struct {
	Name                 string   `json:"name"`
	Verifier             string   `json:"verifier"`
	ExecutableKind       string   `json:"executable_kind"`
	MinVotes             string   `json:"min_votes"`
	MinAgreement         string   `json:"min_agreement"`
	OpinionScales        []uint64 `json:"opinion_scales"`
	ID                   uint64   `json:"id"`
	MinVotingDuration    uint64   `json:"min_voting_duration"`
	MaxVotingDuration    uint64   `json:"max_voting_duration"`
	MinStartDelay        uint64   `json:"min_start_delay"`
	MaxStartDelay        uint64   `json:"max_start_delay"`
	AddedAt              uint64   `json:"added_at"`
	AllowEarlyResolution bool     `json:"allow_early_resolution"`
}

func templateResponse(tmpl template.Template) TemplateResponse {
	return TemplateResponse{
		ID:                   tmpl.ID,
		Name:                 tmpl.Name,
		Verifier:             tmpl.Verifier.Hex(),
		ExecutableKind:       tmpl.ExecutableKind.String(),
		MinVotes:             fixedpoint.FormatRatio(tmpl.MinVotes),
		MinAgreement:         fixedpoint.FormatRatio(tmpl.MinAgreement),
		OpinionScales:        tmpl.OpinionScales,
		MinVotingDuration:    tmpl.MinVotingDuration,
		MaxVotingDuration:    tmpl.MaxVotingDuration,
		MinStartDelay:        tmpl.MinStartDelay,
		MaxStartDelay:        tmpl.MaxStartDelay,
		AddedAt:              tmpl.AddedAt,
		AllowEarlyResolution: tmpl.AllowEarlyResolution,
	}
}

// ProposalResponse combines the fixed parameters and the state of a proposal.
// Options are returned as text labels with their raw hex encoding
type ProposalResponse struct {
	Winner           *uint64  `json:"winner"`
	Contract         string   `json:"contract"`
	Proposer         string   `json:"proposer"`
	ExecutableKind   string   `json:"executable_kind"`
	MinVotes         string   `json:"min_votes"`
	MinAgreement     string   `json:"min_agreement"`
	Fee              string   `json:"fee"`
	Status           string   `json:"status"`
	ExecutionStatus  string   `json:"execution_status"`
	Votes            string   `json:"votes"`
	Options          []string `json:"options"`
	OptionsHex       []string `json:"options_hex"`
	ID               uint64   `json:"id"`
	TemplateID       uint64   `json:"template_id"`
	VotingStartTime  uint64   `json:"voting_start_time"`
	VotingMinEndTime uint64   `json:"voting_min_end_time"`
	VotingMaxEndTime uint64   `json:"voting_max_end_time"`
	CreatedAt        uint64   `json:"created_at"`
	ResolvedAt       uint64   `json:"resolved_at,omitempty"`
}

func winnerOf(winner uint64) *uint64 {
	if winner == governance.NoWinner {
		return nil
	}
	return &winner
}

func proposalResponse(
	p *governance.ProposalParams,
	s *governance.ProposalState,
) ProposalResponse {
	ret := ProposalResponse{
		ID:               p.ID,
		TemplateID:       p.TemplateID,
		Contract:         p.Contract.Hex(),
		Proposer:         p.Proposer.Hex(),
		ExecutableKind:   p.ExecutableKind.String(),
		MinVotes:         fixedpoint.FormatRatio(p.MinVotes),
		MinAgreement:     fixedpoint.FormatRatio(p.MinAgreement),
		Fee:              p.Fee.String(),
		VotingStartTime:  p.VotingStartTime,
		VotingMinEndTime: p.VotingMinEndTime,
		VotingMaxEndTime: p.VotingMaxEndTime,
		CreatedAt:        p.CreatedAt,
		Status:           StatusName(s.Status),
		ExecutionStatus:  ExecutionStatusName(s.ExecutionStatus),
		Votes:            s.Votes.String(),
		Winner:           winnerOf(s.WinnerOptionID),
		ResolvedAt:       s.ResolvedAt,
	}
	for _, opt := range p.Options {
		ret.Options = append(ret.Options, string(opt))
		ret.OptionsHex = append(ret.OptionsHex, hexutil.Encode(opt))
	}
	return ret
}

// StatusName returns the API name of a proposal status
func StatusName(status uint8) string {
	switch status {
	case models.ProposalStatusInitial:
		return "initial"
	case models.ProposalStatusResolved:
		return "resolved"
	case models.ProposalStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of StatusName
func ParseStatus(name string) (uint8, bool) {
	switch strings.ToLower(name) {
	case "initial":
		return models.ProposalStatusInitial, true
	case "resolved":
		return models.ProposalStatusResolved, true
	case "failed":
		return models.ProposalStatusFailed, true
	default:
		return 0, false
	}
}

func ExecutionStatusName(status uint8) string {
	switch status {
	case models.ExecutionStatusNone:
		return "none"
	case models.ExecutionStatusExecuted:
		return "executed"
	case models.ExecutionStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type ProposalSummary struct {
	Winner *uint64 `json:"winner"`
	Status string  `json:"status"`
	Votes  string  `json:"votes"`
	ID     uint64  `json:"id"`
}

type OptionTally struct {
	Votes     string `json:"votes"`
	Score     string `json:"score"`
	Qualified bool   `json:"qualified"`
}

type TallyResponse struct {
	Winner  *uint64       `json:"winner"`
	Options []OptionTally `json:"options"`
}

func tallyResponse(result *governance.TallyResult) TallyResponse {
	ret := TallyResponse{
		Winner:  winnerOf(result.Winner),
		Options: make([]OptionTally, 0, len(result.Options)),
	}
	for _, opt := range result.Options {
		ret.Options = append(ret.Options, OptionTally{
			Votes:     opt.Votes.String(),
			Score:     fixedpoint.FormatRatio(opt.Score),
			Qualified: opt.Qualified,
		})
	}
	return ret
}

type ReceiptResponse struct {
	Mode       string   `json:"mode"`
	Error      string   `json:"error,omitempty"`
	Notes      []string `json:"notes"`
	Intents    []string `json:"intents"`
	ProposalID uint64   `json:"proposal_id"`
	Winner     uint64   `json:"winner"`
	ExecutedAt uint64   `json:"executed_at"`
	Success    bool     `json:"success"`
}

func receiptResponse(receipt *database.ExecutionReceipt) ReceiptResponse {
	return ReceiptResponse{
		ProposalID: receipt.ProposalID,
		Winner:     receipt.Winner,
		Mode:       proposal.ExecType(receipt.ExecKind).String(),
		Success:    receipt.Success,
		Error:      receipt.Error,
		Notes:      receipt.Notes,
		Intents:    receipt.Intents,
		ExecutedAt: receipt.ExecutedAt,
	}
}

type CreateProposalRequest struct {
	Proposer string `json:"proposer"`
	Contract string `json:"contract"`
	Fee      string `json:"fee"`
}

type CreateProposalResponse struct {
	ID uint64 `json:"id"`
}

type VoteRequest struct {
	Voter   string   `json:"voter"`
	Choices []uint64 `json:"choices"`
}

type VoteResponse struct {
	Voter      string   `json:"voter"`
	Weight     string   `json:"weight"`
	Choices    []uint64 `json:"choices"`
	ProposalID uint64   `json:"proposal_id"`
	CastAt     uint64   `json:"cast_at"`
}

func voteResponse(v *governance.Vote) VoteResponse {
	return VoteResponse{
		Voter:      v.Voter.Hex(),
		Weight:     v.Weight.String(),
		Choices:    v.Choices,
		ProposalID: v.ProposalID,
		CastAt:     v.CastAt,
	}
}

type TaskResponse struct {
	Index      uint64 `json:"index"`
	ProposalID uint64 `json:"proposal_id"`
	NotBefore  uint64 `json:"not_before"`
	Consumed   bool   `json:"consumed"`
}

// HandleTasksRequest selects the task range to process. Without From the
// range starts at the first unconsumed task
type HandleTasksRequest struct {
	From  *uint64 `json:"from"`
	Count uint64  `json:"count"`
}

type HandleTasksResponse struct {
	Handled int `json:"handled"`
}

type ParamResponse struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	UpdatedBy string `json:"updated_by,omitempty"`
	UpdatedAt uint64 `json:"updated_at,omitempty"`
	IsDefault bool   `json:"is_default"`
}

func paramResponse(v params.Value) ParamResponse {
	ret := ParamResponse{
		Name:      v.Name,
		Value:     v.Value.String(),
		UpdatedAt: v.UpdatedAt,
		IsDefault: v.IsDefault,
	}
	if !v.IsDefault {
		ret.UpdatedBy = v.UpdatedBy.Hex()
	}
	return ret
}

type SetParamRequest struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

type DeployRequest struct {
	Owner  string          `json:"owner"`
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
	Verify bool            `json:"verify"`
}

type DeployResponse struct {
	Address string `json:"address"`
}

type ContractResponse struct {
	Address    string          `json:"address"`
	Owner      string          `json:"owner"`
	Kind       string          `json:"kind"`
	Params     json.RawMessage `json:"params"`
	Nonce      uint64          `json:"nonce"`
	DeployedAt uint64          `json:"deployed_at"`
}

type StakeRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}
