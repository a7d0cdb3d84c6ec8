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
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strconv"

	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/params"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common"
)

// maxBodySize caps request bodies
const maxBodySize = 1 << 20

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// statusForError maps engine errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, ErrInvalidPaginationParameters),
		governance.IsValidationError(err),
		errors.Is(err, params.ErrInvalidValue),
		errors.Is(err, proposal.ErrUnknownKind):
		return http.StatusBadRequest
	case governance.IsNotFound(err),
		errors.Is(err, template.ErrTemplateNotFound),
		errors.Is(err, proposal.ErrContractNotFound),
		errors.Is(err, params.ErrUnknownParameter):
		return http.StatusNotFound
	case errors.Is(err, params.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, governance.ErrReentrantCall):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *Api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		a.logger.ErrorContext(
			r.Context(),
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", errBadRequest, err)
	}
	return nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	val, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, r.PathValue(name))
	}
	return val, nil
}

func parseAddress(name string, val string) (common.Address, error) {
	if !common.IsHexAddress(val) {
		return common.Address{}, fmt.Errorf("%w: invalid %s address %q", errBadRequest, name, val)
	}
	return common.HexToAddress(val), nil
}

func parseAmount(name string, val string) (*big.Int, error) {
	ret, err := fixedpoint.ParseInteger(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errBadRequest, name, err)
	}
	return ret, nil
}

func (a *Api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (a *Api) handleCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := a.config.Engine.Counters(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountersResponse{
		LastProposalID:  counters.LastProposalID,
		ActiveProposals: counters.ActiveProposals,
		TaskCount:       counters.TaskCount,
		CollectedFees:   counters.CollectedFees.String(),
		ProposalFee:     counters.ProposalFee.String(),
	})
}

func (a *Api) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tmpls, err := a.config.Engine.Templates().List(r.Context(), nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ret := make([]TemplateResponse, 0, len(tmpls))
	for _, tmpl := range tmpls {
		ret = append(ret, templateResponse(tmpl))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *Api) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tmpl, err := a.config.Engine.Templates().Get(r.Context(), nil, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse(tmpl))
}

func (a *Api) handleListProposals(w http.ResponseWriter, r *http.Request) {
	status, ok := ParseStatus(r.URL.Query().Get("status"))
	if !ok && r.URL.Query().Get("status") != "" {
		a.fail(w, r, fmt.Errorf("%w: unknown status", errBadRequest))
		return
	}
	pagination, err := ParsePagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	states, err := a.config.Engine.Proposals(r.Context(), status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ids := make([]uint64, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if pagination.Order == PaginationOrderDesc {
		slices.Reverse(ids)
	}
	SetPaginationHeaders(w, len(ids), pagination)
	ret := []ProposalSummary{}
	for _, id := range pagination.Window(ids) {
		state := states[id]
		ret = append(ret, ProposalSummary{
			ID:     id,
			Status: StatusName(state.Status),
			Votes:  state.Votes.String(),
			Winner: winnerOf(state.WinnerOptionID),
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *Api) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	proposer, err := parseAddress("proposer", req.Proposer)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	contract, err := parseAddress("contract", req.Contract)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	fee, err := parseAmount("fee", req.Fee)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id, err := a.config.Engine.CreateProposal(r.Context(), proposer, contract, fee)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateProposalResponse{ID: id})
}

func (a *Api) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.config.Engine.ProposalParams(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	s, err := a.config.Engine.ProposalState(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p, s))
}

func (a *Api) handleTally(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.config.Engine.VotingTally(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tallyResponse(result))
}

func (a *Api) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	receipt, err := a.config.Engine.ExecutionReceipt(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "proposal has not been executed")
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse(receipt))
}

func (a *Api) handleVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	voter, err := parseAddress("voter", req.Voter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.config.Engine.Vote(r.Context(), voter, id, req.Choices); err != nil {
		a.fail(w, r, err)
		return
	}
	vote, err := a.config.Engine.GetVote(r.Context(), voter, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse(vote))
}

func (a *Api) handleGetVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	voter, err := parseAddress("voter", r.PathValue("voter"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	vote, err := a.config.Engine.GetVote(r.Context(), voter, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse(vote))
}

func (a *Api) handleCancelVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	voter, err := parseAddress("voter", r.PathValue("voter"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.config.Engine.CancelVote(r.Context(), voter, id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) handleGetTask(w http.ResponseWriter, r *http.Request) {
	index, err := pathUint(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	task, err := a.config.Engine.Task(r.Context(), index)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskResponse{
		Index:      task.Index,
		ProposalID: task.ProposalID,
		NotBefore:  task.NotBefore,
		Consumed:   task.Consumed,
	})
}

func (a *Api) handleTasks(w http.ResponseWriter, r *http.Request) {
	var req HandleTasksRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Count == 0 {
		req.Count = governance.DefaultTaskBatchSize
	}
	var handled int
	var err error
	if req.From == nil {
		handled, err = a.config.Engine.HandlePendingTasks(r.Context(), req.Count)
	} else {
		handled, err = a.config.Engine.HandleTasks(r.Context(), *req.From, req.Count)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HandleTasksResponse{Handled: handled})
}

func (a *Api) handleListParams(w http.ResponseWriter, r *http.Request) {
	values, err := a.config.Engine.Params().All(r.Context(), nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ret := make([]ParamResponse, 0, len(values))
	for _, v := range values {
		ret = append(ret, paramResponse(v))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *Api) handleSetParam(w http.ResponseWriter, r *http.Request) {
	var req SetParamRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name := r.PathValue("name")
	if err := a.config.Engine.SetParameter(r.Context(), caller, name, value); err != nil {
		a.fail(w, r, err)
		return
	}
	v, err := a.config.Engine.Params().Get(r.Context(), nil, name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paramResponse(v))
}

func (a *Api) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	addr, err := a.config.Engine.DeployContract(
		r.Context(),
		owner,
		req.Kind,
		req.Params,
		req.Verify,
	)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DeployResponse{Address: addr.Hex()})
}

func (a *Api) handleGetContract(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("contract", r.PathValue("address"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	record, err := a.config.Engine.Directory().Record(r.Context(), nil, addr)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if record == nil {
		a.fail(w, r, fmt.Errorf("%w: %s", proposal.ErrContractNotFound, addr.Hex()))
		return
	}
	writeJSON(w, http.StatusOK, ContractResponse{
		Address:    common.BytesToAddress(record.Address).Hex(),
		Owner:      common.BytesToAddress(record.Owner).Hex(),
		Kind:       record.Kind,
		Params:     json.RawMessage(record.Params),
		Nonce:      record.Nonce,
		DeployedAt: record.DeployedAt,
	})
}

func (a *Api) handleSetStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	addr, err := parseAddress("stake", req.Address)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.config.Stake.SetStake(addr, amount); err != nil {
		a.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
