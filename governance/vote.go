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
package governance

import (
	"context"
	"fmt"
	"math/big"
	"slices"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/blinklabs-io/govern/event"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Vote is the current vote of a voter on a proposal
type Vote struct {
	Weight     *big.Int
	Choices    []uint64
	ProposalID uint64
	CastAt     uint64
	Voter      common.Address
}

// Vote records the voter's opinion on every option of a proposal, weighted by
// the voter's live stake. A later vote by the same voter replaces the earlier
// one
func (e *Engine) Vote(
	ctx context.Context,
	voter common.Address,
	proposalID uint64,
	choices []uint64,
) error {
	ctx, span := e.tracer.Start(
		ctx,
		"governance.Vote",
		trace.WithAttributes(
			attribute.Int64("proposal_id", int64(proposalID)), //nolint:gosec
			attribute.String("voter", voter.Hex()),
		),
	)
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	var weight *big.Int
	var replaced bool
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		weight, replaced, err = e.vote(ctx, txn, voter, proposalID, choices)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	e.metrics.votesCast.Inc()
	e.logger.DebugContext(
		ctx,
		"vote cast",
		"component", "governance",
		"proposal_id", proposalID,
		"voter", voter.Hex(),
		"weight", weight.String(),
		"replaced", replaced,
	)
	e.publish([]event.Event{
		event.NewEvent(
			event.VoteCastEventType,
			event.VoteCastEvent{
				ProposalID: proposalID,
				Voter:      voter.Hex(),
				Weight:     weight.String(),
				Choices:    slices.Clone(choices),
				Replaced:   replaced,
			},
		),
	})
	return nil
}

func (e *Engine) vote(
	ctx context.Context,
	txn *database.Txn,
	voter common.Address,
	proposalID uint64,
	choices []uint64,
) (*big.Int, bool, error) {
	prop, err := e.openProposal(txn, proposalID)
	if err != nil {
		return nil, false, err
	}
	if len(choices) != int(prop.OptionCount) {
		return nil, false, ErrWrongChoiceCount
	}
	tmpl, err := e.config.Templates.Get(ctx, txn, prop.TemplateID)
	if err != nil {
		return nil, false, err
	}
	for _, choice := range choices {
		if !tmpl.HasScale(choice) {
			return nil, false, fmt.Errorf("%w: %d", ErrWrongOpinionScale, choice)
		}
	}
	weight, err := e.config.Stake.WeightOf(ctx, voter)
	if err != nil {
		return nil, false, fmt.Errorf("read stake weight: %w", err)
	}
	if weight == nil || weight.Sign() <= 0 {
		return nil, false, ErrZeroWeight
	}
	votes := prop.Votes.Big()
	prev, err := e.db.GetVote(proposalID, voter.Bytes(), txn)
	if err != nil {
		return nil, false, err
	}
	if prev != nil {
		if err := e.withdraw(txn, prev); err != nil {
			return nil, false, err
		}
		votes.Sub(votes, prev.Weight.Big())
	}
	for i, choice := range choices {
		if err := e.db.AddTallyWeight(
			proposalID,
			uint32(i), //nolint:gosec
			choice,
			weight,
			txn,
		); err != nil {
			return nil, false, err
		}
	}
	votes.Add(votes, weight)
	if err := e.db.SetVote(
		&models.ProposalVote{
			ProposalID: proposalID,
			Voter:      voter.Bytes(),
			Choices:    types.Uint64List(slices.Clone(choices)),
			Weight:     types.NewBigInt(weight),
			CastAt:     e.now(),
		},
		txn,
	); err != nil {
		return nil, false, err
	}
	prop.Votes = types.NewBigInt(votes)
	if err := e.db.SetProposal(prop, txn); err != nil {
		return nil, false, err
	}
	return weight, prev != nil, nil
}

// CancelVote withdraws the voter's current vote. The same voting window as
// for Vote applies
func (e *Engine) CancelVote(
	ctx context.Context,
	voter common.Address,
	proposalID uint64,
) error {
	ctx, span := e.tracer.Start(ctx, "governance.CancelVote")
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	var weight *big.Int
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		prop, err := e.openProposal(txn, proposalID)
		if err != nil {
			return err
		}
		prev, err := e.db.GetVote(proposalID, voter.Bytes(), txn)
		if err != nil {
			return err
		}
		if prev == nil {
			return ErrVoteNotFound
		}
		if err := e.withdraw(txn, prev); err != nil {
			return err
		}
		if err := e.db.DeleteVote(proposalID, voter.Bytes(), txn); err != nil {
			return err
		}
		weight = prev.Weight.Big()
		votes := prop.Votes.Big()
		votes.Sub(votes, weight)
		prop.Votes = types.NewBigInt(votes)
		return e.db.SetProposal(prop, txn)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	e.metrics.votesCancelled.Inc()
	e.publish([]event.Event{
		event.NewEvent(
			event.VoteCancelledEventType,
			event.VoteCancelledEvent{
				ProposalID: proposalID,
				Voter:      voter.Hex(),
				Weight:     weight.String(),
			},
		),
	})
	return nil
}

// GetVote returns the current vote of a voter on a proposal
func (e *Engine) GetVote(
	ctx context.Context,
	voter common.Address,
	proposalID uint64,
) (*Vote, error) {
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()
	txn := e.db.Transaction(false)
	defer txn.Release()
	row, err := e.db.GetVote(proposalID, voter.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrVoteNotFound
	}
	return &Vote{
		Voter:      voter,
		ProposalID: row.ProposalID,
		Choices:    slices.Clone([]uint64(row.Choices)),
		Weight:     row.Weight.Big(),
		CastAt:     row.CastAt,
	}, nil
}

// openProposal returns a proposal that is accepting votes right now
func (e *Engine) openProposal(
	txn *database.Txn,
	proposalID uint64,
) (*models.Proposal, error) {
	prop, err := e.db.GetProposal(proposalID, txn)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	if prop.Status != models.ProposalStatusInitial {
		return nil, ErrProposalNotActive
	}
	now := e.now()
	if now < prop.VotingStartTime {
		return nil, ErrVotingNotBegun
	}
	if now >= prop.VotingMaxEndTime {
		return nil, ErrVotingEnded
	}
	return prop, nil
}

// withdraw removes a previous vote's contribution from the tally
func (e *Engine) withdraw(txn *database.Txn, prev *models.ProposalVote) error {
	delta := new(big.Int).Neg(prev.Weight.Big())
	for i, choice := range prev.Choices {
		if err := e.db.AddTallyWeight(
			prev.ProposalID,
			uint32(i), //nolint:gosec
			choice,
			delta,
			txn,
		); err != nil {
			return err
		}
	}
	return nil
}
