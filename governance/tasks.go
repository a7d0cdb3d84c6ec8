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
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HandleTasks processes up to count tasks starting at fromIndex, in order and
// within one storage transaction. Consumed tasks are ignored and tasks that
// are not due yet are skipped. A failed delegated execution rolls back the
// whole call and leaves every task in the range unconsumed. It returns the
// number of tasks consumed
func (e *Engine) HandleTasks(
	ctx context.Context,
	fromIndex uint64,
	count uint64,
) (int, error) {
	ctx, span := e.tracer.Start(
		ctx,
		"governance.HandleTasks",
		trace.WithAttributes(
			attribute.Int64("from", int64(fromIndex)), //nolint:gosec
			attribute.Int64("count", int64(count)),    //nolint:gosec
		),
	)
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return 0, err
	}
	defer release()
	start := time.Now()
	defer func() {
		e.metrics.handleTasksTime.Observe(time.Since(start).Seconds())
	}()
	var batch *taskBatch
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		batch, err = e.handleTasks(ctx, txn, fromIndex, count)
		return err
	})
	if err != nil {
		span.RecordError(err)
		e.logger.WarnContext(
			ctx,
			"task handling aborted",
			"component", "governance",
			"from", fromIndex,
			"count", count,
			"error", err,
		)
		return 0, err
	}
	if batch.handled > 0 {
		e.metrics.tasksHandled.Add(float64(batch.handled))
		e.metrics.activeProposals.Set(float64(batch.state.ActiveProposals))
	}
	for _, observe := range batch.observations {
		observe()
	}
	span.SetAttributes(attribute.Int("handled", batch.handled))
	e.publish(batch.events)
	return batch.handled, nil
}

// taskBatch collects the outcome of one HandleTasks transaction. Events and
// metric observations are only applied after the transaction commits
type taskBatch struct {
	state        *models.GovernanceState
	events       []event.Event
	observations []func()
	handled      int
}

func (b *taskBatch) observe(fn func()) {
	b.observations = append(b.observations, fn)
}

func (e *Engine) handleTasks(
	ctx context.Context,
	txn *database.Txn,
	fromIndex uint64,
	count uint64,
) (*taskBatch, error) {
	state, err := e.db.GetGovernanceState(txn)
	if err != nil {
		return nil, err
	}
	if fromIndex >= state.TaskCount {
		return nil, fmt.Errorf(
			"%w: %d >= %d",
			ErrTaskIndexOutOfRange,
			fromIndex,
			state.TaskCount,
		)
	}
	end := fromIndex + count
	if end < fromIndex || end > state.TaskCount {
		end = state.TaskCount
	}
	tasks, err := e.db.GetTaskRange(fromIndex, end, txn)
	if err != nil {
		return nil, err
	}
	// Quorum is measured against the stake at finalization time
	totalStake, err := e.config.Stake.TotalEffectiveStake(ctx)
	if err != nil {
		return nil, fmt.Errorf("read total stake: %w", err)
	}
	now := e.now()
	batch := &taskBatch{state: state}
	for i := range tasks {
		task := &tasks[i]
		if task.Consumed {
			continue
		}
		done, err := e.finalize(ctx, txn, batch, task, totalStake, now)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", task.TaskIndex, err)
		}
		if !done {
			continue
		}
		if state.ActiveProposals > 0 {
			state.ActiveProposals--
		}
		batch.handled++
	}
	if batch.handled > 0 {
		if err := e.db.SetGovernanceState(state, txn); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// finalize resolves the proposal of a task when it is due. It reports whether
// the task was consumed
func (e *Engine) finalize(
	ctx context.Context,
	txn *database.Txn,
	batch *taskBatch,
	task *models.ProposalTask,
	totalStake *big.Int,
	now uint64,
) (bool, error) {
	prop, err := e.db.GetProposal(task.ProposalID, txn)
	if err != nil {
		return false, err
	}
	if prop == nil {
		return false, fmt.Errorf("%w: %d", ErrProposalNotFound, task.ProposalID)
	}
	tmpl, err := e.config.Templates.Get(ctx, txn, prop.TemplateID)
	if err != nil {
		return false, err
	}
	rows, err := e.db.GetTallyBuckets(prop.ProposalID, txn)
	if err != nil {
		return false, err
	}
	result := ComputeTally(
		bucketsFromModels(rows),
		TallyParams{
			OptionCount:  int(prop.OptionCount),
			MaxScale:     tmpl.MaxScale(),
			TotalStake:   totalStake,
			MinVotes:     prop.MinVotes.Big(),
			MinAgreement: prop.MinAgreement.Big(),
		},
	)
	if now < prop.VotingMinEndTime {
		if !tmpl.AllowEarlyResolution || !result.HasWinner() {
			return false, nil
		}
	}
	if err := e.db.SetTaskConsumed(task.TaskIndex, txn); err != nil {
		return false, err
	}
	prop.ResolvedAt = now
	finalType := event.ProposalFailedEventType
	if result.HasWinner() {
		prop.Status = models.ProposalStatusResolved
		prop.WinnerOptionID = types.Uint64(result.Winner)
		finalType = event.ProposalResolvedEventType
	} else {
		prop.Status = models.ProposalStatusFailed
		prop.WinnerOptionID = types.Uint64(NoWinner)
	}
	batch.events = append(
		batch.events,
		event.NewEvent(
			finalType,
			event.ProposalFinalizedEvent{
				ProposalID: prop.ProposalID,
				TaskIndex:  task.TaskIndex,
				Winner:     uint64(prop.WinnerOptionID),
				Status:     prop.Status,
				Votes:      prop.Votes.String(),
			},
		),
	)
	kind := proposal.ExecType(prop.ExecutableKind)
	if result.HasWinner() && kind != proposal.ExecTypeNonExecutable {
		if err := e.execute(ctx, txn, batch, prop, kind, result.Winner, now); err != nil {
			return false, err
		}
	}
	if err := e.db.SetProposal(prop, txn); err != nil {
		return false, err
	}
	finalStatus := statusName(prop.Status)
	batch.observe(func() {
		e.metrics.proposalsFinal.WithLabelValues(finalStatus).Inc()
	})
	e.logger.InfoContext(
		ctx,
		"proposal finalized",
		"component", "governance",
		"proposal_id", prop.ProposalID,
		"status", statusName(prop.Status),
		"winner", uint64(prop.WinnerOptionID),
		"votes", prop.Votes.String(),
		"total_stake", totalStake.String(),
	)
	return true, nil
}

// execute dispatches the winning option to the proposal contract and stores
// the execution receipt. Failures of isolated calls are recorded in the
// receipt. Failures of delegated calls are returned so that the caller rolls
// back
func (e *Engine) execute(
	ctx context.Context,
	txn *database.Txn,
	batch *taskBatch,
	prop *models.Proposal,
	kind proposal.ExecType,
	winner uint64,
	now uint64,
) error {
	contract := common.BytesToAddress(prop.Contract)
	env := e.newExecEnv(txn, kind, prop.ProposalID, contract)
	p, err := e.config.Directory.Resolve(ctx, txn, contract)
	if err == nil {
		err = e.dispatch(ctx, p, env, winner)
	}
	receipt := &database.ExecutionReceipt{
		ProposalID: prop.ProposalID,
		Winner:     winner,
		ExecKind:   uint8(kind),
		Success:    err == nil,
		Notes:      env.notes,
		Intents:    env.intents,
		ExecutedAt: now,
	}
	if err != nil {
		if kind == proposal.ExecTypeDelegatecall {
			// The attempt is counted although the transaction rolls back
			e.metrics.executions.WithLabelValues(kind.String(), "failure").Inc()
			return fmt.Errorf(
				"%w: proposal %d: %w",
				ErrExecutionFailed,
				prop.ProposalID,
				err,
			)
		}
		receipt.Error = err.Error()
		prop.ExecutionStatus = models.ExecutionStatusFailed
		batch.observe(func() {
			e.metrics.executions.WithLabelValues(kind.String(), "failure").Inc()
		})
		e.logger.WarnContext(
			ctx,
			"proposal execution failed",
			"component", "governance",
			"proposal_id", prop.ProposalID,
			"mode", kind.String(),
			"error", err,
		)
	} else {
		batch.observe(func() {
			e.metrics.executions.WithLabelValues(kind.String(), "success").Inc()
		})
		prop.ExecutionStatus = models.ExecutionStatusExecuted
	}
	if err := e.db.SetExecutionReceipt(receipt, txn); err != nil {
		return err
	}
	batch.events = append(
		batch.events,
		event.NewEvent(
			event.ProposalExecutedEventType,
			event.ProposalExecutedEvent{
				ProposalID: prop.ProposalID,
				Winner:     winner,
				Mode:       kind.String(),
				Success:    receipt.Success,
				Error:      receipt.Error,
				Intents:    receipt.Intents,
			},
		),
	)
	batch.events = append(batch.events, env.events...)
	return nil
}

func statusName(status uint8) string {
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

// HandlePendingTasks walks up to batch task indexes starting at the first
// unconsumed task, handling each one in its own transaction. A task whose
// delegated execution fails stays pending and does not hold back the tasks
// after it. With nothing pending it returns 0 and no error
func (e *Engine) HandlePendingTasks(ctx context.Context, batch uint64) (int, error) {
	var from, taskCount uint64
	var found bool
	err := e.view(func(txn *database.Txn) error {
		task, err := e.db.GetFirstPendingTask(txn)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}
		state, err := e.db.GetGovernanceState(txn)
		if err != nil {
			return err
		}
		from = task.TaskIndex
		taskCount = state.TaskCount
		found = true
		return nil
	})
	if err != nil || !found {
		return 0, err
	}
	handled := 0
	for i := from; i < taskCount && i-from < batch; i++ {
		if err := ctx.Err(); err != nil {
			return handled, err
		}
		n, err := e.HandleTasks(ctx, i, 1)
		if err != nil {
			if errors.Is(err, ErrExecutionFailed) {
				e.logger.WarnContext(
					ctx,
					"leaving task pending after failed execution",
					"component", "governance",
					"task_index", i,
					"error", err,
				)
				continue
			}
			return handled, err
		}
		handled += n
	}
	return handled, nil
}
