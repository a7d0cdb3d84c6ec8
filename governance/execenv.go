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
	"log/slog"
	"time"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
)

// execEnv is handed to a proposal's Execute hook. In call mode the proposal
// runs as its own contract address and cannot change engine state. In
// delegatecall mode it runs with the engine's identity and its intents are
// applied inside the finalization transaction
type execEnv struct {
	engine      *Engine
	txn         *database.Txn
	logger      *slog.Logger
	now         time.Time
	notes       []string
	intents     []string
	events      []event.Event
	proposalID  uint64
	executingAs common.Address
	mode        proposal.ExecType
}

func (e *Engine) newExecEnv(
	txn *database.Txn,
	mode proposal.ExecType,
	proposalID uint64,
	contract common.Address,
) *execEnv {
	env := &execEnv{
		engine:     e,
		txn:        txn,
		mode:       mode,
		proposalID: proposalID,
		now:        e.clock.Now(),
		logger: e.logger.With(
			"proposal_id", proposalID,
			"mode", mode.String(),
		),
	}
	if mode == proposal.ExecTypeDelegatecall {
		env.executingAs = e.config.Address
	} else {
		env.executingAs = contract
	}
	return env
}

func (v *execEnv) Mode() proposal.ExecType {
	return v.mode
}

func (v *execEnv) Caller() common.Address {
	return v.engine.config.Address
}

func (v *execEnv) ExecutingAs() common.Address {
	return v.executingAs
}

func (v *execEnv) ProposalID() uint64 {
	return v.proposalID
}

func (v *execEnv) Now() time.Time {
	return v.now
}

func (v *execEnv) Logger() *slog.Logger {
	return v.logger
}

func (v *execEnv) Note(msg string) {
	v.notes = append(v.notes, msg)
}

func (v *execEnv) Emit(ctx context.Context, intent proposal.Intent) error {
	if v.mode != proposal.ExecTypeDelegatecall {
		return proposal.ErrIntentNotAllowed
	}
	if intent == nil {
		return fmt.Errorf("%w: nil intent", proposal.ErrIntentNotAllowed)
	}
	if err := v.engine.config.Params.ApplyIntent(
		ctx,
		v.txn,
		v.executingAs,
		intent,
	); err != nil {
		return fmt.Errorf("apply %s: %w", intent.IntentKind(), err)
	}
	v.intents = append(v.intents, intent.String())
	if set, ok := intent.(proposal.SetParameter); ok {
		v.events = append(
			v.events,
			event.NewEvent(
				event.ParameterChangedEventType,
				event.ParameterChangedEvent{
					Name:       set.Name,
					Value:      set.Value.String(),
					UpdatedBy:  v.executingAs.Hex(),
					ProposalID: v.proposalID,
				},
			),
		)
	}
	return nil
}

// dispatch runs the Execute hook with the dispatching flag set. Panics are
// converted into errors
func (e *Engine) dispatch(
	ctx context.Context,
	p proposal.Proposal,
	env *execEnv,
	winner uint64,
) (err error) {
	e.dispatching.Store(true)
	defer e.dispatching.Store(false)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Execute(ctx, env, winner)
}
