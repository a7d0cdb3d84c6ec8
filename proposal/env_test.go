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
package proposal_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
)

type recordingEnv struct {
	notes   []string
	intents []proposal.Intent
	mode    proposal.ExecType
}

func (e *recordingEnv) Mode() proposal.ExecType {
	return e.mode
}

func (e *recordingEnv) Caller() common.Address {
	return common.HexToAddress("0x01")
}

func (e *recordingEnv) ExecutingAs() common.Address {
	return common.HexToAddress("0x01")
}

func (e *recordingEnv) ProposalID() uint64 {
	return 1
}

func (e *recordingEnv) Now() time.Time {
	return time.Unix(0, 0)
}

func (e *recordingEnv) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func (e *recordingEnv) Note(msg string) {
	e.notes = append(e.notes, msg)
}

func (e *recordingEnv) Emit(_ context.Context, intent proposal.Intent) error {
	if e.mode != proposal.ExecTypeDelegatecall {
		return proposal.ErrIntentNotAllowed
	}
	e.intents = append(e.intents, intent)
	return nil
}
