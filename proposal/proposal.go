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

// Package proposal defines the capability interface implemented by every
// proposal kind, the execution environment handed to proposals at
// finalization, and the directory of deployed proposal contracts
package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxOptions is the maximum number of options a proposal may carry
const MaxOptions = 10

// ExecType selects how a proposal's Execute hook is dispatched
type ExecType uint8

const (
	ExecTypeNonExecutable ExecType = 0
	ExecTypeCall          ExecType = 1
	ExecTypeDelegatecall  ExecType = 2
)

func (e ExecType) String() string {
	switch e {
	case ExecTypeNonExecutable:
		return "non-executable"
	case ExecTypeCall:
		return "call"
	case ExecTypeDelegatecall:
		return "delegatecall"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Valid reports whether e is a known execution type
func (e ExecType) Valid() bool {
	return e <= ExecTypeDelegatecall
}

// ParseExecType parses the name of an execution type
func ParseExecType(name string) (ExecType, error) {
	switch name {
	case "", "non-executable", "none":
		return ExecTypeNonExecutable, nil
	case "call":
		return ExecTypeCall, nil
	case "delegatecall":
		return ExecTypeDelegatecall, nil
	default:
		return 0, fmt.Errorf("unknown execution type %q", name)
	}
}

// Proposal is the capability interface of a proposal contract. All accessors
// are read once at creation time
type Proposal interface {
	// Type returns the template ID the proposal claims to implement
	Type() uint64
	Options() [][]byte
	MinVotes() *big.Int
	MinAgreement() *big.Int
	StartDelay() uint64
	MinVotingDuration() uint64
	MaxVotingDuration() uint64
	ExecutableType() ExecType
	// Execute is invoked at finalization when the proposal is executable and
	// a winning option exists
	Execute(ctx context.Context, env ExecEnv, winner uint64) error
}

// Describer is implemented by proposals that carry a name and description
type Describer interface {
	Name() string
	Description() string
}

// ErrIntentNotAllowed is returned by ExecEnv.Emit during isolated execution
var ErrIntentNotAllowed = errors.New(
	"execution intents require delegated execution",
)

// Intent is a state change requested by a proposal during delegated execution.
// Intents are applied by the engine's privileged handler
type Intent interface {
	IntentKind() string
	String() string
}

// SetParameter requests a network parameter change
type SetParameter struct {
	Value *big.Int
	Name  string
}

func (SetParameter) IntentKind() string {
	return "set-parameter"
}

func (s SetParameter) String() string {
	return fmt.Sprintf("set-parameter %s=%s", s.Name, s.Value.String())
}

// ExecEnv is the environment a proposal executes in
type ExecEnv interface {
	// Mode is the dispatch mode, either ExecTypeCall or ExecTypeDelegatecall
	Mode() ExecType
	// Caller is the identity invoking Execute, which is always the engine
	Caller() common.Address
	// ExecutingAs is the proposal contract address for isolated calls and
	// the engine address for delegated calls
	ExecutingAs() common.Address
	ProposalID() uint64
	Now() time.Time
	Logger() *slog.Logger
	// Note appends a message to the execution receipt
	Note(msg string)
	// Emit submits an intent. It fails with ErrIntentNotAllowed for
	// isolated calls
	Emit(ctx context.Context, intent Intent) error
}
