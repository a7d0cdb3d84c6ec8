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

// Package params holds the governable network parameters. Values may be
// changed by the owner or by the governance engine, which applies the
// intents emitted by delegated proposal execution
package params

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"slices"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
)

var (
	ErrUnauthorized = errors.New(
		"this function is controlled by the owner and governance contract",
	)
	ErrUnknownParameter  = errors.New("unknown network parameter")
	ErrInvalidValue      = errors.New("invalid parameter value")
	ErrUnsupportedIntent = errors.New("unsupported execution intent")
)

type Kind uint8

const (
	KindAmount Kind = iota
	// KindRatio values are fixed-point and must lie within [0, 1e18]
	KindRatio
	KindDuration
	KindCount
)

type Definition struct {
	Default     *big.Int
	Name        string
	Description string
	Kind        Kind
}

func mustInt(val string) *big.Int {
	ret, err := fixedpoint.ParseInteger(val)
	if err != nil {
		panic(err)
	}
	return ret
}

var definitions = []Definition{
	{
		Name:        "minSelfStake",
		Description: "minimum stake a validator must lock",
		Kind:        KindAmount,
		Default:     mustInt("317500000000000000"),
	},
	{
		Name:        "maxDelegatedRatio",
		Description: "maximum ratio of delegations to self-stake",
		Kind:        KindAmount,
		Default:     mustInt("16e18"),
	},
	{
		Name:        "validatorCommission",
		Description: "validator share of delegation rewards",
		Kind:        KindRatio,
		Default:     mustInt("0.15e18"),
	},
	{
		Name:        "contractCommission",
		Description: "validator share of contract fees",
		Kind:        KindRatio,
		Default:     mustInt("0.3e18"),
	},
	{
		Name:        "unlockedRewardRatio",
		Description: "reward ratio paid to unlocked stake",
		Kind:        KindRatio,
		Default:     mustInt("0.3e18"),
	},
	{
		Name:        "minLockupDuration",
		Description: "minimum stake lockup in seconds",
		Kind:        KindDuration,
		Default:     mustInt("1209600"),
	},
	{
		Name:        "maxLockupDuration",
		Description: "maximum stake lockup in seconds",
		Kind:        KindDuration,
		Default:     mustInt("31536000"),
	},
	{
		Name:        "withdrawalPeriodEpochs",
		Description: "epochs that must pass before a withdrawal",
		Kind:        KindCount,
		Default:     mustInt("3"),
	},
	{
		Name:        "withdrawalPeriodTime",
		Description: "seconds that must pass before a withdrawal",
		Kind:        KindDuration,
		Default:     mustInt("604800"),
	},
	{
		Name:        "offlinePenaltyThresholdBlocksNum",
		Description: "missed blocks before a validator is penalized",
		Kind:        KindCount,
		Default:     mustInt("1000"),
	},
	{
		Name:        "offlinePenaltyThresholdTime",
		Description: "offline seconds before a validator is penalized",
		Kind:        KindDuration,
		Default:     mustInt("432000"),
	},
}

// Definitions returns the known parameters ordered by name
func Definitions() []Definition {
	ret := slices.Clone(definitions)
	slices.SortFunc(ret, func(a, b Definition) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return ret
}

func lookup(name string) (Definition, bool) {
	for _, def := range definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Validate checks a value against the parameter's kind
func (d Definition) Validate(value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, d.Name)
	}
	if d.Kind == KindRatio && !fixedpoint.InUnitRange(value) {
		return fmt.Errorf("%w: %s must be within [0, 1]", ErrInvalidValue, d.Name)
	}
	return nil
}

// Value is the current value of a parameter
type Value struct {
	Value     *big.Int
	Name      string
	UpdatedBy common.Address
	UpdatedAt uint64
	IsDefault bool
}

type RegistryConfig struct {
	Database   *database.Database
	Logger     *slog.Logger
	Clock      clock.Clock
	Owner      common.Address
	Governance common.Address
}

type Registry struct {
	db         *database.Database
	logger     *slog.Logger
	clock      clock.Clock
	owner      common.Address
	governance common.Address
}

func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Registry{
		db:         cfg.Database,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		owner:      cfg.Owner,
		governance: cfg.Governance,
	}, nil
}

// Authorized reports whether caller may change parameters
func (r *Registry) Authorized(caller common.Address) bool {
	if caller == (common.Address{}) {
		return false
	}
	return caller == r.owner || caller == r.governance
}

// Get returns the current value of a parameter
func (r *Registry) Get(
	_ context.Context,
	txn *database.Txn,
	name string,
) (Value, error) {
	def, ok := lookup(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	param, err := r.db.GetNetworkParameter(name, txn)
	if err != nil {
		return Value{}, err
	}
	if param == nil {
		return Value{
			Name:      name,
			Value:     new(big.Int).Set(def.Default),
			IsDefault: true,
		}, nil
	}
	return valueFromModel(param), nil
}

// All returns the current value of every known parameter ordered by name
func (r *Registry) All(
	_ context.Context,
	txn *database.Txn,
) ([]Value, error) {
	stored, err := r.db.GetNetworkParameters(txn)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.NetworkParameter, len(stored))
	for _, param := range stored {
		byName[param.Name] = param
	}
	defs := Definitions()
	ret := make([]Value, 0, len(defs))
	for _, def := range defs {
		if param, ok := byName[def.Name]; ok {
			ret = append(ret, valueFromModel(&param))
			continue
		}
		ret = append(ret, Value{
			Name:      def.Name,
			Value:     new(big.Int).Set(def.Default),
			IsDefault: true,
		})
	}
	return ret, nil
}

// Set changes a parameter. Only the owner and the governance address may
// call it
func (r *Registry) Set(
	ctx context.Context,
	txn *database.Txn,
	caller common.Address,
	name string,
	value *big.Int,
) error {
	if !r.Authorized(caller) {
		return ErrUnauthorized
	}
	def, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if err := def.Validate(value); err != nil {
		return err
	}
	param := &models.NetworkParameter{
		Name:      name,
		Value:     types.NewBigInt(value),
		UpdatedBy: caller.Bytes(),
		UpdatedAt: uint64(r.clock.Now().Unix()), //nolint:gosec
	}
	if err := r.db.SetNetworkParameter(param, txn); err != nil {
		return err
	}
	r.logger.InfoContext(
		ctx,
		"network parameter updated",
		"component", "params",
		"name", name,
		"value", value.String(),
		"caller", caller.Hex(),
	)
	return nil
}

// ApplyIntent applies an intent emitted during delegated execution, acting as
// caller
func (r *Registry) ApplyIntent(
	ctx context.Context,
	txn *database.Txn,
	caller common.Address,
	intent proposal.Intent,
) error {
	switch v := intent.(type) {
	case proposal.SetParameter:
		return r.Set(ctx, txn, caller, v.Name, v.Value)
	case *proposal.SetParameter:
		return r.Set(ctx, txn, caller, v.Name, v.Value)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedIntent, intent.IntentKind())
	}
}

func valueFromModel(param *models.NetworkParameter) Value {
	return Value{
		Name:      param.Name,
		Value:     param.Value.Big(),
		UpdatedBy: common.BytesToAddress(param.UpdatedBy),
		UpdatedAt: param.UpdatedAt,
	}
}
