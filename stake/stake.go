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

// Package stake provides the stake weight queries used by governance
package stake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"sync"

	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

var ErrNegativeStake = errors.New("stake amount must not be negative")

// Ledger supplies live stake weights. Both values are read at call time
type Ledger interface {
	WeightOf(ctx context.Context, addr common.Address) (*big.Int, error)
	TotalEffectiveStake(ctx context.Context) (*big.Int, error)
}

// MemoryLedger is an in-process Ledger. The total effective stake is the sum
// of all stakes unless an explicit total has been set
type MemoryLedger struct {
	logger *slog.Logger
	stakes map[common.Address]*big.Int
	total  *big.Int
	mutex  sync.RWMutex
}

func NewMemoryLedger(logger *slog.Logger) *MemoryLedger {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &MemoryLedger{
		logger: logger,
		stakes: make(map[common.Address]*big.Int),
	}
}

// SetStake sets the stake weight of an address. A zero amount removes it
func (l *MemoryLedger) SetStake(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeStake
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if amount.Sign() == 0 {
		delete(l.stakes, addr)
	} else {
		l.stakes[addr] = new(big.Int).Set(amount)
	}
	l.logger.Debug(
		"updated stake",
		"component", "stake",
		"address", addr.Hex(),
		"amount", amount.String(),
	)
	return nil
}

// SetTotalEffectiveStake overrides the computed total. A nil value restores
// the computed total
func (l *MemoryLedger) SetTotalEffectiveStake(total *big.Int) error {
	if total != nil && total.Sign() < 0 {
		return ErrNegativeStake
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if total == nil {
		l.total = nil
		return nil
	}
	l.total = new(big.Int).Set(total)
	return nil
}

func (l *MemoryLedger) WeightOf(
	_ context.Context,
	addr common.Address,
) (*big.Int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if amount, ok := l.stakes[addr]; ok {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int), nil
}

func (l *MemoryLedger) TotalEffectiveStake(_ context.Context) (*big.Int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if l.total != nil {
		return new(big.Int).Set(l.total), nil
	}
	ret := new(big.Int)
	for _, amount := range l.stakes {
		ret.Add(ret, amount)
	}
	return ret, nil
}

// Genesis is the YAML document used to seed a MemoryLedger
type Genesis struct {
	TotalEffectiveStake string         `yaml:"totalEffectiveStake"`
	Stakes              []GenesisStake `yaml:"stakes"`
}

type GenesisStake struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

// LoadGenesis reads stake genesis from a YAML file and applies it
func (l *MemoryLedger) LoadGenesis(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read stake genesis: %w", err)
	}
	var genesis Genesis
	if err := yaml.Unmarshal(data, &genesis); err != nil {
		return fmt.Errorf("parse stake genesis: %w", err)
	}
	return l.ApplyGenesis(&genesis)
}

// ApplyGenesis sets every stake listed in the genesis document
func (l *MemoryLedger) ApplyGenesis(genesis *Genesis) error {
	for _, entry := range genesis.Stakes {
		if !common.IsHexAddress(entry.Address) {
			return fmt.Errorf("invalid stake address %q", entry.Address)
		}
		amount, err := fixedpoint.ParseInteger(entry.Amount)
		if err != nil {
			return fmt.Errorf("stake for %s: %w", entry.Address, err)
		}
		if err := l.SetStake(common.HexToAddress(entry.Address), amount); err != nil {
			return fmt.Errorf("stake for %s: %w", entry.Address, err)
		}
	}
	if genesis.TotalEffectiveStake != "" {
		total, err := fixedpoint.ParseInteger(genesis.TotalEffectiveStake)
		if err != nil {
			return fmt.Errorf("total effective stake: %w", err)
		}
		if err := l.SetTotalEffectiveStake(total); err != nil {
			return err
		}
	}
	l.logger.Info(
		fmt.Sprintf("loaded %d stake entries from genesis", len(genesis.Stakes)),
		"component", "stake",
	)
	return nil
}
