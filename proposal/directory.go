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
package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/blinklabs-io/govern/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/raulk/clock"
)

const DefaultContractCacheSize = 256

var (
	ErrContractNotFound = errors.New("proposal contract not found")
	ErrUnknownKind      = errors.New("unknown proposal kind")
)

// Factory builds a proposal instance from its JSON deployment parameters
type Factory func(params json.RawMessage) (Proposal, error)

type DirectoryConfig struct {
	Database  *database.Database
	Logger    *slog.Logger
	Clock     clock.Clock
	CacheSize int
}

// Directory resolves proposal contract addresses to proposal instances.
// Deployed contracts are persisted as deployment records and rebuilt from
// their kind's factory on demand. Bound contracts exist only in this process
type Directory struct {
	db        *database.Database
	logger    *slog.Logger
	clock     clock.Clock
	cache     *lru.Cache[common.Address, Proposal]
	factories map[string]Factory
	bound     map[common.Address]Proposal
	mutex     sync.RWMutex
}

func NewDirectory(cfg DirectoryConfig) (*Directory, error) {
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
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultContractCacheSize
	}
	cache, err := lru.New[common.Address, Proposal](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Directory{
		db:        cfg.Database,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		cache:     cache,
		factories: make(map[string]Factory),
		bound:     make(map[common.Address]Proposal),
	}, nil
}

// RegisterKind makes a proposal kind available for deployment
func (d *Directory) RegisterKind(kind string, factory Factory) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.factories[kind] = factory
}

// Kinds returns the registered kind names in sorted order
func (d *Directory) Kinds() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	ret := make([]string, 0, len(d.factories))
	for kind := range d.factories {
		ret = append(ret, kind)
	}
	slices.Sort(ret)
	return ret
}

// Bind registers an in-process proposal instance at addr
func (d *Directory) Bind(addr common.Address, p Proposal) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.bound[addr] = p
}

// Deploy instantiates a proposal of the given kind and stores its deployment
// record. The address is derived from the owner and the owner's deployment nonce
func (d *Directory) Deploy(
	_ context.Context,
	txn *database.Txn,
	owner common.Address,
	kind string,
	params json.RawMessage,
) (common.Address, error) {
	factory, err := d.factory(kind)
	if err != nil {
		return common.Address{}, err
	}
	// Make sure the parameters build a valid instance before storing them
	if _, err := factory(params); err != nil {
		return common.Address{}, fmt.Errorf("invalid %s parameters: %w", kind, err)
	}
	nonce, err := d.db.NextContractNonce(owner.Bytes(), txn)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.CreateAddress(owner, nonce)
	record := &database.ContractRecord{
		Address:    addr.Bytes(),
		Owner:      owner.Bytes(),
		Kind:       kind,
		Params:     params,
		Nonce:      nonce,
		DeployedAt: uint64(d.clock.Now().Unix()), //nolint:gosec
	}
	if err := d.db.SetContract(record, txn); err != nil {
		return common.Address{}, err
	}
	d.logger.Debug(
		"deployed proposal contract",
		"component", "proposal",
		"address", addr.Hex(),
		"owner", owner.Hex(),
		"kind", kind,
	)
	return addr, nil
}

// Resolve returns the proposal instance at addr
func (d *Directory) Resolve(
	_ context.Context,
	txn *database.Txn,
	addr common.Address,
) (Proposal, error) {
	d.mutex.RLock()
	p, ok := d.bound[addr]
	d.mutex.RUnlock()
	if ok {
		return p, nil
	}
	if p, ok := d.cache.Get(addr); ok {
		return p, nil
	}
	record, err := d.db.GetContract(addr.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr.Hex())
	}
	factory, err := d.factory(record.Kind)
	if err != nil {
		return nil, err
	}
	p, err = factory(record.Params)
	if err != nil {
		return nil, fmt.Errorf("rebuild contract %s: %w", addr.Hex(), err)
	}
	d.cache.Add(addr, p)
	return p, nil
}

// Forget drops a cached instance. Callers use it when a transaction that
// deployed or resolved addr is rolled back
func (d *Directory) Forget(addr common.Address) {
	d.cache.Remove(addr)
}

// Record returns the deployment record of addr, or nil for contracts that
// were bound in-process or do not exist
func (d *Directory) Record(
	_ context.Context,
	txn *database.Txn,
	addr common.Address,
) (*database.ContractRecord, error) {
	return d.db.GetContract(addr.Bytes(), txn)
}

func (d *Directory) factory(kind string) (Factory, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	factory, ok := d.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return factory, nil
}
