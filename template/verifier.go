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
package template

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Verifier decides whether a proposal contract has the shape a template
// expects. A mismatch is reported as false, never as an error
type Verifier interface {
	Verify(
		ctx context.Context,
		txn *database.Txn,
		addr common.Address,
		candidate proposal.Proposal,
	) (bool, error)
}

// TypeMatcher accepts candidates whose concrete type is identical to the
// reference implementation's
type TypeMatcher struct {
	reference reflect.Type
}

func NewTypeMatcher(reference proposal.Proposal) *TypeMatcher {
	return &TypeMatcher{reference: reflect.TypeOf(reference)}
}

func (m *TypeMatcher) Verify(
	_ context.Context,
	_ *database.Txn,
	_ common.Address,
	candidate proposal.Proposal,
) (bool, error) {
	if candidate == nil {
		return false, nil
	}
	return reflect.TypeOf(candidate) == m.reference, nil
}

// OwnedBy accepts only contracts deployed through the directory by owner
type OwnedBy struct {
	directory *proposal.Directory
	owner     common.Address
}

func NewOwnedBy(directory *proposal.Directory, owner common.Address) *OwnedBy {
	return &OwnedBy{directory: directory, owner: owner}
}

func (o *OwnedBy) Verify(
	ctx context.Context,
	txn *database.Txn,
	addr common.Address,
	_ proposal.Proposal,
) (bool, error) {
	record, err := o.directory.Record(ctx, txn, addr)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return common.BytesToAddress(record.Owner) == o.owner, nil
}

// All accepts a candidate only when every verifier accepts it
type All []Verifier

func (a All) Verify(
	ctx context.Context,
	txn *database.Txn,
	addr common.Address,
	candidate proposal.Proposal,
) (bool, error) {
	for _, v := range a {
		ok, err := v.Verify(ctx, txn, addr, candidate)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// VerifierAddress derives the address a named verifier is registered under
func VerifierAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("verifier:" + name))[12:])
}

// VerifierDirectory maps verifier addresses to verifier implementations
type VerifierDirectory struct {
	verifiers map[common.Address]Verifier
	names     map[string]common.Address
	mutex     sync.RWMutex
}

func NewVerifierDirectory() *VerifierDirectory {
	return &VerifierDirectory{
		verifiers: make(map[common.Address]Verifier),
		names:     make(map[string]common.Address),
	}
}

// Register adds a verifier under its derived address and returns that address
func (d *VerifierDirectory) Register(name string, v Verifier) common.Address {
	addr := VerifierAddress(name)
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.verifiers[addr] = v
	d.names[name] = addr
	return addr
}

func (d *VerifierDirectory) Lookup(addr common.Address) (Verifier, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	v, ok := d.verifiers[addr]
	return v, ok
}

// Address returns the address of a named verifier
func (d *VerifierDirectory) Address(name string) (common.Address, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	addr, ok := d.names[name]
	return addr, ok
}

// Names returns the registered verifier names in sorted order
func (d *VerifierDirectory) Names() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	ret := make([]string, 0, len(d.names))
	for name := range d.names {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}
