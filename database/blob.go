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
package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/govern/database/types"
	"github.com/fxamacker/cbor/v2"
)

// ExecutionReceipt records the outcome of executing a proposal
type ExecutionReceipt struct {
	_          struct{} `cbor:",toarray"`
	ProposalID uint64
	Winner     uint64
	ExecKind   uint8
	Success    bool
	Error      string
	Notes      []string
	Intents    []string
	ExecutedAt uint64
}

// ContractRecord describes a deployed proposal contract
type ContractRecord struct {
	_          struct{} `cbor:",toarray"`
	Address    []byte
	Owner      []byte
	Kind       string
	Params     []byte
	Nonce      uint64
	DeployedAt uint64
}

func (d *Database) blobGet(txn *Txn, key []byte, dest any) error {
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	data, err := d.blob.Get(txn.Blob(), key)
	if err != nil {
		return err
	}
	return cbor.Unmarshal(data, dest)
}

func (d *Database) blobSet(txn *Txn, key []byte, val any) error {
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	data, err := cbor.Marshal(val)
	if err != nil {
		return err
	}
	return d.blob.Set(txn.Blob(), key, data)
}

// GetProposalOptions returns the option labels of a proposal
func (d *Database) GetProposalOptions(
	proposalId uint64,
	txn *Txn,
) ([][]byte, error) {
	var ret [][]byte
	err := d.withTxn(txn, false, func(txn *Txn) error {
		return d.blobGet(txn, types.ProposalOptionsKey(proposalId), &ret)
	})
	if err != nil {
		return nil, fmt.Errorf("get options for proposal %d: %w", proposalId, err)
	}
	return ret, nil
}

// SetProposalOptions stores the option labels of a proposal
func (d *Database) SetProposalOptions(
	proposalId uint64,
	options [][]byte,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.blobSet(txn, types.ProposalOptionsKey(proposalId), options)
	})
	if err != nil {
		return fmt.Errorf("set options for proposal %d: %w", proposalId, err)
	}
	return nil
}

// GetExecutionReceipt returns the execution receipt of a proposal, or nil if
// the proposal was never executed
func (d *Database) GetExecutionReceipt(
	proposalId uint64,
	txn *Txn,
) (*ExecutionReceipt, error) {
	var ret ExecutionReceipt
	err := d.withTxn(txn, false, func(txn *Txn) error {
		return d.blobGet(txn, types.ExecutionReceiptKey(proposalId), &ret)
	})
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get receipt for proposal %d: %w", proposalId, err)
	}
	return &ret, nil
}

// SetExecutionReceipt stores the execution receipt of a proposal
func (d *Database) SetExecutionReceipt(
	receipt *ExecutionReceipt,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.blobSet(
			txn,
			types.ExecutionReceiptKey(receipt.ProposalID),
			receipt,
		)
	})
	if err != nil {
		return fmt.Errorf(
			"set receipt for proposal %d: %w",
			receipt.ProposalID,
			err,
		)
	}
	return nil
}

// GetContract returns a contract deployment record, or nil if no contract
// is deployed at the address
func (d *Database) GetContract(addr []byte, txn *Txn) (*ContractRecord, error) {
	var ret ContractRecord
	err := d.withTxn(txn, false, func(txn *Txn) error {
		return d.blobGet(txn, types.ContractKey(addr), &ret)
	})
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contract %x: %w", addr, err)
	}
	return &ret, nil
}

// SetContract stores a contract deployment record
func (d *Database) SetContract(record *ContractRecord, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.blobSet(txn, types.ContractKey(record.Address), record)
	})
	if err != nil {
		return fmt.Errorf("set contract %x: %w", record.Address, err)
	}
	return nil
}

// NextContractNonce returns the deployment nonce for owner and stores the
// incremented value
func (d *Database) NextContractNonce(owner []byte, txn *Txn) (uint64, error) {
	var ret uint64
	err := d.withTxn(txn, true, func(txn *Txn) error {
		if txn.Blob() == nil {
			return types.ErrBlobStoreUnavailable
		}
		key := types.ContractNonceKey(owner)
		data, err := d.blob.Get(txn.Blob(), key)
		if err != nil && !errors.Is(err, types.ErrBlobKeyNotFound) {
			return err
		}
		if len(data) == 8 {
			ret = binary.BigEndian.Uint64(data)
		}
		return d.blob.Set(txn.Blob(), key, types.BlobKeyUint64ToBytes(ret+1))
	})
	if err != nil {
		return 0, fmt.Errorf("next contract nonce for %x: %w", owner, err)
	}
	return ret, nil
}
