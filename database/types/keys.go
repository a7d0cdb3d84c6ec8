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

package types

import (
	"encoding/binary"
	"slices"
)

const (
	ProposalOptionsKeyPrefix  = "po"
	ExecutionReceiptKeyPrefix = "er"
	ContractKeyPrefix         = "ct"
	ContractNonceKeyPrefix    = "cn"
)

func BlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// ProposalOptionsKey returns the blob key holding the option labels of a proposal
func ProposalOptionsKey(proposalId uint64) []byte {
	return slices.Concat(
		[]byte(ProposalOptionsKeyPrefix),
		BlobKeyUint64ToBytes(proposalId),
	)
}

// ExecutionReceiptKey returns the blob key holding the execution receipt of a proposal
func ExecutionReceiptKey(proposalId uint64) []byte {
	return slices.Concat(
		[]byte(ExecutionReceiptKeyPrefix),
		BlobKeyUint64ToBytes(proposalId),
	)
}

// ContractKey returns the blob key holding a contract deployment record
func ContractKey(addr []byte) []byte {
	return slices.Concat([]byte(ContractKeyPrefix), addr)
}

// ContractNonceKey returns the blob key holding the deployment nonce of an owner
func ContractNonceKey(owner []byte) []byte {
	return slices.Concat([]byte(ContractNonceKeyPrefix), owner)
}
