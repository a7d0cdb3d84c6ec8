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

package badger_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/govern/database/plugin/blob/badger"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStoreInMemory(t *testing.T) {
	store, err := badger.New(
		badger.WithPromRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	defer store.Close()

	key := types.ProposalOptionsKey(1)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, key, []byte("options")))
	require.NoError(t, txn.Commit())

	// Committed transactions cannot be reused
	_, err = store.Get(txn, key)
	require.Error(t, err)

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	val, err := store.Get(readTxn, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("options"), val)

	_, err = store.Get(readTxn, types.ProposalOptionsKey(2))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	_, err = store.Get(nil, key)
	require.ErrorIs(t, err, types.ErrNilTxn)
}

func TestBlobStoreRollback(t *testing.T) {
	store, err := badger.New()
	require.NoError(t, err)
	defer store.Close()

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, types.ExecutionReceiptKey(7), []byte("r")))
	require.NoError(t, txn.Rollback())

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	_, err = store.Get(readTxn, types.ExecutionReceiptKey(7))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestBlobStoreIterator(t *testing.T) {
	store, err := badger.New()
	require.NoError(t, err)
	defer store.Close()

	txn := store.NewTransaction(true)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, store.Set(txn, types.ExecutionReceiptKey(i), []byte{byte(i)}))
	}
	require.NoError(t, store.Set(txn, types.ProposalOptionsKey(1), []byte{0xff}))
	require.NoError(t, txn.Commit())

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	iter := store.NewIterator(readTxn, types.BlobIteratorOptions{
		Prefix: []byte(types.ExecutionReceiptKeyPrefix),
	})
	defer iter.Close()
	var vals []byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		require.NoError(t, err)
		vals = append(vals, val...)
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, []byte{1, 2, 3}, vals)
}

func TestBlobStoreCommitTimestamp(t *testing.T) {
	store, err := badger.New()
	require.NoError(t, err)
	defer store.Close()

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)

	require.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)

	now := time.Now().UnixMilli()
	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(now, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, now, ts)
}

func TestBlobStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := badger.New(
		badger.WithDataDir(dir),
		badger.WithGcInterval(time.Hour),
	)
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, types.ContractKey([]byte{1}), []byte("deployment")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store, err = badger.New(badger.WithDataDir(dir), badger.WithGc(false))
	require.NoError(t, err)
	defer store.Close()
	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	val, err := store.Get(readTxn, types.ContractKey([]byte{1}))
	require.NoError(t, err)
	assert.Equal(t, []byte("deployment"), val)
}
