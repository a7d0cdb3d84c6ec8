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
package gormstore_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/plugin/metadata/gormstore"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		gormstore.GormConfig(),
	)
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	store, err := gormstore.New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

type otherTxn struct{}

func (otherTxn) Commit() error   { return nil }
func (otherTxn) Rollback() error { return nil }

func TestResolveTxn(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetProposal(1, otherTxn{})
	assert.ErrorIs(t, err, types.ErrTxnWrongType)
	other := newTestStore(t)
	txn := other.Transaction()
	_, err = store.GetProposal(1, txn)
	assert.Error(t, err)
	require.NoError(t, txn.Rollback())
	// A finished transaction cannot be reused
	_, err = other.GetProposal(1, txn)
	assert.Error(t, err)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)
	assert.ErrorIs(t, store.SetCommitTimestamp(5, nil), types.ErrNilTxn)
	for _, val := range []int64{5, 9} {
		txn := store.Transaction()
		require.NoError(t, store.SetCommitTimestamp(val, txn))
		require.NoError(t, txn.Commit())
	}
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(9), ts)
}

func TestNetworkParameterUpsert(t *testing.T) {
	store := newTestStore(t)
	param, err := store.GetNetworkParameter("maxDelegatedRatio", nil)
	require.NoError(t, err)
	assert.Nil(t, param)
	for _, val := range []int64{16, 20} {
		require.NoError(t, store.SetNetworkParameter(&models.NetworkParameter{
			Name:  "maxDelegatedRatio",
			Value: types.NewBigInt(big.NewInt(val)),
		}, nil))
	}
	params, err := store.GetNetworkParameters(nil)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, int64(20), params[0].Value.Int64())
}

func TestProposalsByStatus(t *testing.T) {
	store := newTestStore(t)
	for i := uint64(1); i <= 3; i++ {
		status := models.ProposalStatusInitial
		if i == 2 {
			status = models.ProposalStatusResolved
		}
		require.NoError(t, store.SetProposal(&models.Proposal{
			ProposalID: i,
			Contract:   []byte{byte(i)},
			Status:     status,
		}, nil))
	}
	initial, err := store.GetProposalsByStatus(models.ProposalStatusInitial, nil)
	require.NoError(t, err)
	require.Len(t, initial, 2)
	assert.Equal(t, uint64(1), initial[0].ProposalID)
	assert.Equal(t, uint64(3), initial[1].ProposalID)
	// Updating an existing row keeps a single record
	initial[0].Status = models.ProposalStatusFailed
	require.NoError(t, store.SetProposal(&initial[0], nil))
	failed, err := store.GetProposalsByStatus(models.ProposalStatusFailed, nil)
	require.NoError(t, err)
	require.Len(t, failed, 1)
}
