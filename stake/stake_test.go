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
package stake_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/govern/stake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAddr1 = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testAddr2 = common.HexToAddress("0x1000000000000000000000000000000000000002")
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := stake.NewMemoryLedger(nil)
	require.NoError(t, l.SetStake(testAddr1, big.NewInt(10)))
	require.NoError(t, l.SetStake(testAddr2, big.NewInt(5)))
	weight, err := l.WeightOf(ctx, testAddr1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), weight.Int64())
	total, err := l.TotalEffectiveStake(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total.Int64())
	// Returned values are copies
	weight.SetInt64(100)
	weight, err = l.WeightOf(ctx, testAddr1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), weight.Int64())
	// Zero removes the entry
	require.NoError(t, l.SetStake(testAddr2, big.NewInt(0)))
	total, err = l.TotalEffectiveStake(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total.Int64())
	assert.ErrorIs(t, l.SetStake(testAddr2, big.NewInt(-1)), stake.ErrNegativeStake)
}

func TestMemoryLedgerTotalOverride(t *testing.T) {
	ctx := context.Background()
	l := stake.NewMemoryLedger(nil)
	require.NoError(t, l.SetStake(testAddr1, big.NewInt(10)))
	require.NoError(t, l.SetTotalEffectiveStake(big.NewInt(20)))
	total, err := l.TotalEffectiveStake(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total.Int64())
	require.NoError(t, l.SetTotalEffectiveStake(nil))
	total, err = l.TotalEffectiveStake(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total.Int64())
}

func TestLoadGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stake.yaml")
	genesis := `totalEffectiveStake: "20e18"
stakes:
  - address: "0x1000000000000000000000000000000000000001"
    amount: "10e18"
  - address: "0x1000000000000000000000000000000000000002"
    amount: "5000"
`
	require.NoError(t, os.WriteFile(path, []byte(genesis), 0o600))
	l := stake.NewMemoryLedger(nil)
	require.NoError(t, l.LoadGenesis(path))
	weight, err := l.WeightOf(context.Background(), testAddr1)
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", weight.String())
	total, err := l.TotalEffectiveStake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20000000000000000000", total.String())
}

func TestApplyGenesisInvalidAddress(t *testing.T) {
	l := stake.NewMemoryLedger(nil)
	err := l.ApplyGenesis(&stake.Genesis{
		Stakes: []stake.GenesisStake{{Address: "nope", Amount: "1"}},
	})
	assert.Error(t, err)
}
