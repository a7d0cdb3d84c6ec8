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
package governance_test

import (
	"math/big"
	"testing"

	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratio(t *testing.T, val string) *big.Int {
	t.Helper()
	ret, err := fixedpoint.ParseRatio(val)
	require.NoError(t, err)
	return ret
}

func bucket(option uint32, scale uint64, weight int64) governance.Bucket {
	return governance.Bucket{
		Option: option,
		Scale:  scale,
		Weight: big.NewInt(weight),
	}
}

func TestComputeTally(t *testing.T) {
	testDefs := []struct {
		name        string
		buckets     []governance.Bucket
		optionCount int
		totalStake  int64
		minVotes    string
		minAgree    string
		winner      uint64
		scores      []string
	}{
		{
			name:        "two full votes",
			buckets:     []governance.Bucket{bucket(0, 4, 20), bucket(1, 0, 20)},
			optionCount: 2,
			totalStake:  20,
			minVotes:    "0.5",
			minAgree:    "0.6",
			winner:      0,
			scores:      []string{"1", "0"},
		},
		{
			name:        "quorum is inclusive",
			buckets:     []governance.Bucket{bucket(0, 4, 10)},
			optionCount: 1,
			totalStake:  20,
			minVotes:    "0.5",
			minAgree:    "0.6",
			winner:      0,
			scores:      []string{"1"},
		},
		{
			name:        "below quorum",
			buckets:     []governance.Bucket{bucket(0, 4, 9)},
			optionCount: 1,
			totalStake:  20,
			minVotes:    "0.5",
			minAgree:    "0.6",
			winner:      governance.NoWinner,
			scores:      []string{"1"},
		},
		{
			name:        "agreement is inclusive",
			buckets:     []governance.Bucket{bucket(0, 3, 10), bucket(0, 0, 0)},
			optionCount: 1,
			totalStake:  10,
			minVotes:    "0.5",
			minAgree:    "0.75",
			winner:      0,
			scores:      []string{"0.75"},
		},
		{
			name:        "mixed opinions fail agreement",
			buckets:     []governance.Bucket{bucket(0, 4, 10), bucket(0, 0, 10)},
			optionCount: 1,
			totalStake:  20,
			minVotes:    "0.5",
			minAgree:    "0.6",
			winner:      governance.NoWinner,
			scores:      []string{"0.5"},
		},
		{
			name: "highest score wins",
			buckets: []governance.Bucket{
				bucket(0, 3, 10),
				bucket(1, 4, 10),
				bucket(2, 2, 10),
			},
			optionCount: 3,
			totalStake:  10,
			minVotes:    "0.5",
			minAgree:    "0.4",
			winner:      1,
			scores:      []string{"0.75", "1", "0.5"},
		},
		{
			name: "ties go to the lowest index",
			buckets: []governance.Bucket{
				bucket(0, 2, 10),
				bucket(1, 4, 10),
				bucket(2, 4, 10),
			},
			optionCount: 3,
			totalStake:  10,
			minVotes:    "0",
			minAgree:    "0",
			winner:      1,
			scores:      []string{"0.5", "1", "1"},
		},
		{
			name:        "no votes",
			optionCount: 2,
			totalStake:  10,
			minVotes:    "0",
			minAgree:    "0",
			winner:      governance.NoWinner,
			scores:      []string{"0", "0"},
		},
		{
			name:        "buckets beyond the option count are ignored",
			buckets:     []governance.Bucket{bucket(3, 4, 10)},
			optionCount: 1,
			totalStake:  10,
			minVotes:    "0",
			minAgree:    "0",
			winner:      governance.NoWinner,
			scores:      []string{"0"},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := governance.TallyParams{
				OptionCount:  testDef.optionCount,
				MaxScale:     4,
				TotalStake:   big.NewInt(testDef.totalStake),
				MinVotes:     ratio(t, testDef.minVotes),
				MinAgreement: ratio(t, testDef.minAgree),
			}
			result := governance.ComputeTally(testDef.buckets, params)
			assert.Equal(t, testDef.winner, result.Winner)
			require.Len(t, result.Options, testDef.optionCount)
			for i, score := range testDef.scores {
				assert.Equal(
					t,
					ratio(t, score).String(),
					result.Options[i].Score.String(),
					"option %d",
					i,
				)
			}
			// Evaluation is a pure function of its inputs
			again := governance.ComputeTally(testDef.buckets, params)
			assert.Equal(t, result, again)
		})
	}
}

func TestComputeTallyZeroMaxScale(t *testing.T) {
	result := governance.ComputeTally(
		[]governance.Bucket{bucket(0, 0, 10)},
		governance.TallyParams{
			OptionCount:  1,
			TotalStake:   big.NewInt(10),
			MinVotes:     new(big.Int),
			MinAgreement: new(big.Int),
		},
	)
	assert.Equal(t, "0", result.Options[0].Score.String())
	assert.Equal(t, "10", result.Options[0].Votes.String())
	// A zero score still clears a zero agreement threshold
	assert.True(t, result.Options[0].Qualified)
	assert.True(t, result.HasWinner())
}
