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
package governance

import (
	"math"
	"math/big"

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
)

// NoWinner is the winner option ID of proposals without a winning option
const NoWinner uint64 = math.MaxUint64

// Bucket is the summed weight of voters that gave one option one scale value
type Bucket struct {
	Weight *big.Int
	Scale  uint64
	Option uint32
}

func bucketsFromModels(rows []models.TallyBucket) []Bucket {
	ret := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, Bucket{
			Option: row.OptionIndex,
			Scale:  row.Scale,
			Weight: row.Weight.Big(),
		})
	}
	return ret
}

type TallyParams struct {
	TotalStake   *big.Int
	MinVotes     *big.Int
	MinAgreement *big.Int
	MaxScale     uint64
	OptionCount  int
}

// OptionResult is the tally of a single option
type OptionResult struct {
	// Votes is the summed weight of all votes on the option
	Votes *big.Int
	// Score is the weighted average opinion as a fixed-point value in [0, 1]
	Score     *big.Int
	Qualified bool
}

type TallyResult struct {
	Options []OptionResult
	Winner  uint64
}

func (r TallyResult) HasWinner() bool {
	return r.Winner != NoWinner
}

// ComputeTally evaluates the buckets of a proposal. An option qualifies when
// its votes reach minVotes of the total stake and its score reaches
// minAgreement, both inclusive. The qualifying option with the highest score
// wins, and ties go to the lowest index
func ComputeTally(buckets []Bucket, params TallyParams) TallyResult {
	count := max(params.OptionCount, 0)
	votes := make([]*big.Int, count)
	weighted := make([]*big.Int, count)
	for i := range count {
		votes[i] = new(big.Int)
		weighted[i] = new(big.Int)
	}
	for _, bucket := range buckets {
		if int(bucket.Option) >= count || bucket.Weight == nil {
			continue
		}
		votes[bucket.Option].Add(votes[bucket.Option], bucket.Weight)
		contribution := new(big.Int).SetUint64(bucket.Scale)
		contribution.Mul(contribution, bucket.Weight)
		weighted[bucket.Option].Add(weighted[bucket.Option], contribution)
	}
	quorum := new(big.Int)
	if params.MinVotes != nil && params.TotalStake != nil {
		quorum.Mul(params.MinVotes, params.TotalStake)
	}
	minAgreement := params.MinAgreement
	if minAgreement == nil {
		minAgreement = new(big.Int)
	}
	maxScale := new(big.Int).SetUint64(params.MaxScale)
	ret := TallyResult{
		Options: make([]OptionResult, count),
		Winner:  NoWinner,
	}
	var best *big.Int
	for i := range count {
		score := new(big.Int)
		if params.MaxScale > 0 && votes[i].Sign() > 0 {
			denom := new(big.Int).Mul(maxScale, votes[i])
			score.Mul(weighted[i], fixedpoint.One)
			score.Quo(score, denom)
		}
		scaledVotes := new(big.Int).Mul(votes[i], fixedpoint.One)
		qualified := votes[i].Sign() > 0 &&
			scaledVotes.Cmp(quorum) >= 0 &&
			score.Cmp(minAgreement) >= 0
		ret.Options[i] = OptionResult{
			Votes:     votes[i],
			Score:     score,
			Qualified: qualified,
		}
		if qualified && (best == nil || score.Cmp(best) > 0) {
			best = score
			ret.Winner = uint64(i)
		}
	}
	return ret
}
