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

package gormstore

import (
	"errors"
	"math/big"

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetVote returns the current vote of a voter on a proposal, or nil if none exists
func (s *Store) GetVote(
	proposalId uint64,
	voter []byte,
	txn types.Txn,
) (*models.ProposalVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpVote models.ProposalVote
	result := db.Where(
		"proposal_id = ? AND voter = ?",
		proposalId,
		voter,
	).First(&tmpVote)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpVote, nil
}

// GetVotes returns all current votes on a proposal
func (s *Store) GetVotes(
	proposalId uint64,
	txn types.Txn,
) ([]models.ProposalVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProposalVote
	result := db.Where("proposal_id = ?", proposalId).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVote records a vote, replacing any existing vote by the same voter
func (s *Store) SetVote(
	vote *models.ProposalVote,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "voter"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"choices",
			"weight",
			"cast_at",
		}),
	}
	return db.Clauses(onConflict).Create(vote).Error
}

// DeleteVote removes the vote of a voter on a proposal
func (s *Store) DeleteVote(
	proposalId uint64,
	voter []byte,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where(
		"proposal_id = ? AND voter = ?",
		proposalId,
		voter,
	).Delete(&models.ProposalVote{}).Error
}

// GetTallyBuckets returns all tally buckets for a proposal
func (s *Store) GetTallyBuckets(
	proposalId uint64,
	txn types.Txn,
) ([]models.TallyBucket, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TallyBucket
	result := db.Where("proposal_id = ?", proposalId).
		Order("option_index, scale").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddTallyWeight adds delta (which may be negative) to the weight of a tally bucket
func (s *Store) AddTallyWeight(
	proposalId uint64,
	optionIndex uint32,
	scale uint64,
	delta *big.Int,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	var bucket models.TallyBucket
	result := db.Where(
		"proposal_id = ? AND option_index = ? AND scale = ?",
		proposalId,
		optionIndex,
		scale,
	).First(&bucket)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		bucket = models.TallyBucket{
			ProposalID:  proposalId,
			OptionIndex: optionIndex,
			Scale:       scale,
			Weight:      types.NewBigInt(nil),
		}
	}
	newWeight := new(big.Int).Add(bucket.Weight.Big(), delta)
	if newWeight.Sign() < 0 {
		return errors.New("tally bucket weight would become negative")
	}
	bucket.Weight = types.NewBigInt(newWeight)
	if bucket.ID == 0 {
		return db.Create(&bucket).Error
	}
	return db.Save(&bucket).Error
}
