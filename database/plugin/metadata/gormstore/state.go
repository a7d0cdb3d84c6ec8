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

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	governanceStateRowId = 1
)

// GetGovernanceState returns the engine counters. A zero value is returned
// when nothing has been stored yet
func (s *Store) GetGovernanceState(
	txn types.Txn,
) (*models.GovernanceState, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpState models.GovernanceState
	result := db.Where("id = ?", governanceStateRowId).First(&tmpState)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &models.GovernanceState{
				ID:            governanceStateRowId,
				CollectedFees: types.NewBigInt(nil),
			}, nil
		}
		return nil, result.Error
	}
	return &tmpState, nil
}

// SetGovernanceState stores the engine counters
func (s *Store) SetGovernanceState(
	state *models.GovernanceState,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	state.ID = governanceStateRowId
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_proposal_id",
			"active_proposals",
			"task_count",
			"collected_fees",
		}),
	}
	return db.Clauses(onConflict).Create(state).Error
}

// GetNetworkParameter returns the named parameter, or nil if it has never been set
func (s *Store) GetNetworkParameter(
	name string,
	txn types.Txn,
) (*models.NetworkParameter, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpParam models.NetworkParameter
	result := db.Where("name = ?", name).First(&tmpParam)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpParam, nil
}

// GetNetworkParameters returns all stored parameters ordered by name
func (s *Store) GetNetworkParameters(
	txn types.Txn,
) ([]models.NetworkParameter, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.NetworkParameter
	if result := db.Order("name").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetNetworkParameter creates or updates a parameter value
func (s *Store) SetNetworkParameter(
	param *models.NetworkParameter,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"updated_by",
			"updated_at",
		}),
	}
	return db.Clauses(onConflict).Create(param).Error
}
