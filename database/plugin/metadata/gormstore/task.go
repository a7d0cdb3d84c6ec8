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
)

// AddTask appends a task to the queue
func (s *Store) AddTask(
	task *models.ProposalTask,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(task).Error
}

// GetTask returns the task at the given index, or nil if it does not exist
func (s *Store) GetTask(
	taskIndex uint64,
	txn types.Txn,
) (*models.ProposalTask, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpTask models.ProposalTask
	result := db.Where("task_index = ?", taskIndex).First(&tmpTask)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpTask, nil
}

// GetTaskRange returns tasks with indexes in [start, end) ordered by index
func (s *Store) GetTaskRange(
	start uint64,
	end uint64,
	txn types.Txn,
) ([]models.ProposalTask, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProposalTask
	result := db.Where(
		"task_index >= ? AND task_index < ?",
		start,
		end,
	).Order("task_index").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetFirstPendingTask returns the unconsumed task with the lowest index, or
// nil when every task has been consumed
func (s *Store) GetFirstPendingTask(
	txn types.Txn,
) (*models.ProposalTask, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpTask models.ProposalTask
	result := db.Where("consumed = ?", false).Order("task_index").First(&tmpTask)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpTask, nil
}

// SetTaskConsumed marks the task at the given index as consumed
func (s *Store) SetTaskConsumed(
	taskIndex uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.ProposalTask{}).
		Where("task_index = ?", taskIndex).
		Update("consumed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
