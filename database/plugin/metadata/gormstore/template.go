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

// GetTemplate returns the template with the given ID, or nil if it does not exist
func (s *Store) GetTemplate(
	templateId uint64,
	txn types.Txn,
) (*models.ProposalTemplate, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpTemplate models.ProposalTemplate
	result := db.Where("template_id = ?", templateId).First(&tmpTemplate)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpTemplate, nil
}

// GetTemplates returns all templates ordered by template ID
func (s *Store) GetTemplates(
	txn types.Txn,
) ([]models.ProposalTemplate, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProposalTemplate
	if result := db.Order("template_id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddTemplate inserts a new template. Templates are immutable once added
func (s *Store) AddTemplate(
	tmpl *models.ProposalTemplate,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(tmpl).Error
}
