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

package models

// ProposalTask is a deferred finalization task. Tasks are append-only and
// addressed by their position in the queue
type ProposalTask struct {
	ID         uint   `gorm:"primarykey"`
	TaskIndex  uint64 `gorm:"uniqueIndex;not null"`
	ProposalID uint64 `gorm:"index;not null"`
	NotBefore  uint64 `gorm:"not null"`
	Consumed   bool   `gorm:"index;not null"`
}

func (ProposalTask) TableName() string {
	return "proposal_task"
}
