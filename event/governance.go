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
package event

import "time"

const (
	ProposalCreatedEventType  = EventType("governance.proposal.created")
	VoteCastEventType         = EventType("governance.vote.cast")
	VoteCancelledEventType    = EventType("governance.vote.cancelled")
	ProposalResolvedEventType = EventType("governance.proposal.resolved")
	ProposalFailedEventType   = EventType("governance.proposal.failed")
	ProposalExecutedEventType = EventType("governance.proposal.executed")
	ParameterChangedEventType = EventType("governance.parameter.changed")
)

// GovernanceEventTypes returns every event type published by the governance
// engine
func GovernanceEventTypes() []EventType {
	return []EventType{
		ProposalCreatedEventType,
		VoteCastEventType,
		VoteCancelledEventType,
		ProposalResolvedEventType,
		ProposalFailedEventType,
		ProposalExecutedEventType,
		ParameterChangedEventType,
	}
}

// ProposalCreatedEvent is emitted after a proposal has been stored
type ProposalCreatedEvent struct {
	VotingStartTime  time.Time
	VotingMinEndTime time.Time
	VotingMaxEndTime time.Time
	Contract         string
	Proposer         string
	Fee              string
	ProposalID       uint64
	TemplateID       uint64
	TaskIndex        uint64
	OptionCount      int
}

// VoteCastEvent is emitted when a vote is recorded. Replaced is set when the
// vote replaced an earlier vote by the same voter
type VoteCastEvent struct {
	Voter      string
	Weight     string
	Choices    []uint64
	ProposalID uint64
	Replaced   bool
}

// VoteCancelledEvent is emitted when a voter withdraws a vote
type VoteCancelledEvent struct {
	Voter      string
	Weight     string
	ProposalID uint64
}

// ProposalFinalizedEvent is the payload of the resolved and failed events
type ProposalFinalizedEvent struct {
	Votes      string
	ProposalID uint64
	TaskIndex  uint64
	// Winner is the winning option, or the maximum uint64 when there is none
	Winner uint64
	Status uint8
}

// ProposalExecutedEvent is emitted after a proposal's execution hook ran,
// whether or not it succeeded
type ProposalExecutedEvent struct {
	Error      string
	Mode       string
	Intents    []string
	ProposalID uint64
	Winner     uint64
	Success    bool
}

// ParameterChangedEvent is emitted when a network parameter changes
type ParameterChangedEvent struct {
	Name       string
	Value      string
	UpdatedBy  string
	ProposalID uint64
}
