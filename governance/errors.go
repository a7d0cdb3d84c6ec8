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

import "errors"

var (
	ErrEmptyOptions = errors.New(
		"proposal options are empty - nothing to vote for",
	)
	ErrTooManyOptions           = errors.New("too many options")
	ErrWrongFee                 = errors.New("paid proposal fee is wrong")
	ErrVerificationFailed       = errors.New("proposal contract failed verification")
	ErrParamsVerificationFailed = errors.New("proposal parameters failed verification")
	ErrProposalNotFound         = errors.New("proposal with a given ID doesnt exist")
	ErrProposalNotActive        = errors.New("proposal isn't active")
	ErrVotingNotBegun           = errors.New("proposal voting hasn't begun")
	ErrVotingEnded              = errors.New("proposal voting has ended")
	ErrWrongChoiceCount         = errors.New("wrong number of choices")
	ErrWrongOpinionScale        = errors.New("wrong opinion scale")
	ErrZeroWeight               = errors.New("zero weight")
	ErrVoteNotFound             = errors.New("vote not found")
	ErrOptionOutOfRange         = errors.New("option index out of range")
	ErrTaskIndexOutOfRange      = errors.New("task index out of range")
	ErrTaskNotFound             = errors.New("task not found")
	ErrReentrantCall            = errors.New("reentrant call")
	ErrExecutionFailed          = errors.New("proposal execution failed")
)

var validationErrors = []error{
	ErrEmptyOptions,
	ErrTooManyOptions,
	ErrWrongFee,
	ErrVerificationFailed,
	ErrParamsVerificationFailed,
	ErrProposalNotActive,
	ErrVotingNotBegun,
	ErrVotingEnded,
	ErrWrongChoiceCount,
	ErrWrongOpinionScale,
	ErrZeroWeight,
	ErrOptionOutOfRange,
	ErrTaskIndexOutOfRange,
}

// IsValidationError reports whether err was caused by invalid input rather
// than by a storage or execution failure
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means a requested object does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProposalNotFound) ||
		errors.Is(err, ErrVoteNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}
