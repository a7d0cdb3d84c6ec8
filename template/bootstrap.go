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
package template

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/sops"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// FileTemplate is the YAML form of a template. Verifier is either a
// registered verifier name or a hex address
type FileTemplate struct {
	Name                 string   `yaml:"name"`
	Verifier             string   `yaml:"verifier"`
	ExecutableKind       string   `yaml:"executableKind"`
	MinVotes             string   `yaml:"minVotes"`
	MinAgreement         string   `yaml:"minAgreement"`
	OpinionScales        []uint64 `yaml:"opinionScales"`
	ID                   uint64   `yaml:"id"`
	MinVotingDuration    uint64   `yaml:"minVotingDuration"`
	MaxVotingDuration    uint64   `yaml:"maxVotingDuration"`
	MinStartDelay        uint64   `yaml:"minStartDelay"`
	MaxStartDelay        uint64   `yaml:"maxStartDelay"`
	AllowEarlyResolution bool     `yaml:"allowEarlyResolution"`
}

type File struct {
	Templates []FileTemplate `yaml:"templates"`
}

// ParseFile decodes a template file, decrypting it first when it carries
// SOPS metadata
func ParseFile(data []byte) (*File, error) {
	if sops.IsEncrypted(data) {
		var err error
		data, err = sops.Decrypt(data, "yaml")
		if err != nil {
			return nil, err
		}
	}
	ret := &File{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("parse template file: %w", err)
	}
	return ret, nil
}

// LoadFile reads and parses a template file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(data)
}

// Template converts a file entry, resolving the verifier reference through
// the given directory
func (f FileTemplate) Template(verifiers *VerifierDirectory) (Template, error) {
	ret := Template{
		ID:                   f.ID,
		Name:                 f.Name,
		OpinionScales:        f.OpinionScales,
		MinVotingDuration:    f.MinVotingDuration,
		MaxVotingDuration:    f.MaxVotingDuration,
		MinStartDelay:        f.MinStartDelay,
		MaxStartDelay:        f.MaxStartDelay,
		AllowEarlyResolution: f.AllowEarlyResolution,
	}
	var err error
	if ret.ExecutableKind, err = proposal.ParseExecType(f.ExecutableKind); err != nil {
		return Template{}, err
	}
	if ret.MinVotes, err = parseFileRatio(f.MinVotes); err != nil {
		return Template{}, fmt.Errorf("minVotes: %w", err)
	}
	if ret.MinAgreement, err = parseFileRatio(f.MinAgreement); err != nil {
		return Template{}, fmt.Errorf("minAgreement: %w", err)
	}
	switch {
	case f.Verifier == "":
	case strings.HasPrefix(f.Verifier, "0x"):
		if !common.IsHexAddress(f.Verifier) {
			return Template{}, fmt.Errorf("%w: %s", ErrInvalidReference, f.Verifier)
		}
		ret.Verifier = common.HexToAddress(f.Verifier)
	default:
		addr, ok := verifiers.Address(f.Verifier)
		if !ok {
			return Template{}, fmt.Errorf("%w: %s", ErrUnknownVerifier, f.Verifier)
		}
		ret.Verifier = addr
	}
	return ret, nil
}

// Bootstrap adds every template in the file that is not registered yet and
// returns the number added
func (r *Registry) Bootstrap(
	ctx context.Context,
	txn *database.Txn,
	file *File,
) (int, error) {
	added := 0
	for _, entry := range file.Templates {
		exists, err := r.Exists(ctx, txn, entry.ID)
		if err != nil {
			return added, err
		}
		if exists {
			r.logger.DebugContext(
				ctx,
				"template already registered, skipping",
				"component", "template",
				"template_id", entry.ID,
			)
			continue
		}
		tmpl, err := entry.Template(r.verifiers)
		if err != nil {
			return added, fmt.Errorf("template %d: %w", entry.ID, err)
		}
		if err := r.AddTemplate(ctx, txn, tmpl); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func parseFileRatio(val string) (*big.Int, error) {
	if val == "" {
		return new(big.Int), nil
	}
	return fixedpoint.ParseRatio(val)
}
