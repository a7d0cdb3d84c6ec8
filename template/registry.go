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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
)

type RegistryConfig struct {
	Database  *database.Database
	Directory *proposal.Directory
	Verifiers *VerifierDirectory
	Logger    *slog.Logger
	Clock     clock.Clock
}

// Registry stores proposal templates and verifies proposals against them.
// All methods take the storage transaction of the calling operation
type Registry struct {
	db        *database.Database
	directory *proposal.Directory
	verifiers *VerifierDirectory
	logger    *slog.Logger
	clock     clock.Clock
}

func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	if cfg.Directory == nil {
		return nil, errors.New("no contract directory provided")
	}
	if cfg.Verifiers == nil {
		cfg.Verifiers = NewVerifierDirectory()
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Registry{
		db:        cfg.Database,
		directory: cfg.Directory,
		verifiers: cfg.Verifiers,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
	}, nil
}

// Verifiers returns the verifier directory used by the registry
func (r *Registry) Verifiers() *VerifierDirectory {
	return r.verifiers
}

// AddTemplate validates and stores a new template
func (r *Registry) AddTemplate(
	ctx context.Context,
	txn *database.Txn,
	tmpl Template,
) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}
	if tmpl.Verifier != (common.Address{}) {
		if _, ok := r.verifiers.Lookup(tmpl.Verifier); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVerifier, tmpl.Verifier.Hex())
		}
	}
	exists, err := r.Exists(ctx, txn, tmpl.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %d", ErrTemplateExists, tmpl.ID)
	}
	if tmpl.AddedAt == 0 {
		tmpl.AddedAt = uint64(r.clock.Now().Unix()) //nolint:gosec
	}
	if err := r.db.AddTemplate(tmpl.toModel(), txn); err != nil {
		return err
	}
	r.logger.InfoContext(
		ctx,
		"added proposal template",
		"component", "template",
		"template_id", tmpl.ID,
		"name", tmpl.Name,
	)
	return nil
}

// Exists reports whether a template with the given ID is registered
func (r *Registry) Exists(
	_ context.Context,
	txn *database.Txn,
	id uint64,
) (bool, error) {
	tmpl, err := r.db.GetTemplate(id, txn)
	if err != nil {
		return false, err
	}
	return tmpl != nil, nil
}

// Get returns a template, or ErrTemplateNotFound
func (r *Registry) Get(
	_ context.Context,
	txn *database.Txn,
	id uint64,
) (Template, error) {
	tmpl, err := r.db.GetTemplate(id, txn)
	if err != nil {
		return Template{}, err
	}
	if tmpl == nil {
		return Template{}, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}
	return FromModel(tmpl), nil
}

// List returns all templates ordered by ID
func (r *Registry) List(
	_ context.Context,
	txn *database.Txn,
) ([]Template, error) {
	tmpls, err := r.db.GetTemplates(txn)
	if err != nil {
		return nil, err
	}
	ret := make([]Template, 0, len(tmpls))
	for i := range tmpls {
		ret = append(ret, FromModel(&tmpls[i]))
	}
	return ret, nil
}

// Verify asks the template's verifier whether the contract at addr has the
// expected shape. An unknown template or a mismatch yields false. Errors are
// returned only when the contract cannot be resolved, the template references
// an unknown verifier, or storage fails
func (r *Registry) Verify(
	ctx context.Context,
	txn *database.Txn,
	templateID uint64,
	addr common.Address,
) (bool, error) {
	tmpl, err := r.db.GetTemplate(templateID, txn)
	if err != nil {
		return false, err
	}
	if tmpl == nil {
		return false, nil
	}
	candidate, err := r.directory.Resolve(ctx, txn, addr)
	if err != nil {
		return false, err
	}
	if candidate.Type() != templateID {
		return false, nil
	}
	verifierAddr := common.BytesToAddress(tmpl.Verifier)
	if verifierAddr == (common.Address{}) {
		return true, nil
	}
	verifier, ok := r.verifiers.Lookup(verifierAddr)
	if !ok {
		return false, fmt.Errorf(
			"%w: template %d references %s",
			ErrUnknownVerifier,
			templateID,
			verifierAddr.Hex(),
		)
	}
	return verifier.Verify(ctx, txn, addr, candidate)
}

// CheckParams reports whether the declared parameters lie inside the
// template's ranges. An unknown template yields false
func (r *Registry) CheckParams(
	_ context.Context,
	txn *database.Txn,
	templateID uint64,
	params Params,
) (bool, error) {
	tmpl, err := r.db.GetTemplate(templateID, txn)
	if err != nil {
		return false, err
	}
	if tmpl == nil {
		return false, nil
	}
	return FromModel(tmpl).Check(params), nil
}
