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
	"context"
	"encoding/json"

	"github.com/blinklabs-io/govern/database"
	"github.com/ethereum/go-ethereum/common"
)

// DeployContract deploys a proposal contract of a registered kind on behalf
// of owner. When verify is set the new contract must also pass its
// template's verifier, and the deployment is discarded otherwise
func (e *Engine) DeployContract(
	ctx context.Context,
	owner common.Address,
	kind string,
	params json.RawMessage,
	verify bool,
) (common.Address, error) {
	ctx, span := e.tracer.Start(ctx, "governance.DeployContract")
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return common.Address{}, err
	}
	defer release()
	var addr common.Address
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		addr, err = e.config.Directory.Deploy(ctx, txn, owner, kind, params)
		if err != nil {
			return err
		}
		if !verify {
			return nil
		}
		p, err := e.config.Directory.Resolve(ctx, txn, addr)
		if err != nil {
			return err
		}
		ok, err := e.config.Templates.Verify(ctx, txn, p.Type(), addr)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVerificationFailed
		}
		return nil
	})
	if err != nil {
		if addr != (common.Address{}) {
			e.config.Directory.Forget(addr)
		}
		span.RecordError(err)
		return common.Address{}, err
	}
	e.logger.InfoContext(
		ctx,
		"proposal contract deployed",
		"component", "governance",
		"address", addr.Hex(),
		"owner", owner.Hex(),
		"kind", kind,
	)
	return addr, nil
}
