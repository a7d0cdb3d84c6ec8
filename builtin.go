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

package govern

import (
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/proposal/execlogging"
	"github.com/blinklabs-io/govern/proposal/netparam"
	"github.com/blinklabs-io/govern/proposal/plaintext"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common"
)

// OwnerVerifierName is the verifier that accepts contracts deployed by the
// configured owner
const OwnerVerifierName = "owner"

var builtinKinds = []struct {
	kind      string
	factory   proposal.Factory
	reference string
}{
	{plaintext.Kind, plaintext.New, `{}`},
	{execlogging.Kind, execlogging.New, `{}`},
	{netparam.Kind, netparam.New, `{"parameter":"reference"}`},
}

// registerBuiltins registers the built-in proposal kinds and a type-matching
// verifier for each of them under the kind name
func registerBuiltins(
	dir *proposal.Directory,
	verifiers *template.VerifierDirectory,
	owner common.Address,
) error {
	for _, builtin := range builtinKinds {
		dir.RegisterKind(builtin.kind, builtin.factory)
		reference, err := builtin.factory(json.RawMessage(builtin.reference))
		if err != nil {
			return fmt.Errorf("reference %s contract: %w", builtin.kind, err)
		}
		verifiers.Register(builtin.kind, template.NewTypeMatcher(reference))
	}
	if owner != (common.Address{}) {
		verifiers.Register(OwnerVerifierName, template.NewOwnedBy(dir, owner))
	}
	return nil
}
