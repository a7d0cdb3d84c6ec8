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
package template_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/proposal/execlogging"
	"github.com/blinklabs-io/govern/proposal/plaintext"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	anotherOwner = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type testEnv struct {
	db        *database.Database
	directory *proposal.Directory
	registry  *template.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	dir, err := proposal.NewDirectory(proposal.DirectoryConfig{Database: db})
	require.NoError(t, err)
	dir.RegisterKind(plaintext.Kind, plaintext.New)
	dir.RegisterKind(execlogging.Kind, execlogging.New)
	registry, err := template.NewRegistry(
		template.RegistryConfig{Database: db, Directory: dir},
	)
	require.NoError(t, err)
	return &testEnv{db: db, directory: dir, registry: registry}
}

func ratio(t *testing.T, val string) *big.Int {
	t.Helper()
	ret, err := fixedpoint.ParseRatio(val)
	require.NoError(t, err)
	return ret
}

func baseTemplate(t *testing.T) template.Template {
	return template.Template{
		ID:                1,
		Name:              "plaintext",
		ExecutableKind:    proposal.ExecTypeNonExecutable,
		MinVotes:          ratio(t, "0.5"),
		MinAgreement:      ratio(t, "0.6"),
		OpinionScales:     []uint64{0, 1, 2, 3, 4},
		MinVotingDuration: 60,
		MaxVotingDuration: 3600,
		MaxStartDelay:     600,
	}
}

func (e *testEnv) deploy(
	t *testing.T,
	owner common.Address,
	kind string,
	params string,
) common.Address {
	t.Helper()
	var addr common.Address
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		addr, err = e.directory.Deploy(
			context.Background(),
			txn,
			owner,
			kind,
			json.RawMessage(params),
		)
		return err
	})
	require.NoError(t, err)
	return addr
}

func TestAddTemplateAndExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exists, err := env.registry.Exists(ctx, nil, 1)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, env.registry.AddTemplate(ctx, nil, baseTemplate(t)))
	exists, err = env.registry.Exists(ctx, nil, 1)
	require.NoError(t, err)
	assert.True(t, exists)
	err = env.registry.AddTemplate(ctx, nil, baseTemplate(t))
	require.ErrorIs(t, err, template.ErrTemplateExists)
	got, err := env.registry.Get(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.MaxScale())
	assert.True(t, got.HasScale(3))
	assert.False(t, got.HasScale(5))
	assert.NotZero(t, got.AddedAt)
	_, err = env.registry.Get(ctx, nil, 2)
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
	list, err := env.registry.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "plaintext", list[0].Name)
}

func TestAddTemplateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testDefs := []struct {
		name   string
		modify func(*template.Template)
		err    error
	}{
		{
			name:   "empty scales",
			modify: func(tmpl *template.Template) { tmpl.OpinionScales = nil },
			err:    template.ErrInvalidScales,
		},
		{
			name:   "scales not starting at zero",
			modify: func(tmpl *template.Template) { tmpl.OpinionScales = []uint64{1, 2} },
			err:    template.ErrInvalidScales,
		},
		{
			name:   "scales not increasing",
			modify: func(tmpl *template.Template) { tmpl.OpinionScales = []uint64{0, 2, 2} },
			err:    template.ErrInvalidScales,
		},
		{
			name:   "minVotes above one",
			modify: func(tmpl *template.Template) { tmpl.MinVotes = ratio(t, "1.1") },
			err:    template.ErrInvalidRatio,
		},
		{
			name:   "negative minAgreement",
			modify: func(tmpl *template.Template) { tmpl.MinAgreement = big.NewInt(-1) },
			err:    template.ErrInvalidRatio,
		},
		{
			name: "durations reversed",
			modify: func(tmpl *template.Template) {
				tmpl.MinVotingDuration = 100
				tmpl.MaxVotingDuration = 99
			},
			err: template.ErrInvalidDuration,
		},
		{
			name:   "delays reversed",
			modify: func(tmpl *template.Template) { tmpl.MinStartDelay = 601 },
			err:    template.ErrInvalidDelay,
		},
		{
			name: "unknown verifier",
			modify: func(tmpl *template.Template) {
				tmpl.Verifier = template.VerifierAddress("missing")
			},
			err: template.ErrUnknownVerifier,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			tmpl := baseTemplate(t)
			testDef.modify(&tmpl)
			err := env.registry.AddTemplate(ctx, nil, tmpl)
			require.ErrorIs(t, err, testDef.err)
		})
	}
	exists, err := env.registry.Exists(ctx, nil, 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reference, err := plaintext.New(json.RawMessage(`{"options":["x"]}`))
	require.NoError(t, err)
	verifiers := env.registry.Verifiers()
	typeAddr := verifiers.Register("plaintext", template.NewTypeMatcher(reference))
	ownedAddr := verifiers.Register(
		"owned-plaintext",
		template.All{
			template.NewTypeMatcher(reference),
			template.NewOwnedBy(env.directory, testOwner),
		},
	)
	tmpl := baseTemplate(t)
	tmpl.Verifier = typeAddr
	require.NoError(t, env.registry.AddTemplate(ctx, nil, tmpl))
	tmpl.ID = 2
	tmpl.Verifier = ownedAddr
	require.NoError(t, env.registry.AddTemplate(ctx, nil, tmpl))

	good := env.deploy(t, testOwner, plaintext.Kind, `{"templateId":1,"options":["a"]}`)
	wrongKind := env.deploy(t, testOwner, execlogging.Kind, `{"templateId":1,"options":["a"]}`)
	wrongType := env.deploy(t, testOwner, plaintext.Kind, `{"templateId":5,"options":["a"]}`)
	owned := env.deploy(t, testOwner, plaintext.Kind, `{"templateId":2,"options":["a"]}`)
	notOwned := env.deploy(t, anotherOwner, plaintext.Kind, `{"templateId":2,"options":["a"]}`)

	testDefs := []struct {
		name       string
		templateID uint64
		addr       common.Address
		expected   bool
	}{
		{name: "match", templateID: 1, addr: good, expected: true},
		{name: "different implementation", templateID: 1, addr: wrongKind},
		{name: "different template id", templateID: 1, addr: wrongType},
		{name: "unknown template", templateID: 9, addr: good},
		{name: "owned", templateID: 2, addr: owned, expected: true},
		{name: "other owner", templateID: 2, addr: notOwned},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			ok, err := env.registry.Verify(ctx, nil, testDef.templateID, testDef.addr)
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, ok)
		})
	}
	// An unresolvable contract is a malformed call
	_, err = env.registry.Verify(ctx, nil, 1, common.HexToAddress("0x1234"))
	require.ErrorIs(t, err, proposal.ErrContractNotFound)
}

func TestCheckParams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.registry.AddTemplate(ctx, nil, baseTemplate(t)))
	valid := template.Params{
		ExecutableKind:    proposal.ExecTypeNonExecutable,
		MinVotes:          ratio(t, "0.5"),
		MinAgreement:      ratio(t, "0.7"),
		StartDelay:        600,
		MinVotingDuration: 60,
		MaxVotingDuration: 3600,
	}
	ok, err := env.registry.CheckParams(ctx, nil, 1, valid)
	require.NoError(t, err)
	assert.True(t, ok)
	testDefs := []struct {
		name   string
		modify func(*template.Params)
	}{
		{name: "exec kind", modify: func(p *template.Params) { p.ExecutableKind = proposal.ExecTypeCall }},
		{name: "minVotes below template", modify: func(p *template.Params) { p.MinVotes = ratio(t, "0.4") }},
		{name: "minVotes above one", modify: func(p *template.Params) { p.MinVotes = ratio(t, "1.01") }},
		{name: "minAgreement below template", modify: func(p *template.Params) { p.MinAgreement = ratio(t, "0.5") }},
		{name: "start delay too long", modify: func(p *template.Params) { p.StartDelay = 601 }},
		{name: "min duration too short", modify: func(p *template.Params) { p.MinVotingDuration = 59 }},
		{name: "max duration too long", modify: func(p *template.Params) { p.MaxVotingDuration = 3601 }},
		{
			name: "durations reversed",
			modify: func(p *template.Params) {
				p.MinVotingDuration = 200
				p.MaxVotingDuration = 100
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := valid
			testDef.modify(&params)
			ok, err := env.registry.CheckParams(ctx, nil, 1, params)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
	ok, err = env.registry.CheckParams(ctx, nil, 2, valid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBootstrap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reference, err := plaintext.New(json.RawMessage(`{}`))
	require.NoError(t, err)
	env.registry.Verifiers().Register("plaintext", template.NewTypeMatcher(reference))
	file, err := template.ParseFile([]byte(`
templates:
  - id: 1
    name: plaintext
    verifier: plaintext
    executableKind: non-executable
    minVotes: "0.5"
    minAgreement: "0.6"
    opinionScales: [0, 1, 2, 3, 4]
    minVotingDuration: 60
    maxVotingDuration: 3600
  - id: 2
    name: parameters
    executableKind: delegatecall
    minVotes: "0.66"
    opinionScales: [0, 1]
    maxVotingDuration: 60
    allowEarlyResolution: true
`))
	require.NoError(t, err)
	added, err := env.registry.Bootstrap(ctx, nil, file)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	// Already registered templates are skipped
	added, err = env.registry.Bootstrap(ctx, nil, file)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	tmpl, err := env.registry.Get(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, template.VerifierAddress("plaintext"), tmpl.Verifier)
	tmpl, err = env.registry.Get(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, proposal.ExecTypeDelegatecall, tmpl.ExecutableKind)
	assert.True(t, tmpl.AllowEarlyResolution)
	assert.Equal(t, "660000000000000000", tmpl.MinVotes.String())

	bad, err := template.ParseFile([]byte("templates:\n  - id: 3\n    verifier: nope\n    opinionScales: [0]\n"))
	require.NoError(t, err)
	_, err = env.registry.Bootstrap(ctx, nil, bad)
	require.ErrorIs(t, err, template.ErrUnknownVerifier)
}
