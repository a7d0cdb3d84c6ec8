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

package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/govern/database/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	tag string
}

func (s *stubStore) Start() error { return nil }
func (s *stubStore) Stop() error  { return nil }

func stubEntry(
	pluginType plugin.PluginType,
	name string,
	tag string,
) plugin.PluginEntry {
	return plugin.PluginEntry{
		Type:               pluginType,
		Name:               name,
		Description:        "stub " + tag,
		NewFromOptionsFunc: func() plugin.Plugin { return &stubStore{tag: tag} },
	}
}

func entriesNamed(entries []plugin.PluginEntry, name string) []plugin.PluginEntry {
	var ret []plugin.PluginEntry
	for _, entry := range entries {
		if entry.Name == name {
			ret = append(ret, entry)
		}
	}
	return ret
}

func TestRegisterAndLookup(t *testing.T) {
	name := "stub-" + t.Name()
	plugin.Register(stubEntry(plugin.PluginTypeBlob, name, "first"))

	p := plugin.GetPlugin(plugin.PluginTypeBlob, name)
	require.NotNil(t, p)
	stub, ok := p.(*stubStore)
	require.True(t, ok, "unexpected plugin type %T", p)
	assert.Equal(t, "first", stub.tag)

	// Each lookup builds a fresh instance
	assert.NotSame(t, p, plugin.GetPlugin(plugin.PluginTypeBlob, name))

	assert.Len(t, entriesNamed(plugin.GetPlugins(plugin.PluginTypeBlob), name), 1)
	assert.Empty(t, entriesNamed(plugin.GetPlugins(plugin.PluginTypeMetadata), name))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, name))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "missing-"+t.Name()))
}

func TestRegisterReplacesSameTypeAndName(t *testing.T) {
	name := "stub-" + t.Name()
	plugin.Register(stubEntry(plugin.PluginTypeBlob, name, "old"))
	plugin.Register(stubEntry(plugin.PluginTypeBlob, name, "new"))

	entries := entriesNamed(plugin.GetPlugins(plugin.PluginTypeBlob), name)
	require.Len(t, entries, 1)
	assert.Equal(t, "stub new", entries[0].Description)

	p := plugin.GetPlugin(plugin.PluginTypeBlob, name)
	require.IsType(t, &stubStore{}, p)
	assert.Equal(t, "new", p.(*stubStore).tag)
}

func TestRegisterKeepsTypesApart(t *testing.T) {
	name := "stub-" + t.Name()
	plugin.Register(stubEntry(plugin.PluginTypeBlob, name, "blob"))
	plugin.Register(stubEntry(plugin.PluginTypeMetadata, name, "metadata"))

	require.Len(t, entriesNamed(plugin.GetPlugins(plugin.PluginTypeBlob), name), 1)
	require.Len(t, entriesNamed(plugin.GetPlugins(plugin.PluginTypeMetadata), name), 1)

	blob := plugin.GetPlugin(plugin.PluginTypeBlob, name)
	require.IsType(t, &stubStore{}, blob)
	assert.Equal(t, "blob", blob.(*stubStore).tag)

	meta := plugin.GetPlugin(plugin.PluginTypeMetadata, name)
	require.IsType(t, &stubStore{}, meta)
	assert.Equal(t, "metadata", meta.(*stubStore).tag)
}

func TestDiscardLogger(t *testing.T) {
	var logger plugin.Logger = plugin.DiscardLogger()
	assert.NotPanics(t, func() {
		logger.Info("dropped", "component", "database")
		logger.Error("dropped")
	})
}
