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
	"errors"
	"testing"

	"github.com/blinklabs-io/govern/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionDests struct {
	dataDir   string
	cacheSize uint64
	gc        bool
	workers   int
}

func registerOptionPlugin(t *testing.T, dests *optionDests) string {
	t.Helper()
	name := "options-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return &stubStore{} },
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: ".govern",
				Dest:         &dests.dataDir,
			},
			{
				Name:         "cache-size",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(10),
				Dest:         &dests.cacheSize,
			},
			{
				Name:         "gc",
				Type:         plugin.PluginOptionTypeBool,
				DefaultValue: true,
				Dest:         &dests.gc,
			},
			{
				Name:         "workers",
				Type:         plugin.PluginOptionTypeInt,
				DefaultValue: 2,
				Dest:         &dests.workers,
			},
		},
	})
	return name
}

func TestSetPluginOption(t *testing.T) {
	var dests optionDests
	name := registerOptionPlugin(t, &dests)

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "data-dir", ""))
	assert.Empty(t, dests.dataDir)

	// Wrong type
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "data-dir", 123))

	// Unknown options are ignored
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "does-not-exist", "x"))

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "cache-size", uint64(100000000)))
	assert.Equal(t, uint64(100000000), dests.cacheSize)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "cache-size", 5))
	assert.Equal(t, uint64(5), dests.cacheSize)
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "cache-size", -5))

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "gc", true))
	assert.True(t, dests.gc)

	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "data-dir", "x"))
}

func TestProcessConfig(t *testing.T) {
	var dests optionDests
	name := registerOptionPlugin(t, &dests)
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			name: {
				"data-dir":   "/tmp/govern",
				"cache-size": 42,
				"gc":         false,
				"workers":    7,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/govern", dests.dataDir)
	assert.Equal(t, uint64(42), dests.cacheSize)
	assert.False(t, dests.gc)
	assert.Equal(t, 7, dests.workers)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			name: {"gc": "yes"},
		},
	})
	require.Error(t, err)
}

func TestProcessEnvVars(t *testing.T) {
	var dests optionDests
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               "envtest",
		NewFromOptionsFunc: func() plugin.Plugin { return &stubStore{} },
		Options: []plugin.PluginOption{
			{
				Name: "data-dir",
				Type: plugin.PluginOptionTypeString,
				Dest: &dests.dataDir,
			},
			{
				Name: "cache-size",
				Type: plugin.PluginOptionTypeUint,
				Dest: &dests.cacheSize,
			},
		},
	})
	t.Setenv("GOVERN_BLOB_ENVTEST_DATA_DIR", "/var/lib/govern")
	t.Setenv("GOVERN_BLOB_ENVTEST_CACHE_SIZE", "1024")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "/var/lib/govern", dests.dataDir)
	assert.Equal(t, uint64(1024), dests.cacheSize)

	t.Setenv("GOVERN_BLOB_ENVTEST_CACHE_SIZE", "lots")
	require.Error(t, plugin.ProcessEnvVars())
}

func TestPopulateCmdlineOptions(t *testing.T) {
	var dests optionDests
	name := registerOptionPlugin(t, &dests)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	require.NoError(t, fs.Parse([]string{
		"--metadata-" + name + "-data-dir=/srv/govern",
		"--metadata-" + name + "-workers=3",
	}))
	assert.Equal(t, "/srv/govern", dests.dataDir)
	assert.Equal(t, 3, dests.workers)
	assert.True(t, dests.gc)
}

func TestStartPlugin(t *testing.T) {
	_, err := plugin.StartPlugin(plugin.PluginTypeBlob, "missing-"+t.Name())
	require.Error(t, err)

	startErr := errors.New("boom")
	name := "error-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: name,
		NewFromOptionsFunc: func() plugin.Plugin {
			return plugin.NewErrorPlugin(startErr)
		},
	})
	_, err = plugin.StartPlugin(plugin.PluginTypeBlob, name)
	require.ErrorIs(t, err, startErr)
}
