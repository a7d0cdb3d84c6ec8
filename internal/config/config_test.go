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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig() {
	globalConfig = defaultConfig()
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "govern.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfigFile(t, `
databasePath: "/var/lib/govern"
bindAddr: "127.0.0.1"
apiListenAddress: "127.0.0.1:9000"
metricsPort: 8088
tlsCertFilePath: "cert1.pem"
tlsKeyFilePath: "key1.pem"
proposalFee: "5e18"
engineAddress: "0x00000000000000000000000000000000000000e0"
ownerAddress: "0x00000000000000000000000000000000000000aa"
templatesFile: "templates.yaml"
stakeGenesis: "stake.yaml"
eventJournal: "events.jsonl"
taskInterval: "10s"
taskBatchSize: 25
contractCacheSize: 64
devMode: true
tracing: true
`)
	expected := &Config{
		BlobPlugin:        DefaultBlobPlugin,
		MetadataPlugin:    DefaultMetadataPlugin,
		DatabasePath:      "/var/lib/govern",
		BindAddr:          "127.0.0.1",
		ApiListenAddress:  "127.0.0.1:9000",
		MetricsPort:       8088,
		TlsCertFilePath:   "cert1.pem",
		TlsKeyFilePath:    "key1.pem",
		ProposalFee:       "5e18",
		EngineAddress:     "0x00000000000000000000000000000000000000e0",
		OwnerAddress:      "0x00000000000000000000000000000000000000aa",
		TemplatesFile:     "templates.yaml",
		StakeGenesis:      "stake.yaml",
		EventJournal:      "events.jsonl",
		TaskInterval:      "10s",
		TaskBatchSize:     25,
		ContractCacheSize: 64,
		ShutdownTimeout:   DefaultShutdownTimeout,
		DevMode:           true,
		Tracing:           true,
	}
	actual, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	interval, err := actual.ParsedTaskInterval()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, interval)
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	interval, err := cfg.ParsedTaskInterval()
	require.NoError(t, err)
	assert.Zero(t, interval)
	timeout, err := cfg.ParsedShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoad_ConfigSection(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfigFile(t, `
config:
  devMode: true
  proposalFee: "1"
database:
  blob:
    plugin: badger
  metadata:
    plugin: sqlite
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "1", cfg.ProposalFee)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
	// Untouched values keep their defaults
	assert.Equal(t, ":8080", cfg.ApiListenAddress)
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GOVERN_PROPOSAL_FEE", "42")
	t.Setenv("GOVERN_DEV_MODE", "true")
	t.Setenv("GOVERN_TASK_INTERVAL", "1m")
	t.Setenv("GOVERN_DATABASE_METADATA_PLUGIN", "postgres")
	t.Setenv("TLS_CERT_FILE_PATH", "cert.pem")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "42", cfg.ProposalFee)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "1m", cfg.TaskInterval)
	assert.Equal(t, "postgres", cfg.MetadataPlugin)
	assert.Equal(t, "cert.pem", cfg.TlsCertFilePath)
}

func TestLoad_InvalidValues(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{"bad yaml", "devMode: [\n"},
		{"bad interval", `taskInterval: "soon"`},
		{"negative interval", `taskInterval: "-1s"`},
		{"bad shutdown timeout", `shutdownTimeout: "later"`},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			resetGlobalConfig()
			_, err := LoadConfig(writeConfigFile(t, testDef.content))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	resetGlobalConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "error reading config file")
}
