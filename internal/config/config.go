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
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/govern/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "govern.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultTaskBatchSize   = 100
	DefaultProposalFee     = "100e18"
	DefaultEngineAddress   = "0x000000000000000000000000000000000000Fa00"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	BlobPlugin       string `yaml:"blobPlugin"       envconfig:"DATABASE_BLOB_PLUGIN"`
	MetadataPlugin   string `yaml:"metadataPlugin"   envconfig:"DATABASE_METADATA_PLUGIN"`
	DatabasePath     string `yaml:"databasePath"                                              split_words:"true"`
	BindAddr         string `yaml:"bindAddr"                                                  split_words:"true"`
	ApiListenAddress string `yaml:"apiListenAddress"                                          split_words:"true"`
	TlsCertFilePath  string `yaml:"tlsCertFilePath"  envconfig:"TLS_CERT_FILE_PATH"`
	TlsKeyFilePath   string `yaml:"tlsKeyFilePath"   envconfig:"TLS_KEY_FILE_PATH"`
	// ProposalFee is the exact fee CreateProposal requires, in base units.
	// Scientific notation is accepted
	ProposalFee string `yaml:"proposalFee"   split_words:"true"`
	// EngineAddress is the identity proposals execute as. It is the
	// governance authority of the network parameters
	EngineAddress string `yaml:"engineAddress" split_words:"true"`
	// OwnerAddress may also change network parameters. Empty disables it
	OwnerAddress  string `yaml:"ownerAddress"  split_words:"true"`
	TemplatesFile string `yaml:"templatesFile" split_words:"true"`
	StakeGenesis  string `yaml:"stakeGenesis"  split_words:"true"`
	// EventJournal is a file that receives governance events as JSON lines
	EventJournal string `yaml:"eventJournal" split_words:"true"`
	// TaskInterval enables the background task runner. Empty or "0s"
	// leaves task handling to external callers
	TaskInterval      string `yaml:"taskInterval"      split_words:"true"`
	ShutdownTimeout   string `yaml:"shutdownTimeout"   split_words:"true"`
	TaskBatchSize     uint64 `yaml:"taskBatchSize"     split_words:"true"`
	ContractCacheSize int    `yaml:"contractCacheSize" split_words:"true"`
	MetricsPort       uint   `yaml:"metricsPort"       split_words:"true"`
	DevMode           bool   `yaml:"devMode"           split_words:"true"`
	Tracing           bool   `yaml:"tracing"`
	TracingStdout     bool   `yaml:"tracingStdout"     split_words:"true"`
}

// ParsedTaskInterval returns the task runner interval, or 0 when the runner
// is disabled
func (c *Config) ParsedTaskInterval() (time.Duration, error) {
	if c.TaskInterval == "" {
		return 0, nil
	}
	ret, err := time.ParseDuration(c.TaskInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid task interval: %w", err)
	}
	if ret < 0 {
		return 0, fmt.Errorf("invalid task interval: %s is negative", c.TaskInterval)
	}
	return ret, nil
}

// ParsedShutdownTimeout returns the graceful shutdown timeout
func (c *Config) ParsedShutdownTimeout() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 30 * time.Second, nil
	}
	ret, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return ret, nil
}

func defaultConfig() *Config {
	return &Config{
		BlobPlugin:       DefaultBlobPlugin,
		MetadataPlugin:   DefaultMetadataPlugin,
		DatabasePath:     ".govern",
		BindAddr:         "0.0.0.0",
		ApiListenAddress: ":8080",
		MetricsPort:      12799,
		ProposalFee:      DefaultProposalFee,
		EngineAddress:    DefaultEngineAddress,
		TaskBatchSize:    DefaultTaskBatchSize,
		ShutdownTimeout:  DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.govern/govern.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".govern", "govern.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/govern/govern.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/govern/govern.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// First unmarshal into temp config to handle plugin sections
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			err = yaml.Unmarshal(configBytes, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				if name, ok := pluginSection(tempCfg.Database.Blob); ok {
					globalConfig.BlobPlugin = name
				}
				mergePluginConfig(pluginConfig, "blob", tempCfg.Database.Blob)
			}
			if tempCfg.Database.Metadata != nil {
				if name, ok := pluginSection(tempCfg.Database.Metadata); ok {
					globalConfig.MetadataPlugin = name
				}
				mergePluginConfig(pluginConfig, "metadata", tempCfg.Database.Metadata)
			}
		}
		if len(pluginConfig) > 0 {
			err = plugin.ProcessConfig(pluginConfig)
			if err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("govern", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if _, err := globalConfig.ParsedTaskInterval(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.ParsedShutdownTimeout(); err != nil {
		return nil, err
	}
	if globalConfig.TaskBatchSize == 0 {
		globalConfig.TaskBatchSize = DefaultTaskBatchSize
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// pluginSection extracts and removes the "plugin" key of a database section
func pluginSection(section map[string]any) (string, bool) {
	val, ok := section["plugin"]
	if !ok {
		return "", false
	}
	name, ok := val.(string)
	if !ok {
		return "", false
	}
	delete(section, "plugin")
	return name, true
}

func mergePluginConfig(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]any,
) {
	typeConfig := make(map[string]map[string]any)
	for k, v := range section {
		switch val := v.(type) {
		case map[string]any:
			typeConfig[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			typeConfig[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	// Merge with existing config instead of overwriting
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = typeConfig
	} else {
		maps.Copy(pluginConfig[pluginType], typeConfig)
	}
}
