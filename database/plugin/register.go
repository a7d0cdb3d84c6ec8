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

package plugin

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return ""
	}
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

// Register adds a plugin entry to the registry. Registering the same type and
// name twice replaces the earlier entry
func Register(pluginEntry PluginEntry) {
	for i, entry := range pluginEntries {
		if entry.Type == pluginEntry.Type && entry.Name == pluginEntry.Name {
			pluginEntries[i] = pluginEntry
			return
		}
	}
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered entries of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	return ret
}

// GetPlugin creates a new instance of the named plugin, or returns nil when
// no such plugin is registered
func GetPlugin(pluginType PluginType, name string) Plugin {
	for _, entry := range pluginEntries {
		if entry.Type == pluginType && entry.Name == name {
			return entry.NewFromOptionsFunc()
		}
	}
	return nil
}

// PopulateCmdlineOptions adds a flag for each plugin option, named
// <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, entry := range pluginEntries {
		for _, option := range entry.Options {
			if err := option.AddToFlagSet(
				fs,
				PluginTypeName(entry.Type),
				entry.Name,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin option values from a config file. The map is
// keyed by plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, entry := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(entry.Type)]
		if !ok {
			continue
		}
		entryConfig, ok := typeConfig[entry.Name]
		if !ok {
			continue
		}
		for _, option := range entry.Options {
			val, ok := entryConfig[option.Name]
			if !ok {
				continue
			}
			if err := option.ProcessConfig(val); err != nil {
				return fmt.Errorf(
					"%s plugin '%s': %w",
					PluginTypeName(entry.Type),
					entry.Name,
					err,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin option values from environment variables
// named GOVERN_<TYPE>_<PLUGIN>_<OPTION>, falling back to the option's
// CustomEnvVar
func ProcessEnvVars() error {
	for _, entry := range pluginEntries {
		for _, option := range entry.Options {
			envName := envVarName(
				PluginTypeName(entry.Type),
				entry.Name,
				option.Name,
			)
			val, ok := os.LookupEnv(envName)
			if !ok && option.CustomEnvVar != "" {
				envName = option.CustomEnvVar
				val, ok = os.LookupEnv(envName)
			}
			if !ok {
				continue
			}
			if err := option.ProcessEnvVar(val); err != nil {
				return fmt.Errorf("%s: %w", envName, err)
			}
		}
	}
	return nil
}

func envVarName(parts ...string) string {
	ret := "GOVERN"
	for _, part := range parts {
		ret += "_" + strings.ToUpper(strings.ReplaceAll(part, "-", "_"))
	}
	return ret
}
