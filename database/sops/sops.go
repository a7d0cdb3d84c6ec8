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

// Package sops decrypts SOPS-encrypted bootstrap files
package sops

import (
	"bytes"
	"fmt"

	"github.com/getsops/sops/v3/decrypt"
)

// IsEncrypted reports whether a YAML document carries SOPS metadata
func IsEncrypted(data []byte) bool {
	return bytes.Contains(data, []byte("\nsops:")) ||
		bytes.HasPrefix(data, []byte("sops:"))
}

// Decrypt decrypts a SOPS document in the given format (yaml, json, binary)
func Decrypt(data []byte, format string) ([]byte, error) {
	ret, err := decrypt.Data(data, format)
	if err != nil {
		return nil, fmt.Errorf("sops decrypt: %w", err)
	}
	return ret, nil
}
