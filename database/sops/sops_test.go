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
package sops_test

import (
	"testing"

	"github.com/blinklabs-io/govern/database/sops"
	"github.com/stretchr/testify/assert"
)

func TestIsEncrypted(t *testing.T) {
	assert.False(t, sops.IsEncrypted([]byte("templates:\n  - id: 1\n")))
	assert.True(t, sops.IsEncrypted([]byte("templates: ENC[AES256_GCM,data:abc]\nsops:\n  version: 3.11.0\n")))
}

func TestDecryptPlaintextFails(t *testing.T) {
	_, err := sops.Decrypt([]byte("templates: []\n"), "yaml")
	assert.Error(t, err)
}
