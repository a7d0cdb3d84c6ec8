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
package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithOptionsDefaults(t *testing.T) {
	m, err := NewWithOptions()
	assert.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(5432), m.port)
	assert.Equal(t, "postgres", m.user)
	assert.Equal(t, "govern", m.database)
	assert.Equal(t, "disable", m.sslMode)
	assert.NotNil(t, m.logger)
	// Close before Start is a no-op
	assert.NoError(t, m.Close())
}

func TestBuildDSN(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db.example.com"),
		WithPort(6543),
		WithUser("gov"),
		WithPassword("secret"),
		WithDatabase("governance"),
		WithSSLMode("require"),
		WithTimeZone("UTC"),
	)
	assert.NoError(t, err)
	assert.Equal(
		t,
		"host=db.example.com user=gov password=secret dbname=governance port=6543 sslmode=require TimeZone=UTC",
		m.buildDSN(),
	)
}

func TestBuildDSNOverride(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("ignored"),
		WithDSN("  postgres://gov@localhost/governance  "),
	)
	assert.NoError(t, err)
	assert.Equal(t, "postgres://gov@localhost/governance", m.buildDSN())
}
