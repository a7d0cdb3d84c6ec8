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

package types_test

import (
	"database/sql"
	"database/sql/driver"
	"math/big"
	"reflect"
	"testing"

	"github.com/blinklabs-io/govern/database/types"
)

func TestTypesScanValue(t *testing.T) {
	testDefs := []struct {
		origValue     any
		expectedValue any
	}{
		{
			origValue: func(v types.Uint64) *types.Uint64 { return &v }(
				types.Uint64(123),
			),
			expectedValue: "123",
		},
		{
			origValue: func(v types.BigInt) *types.BigInt { return &v }(
				types.NewBigInt(
					new(big.Int).Mul(big.NewInt(6), big.NewInt(1e17)),
				),
			),
			expectedValue: "600000000000000000",
		},
	}
	var ok bool
	var tmpScanner sql.Scanner
	var tmpValuer driver.Valuer
	for _, testDef := range testDefs {
		tmpValuer, ok = testDef.origValue.(driver.Valuer)
		if !ok {
			t.Fatalf("test original value does not implement driver.Valuer")
		}
		valueOut, err := tmpValuer.Value()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(valueOut, testDef.expectedValue) {
			t.Fatalf(
				"did not get expected value from Value(): got %#v, expected %#v",
				valueOut,
				testDef.expectedValue,
			)
		}
		tmpScanner, ok = testDef.origValue.(sql.Scanner)
		if !ok {
			t.Fatalf(
				"test original value does not implement sql.Scanner (it must be a pointer)",
			)
		}
		if err := tmpScanner.Scan(valueOut); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(tmpScanner, testDef.origValue) {
			t.Fatalf(
				"did not get expected value after Scan(): got %#v, expected %#v",
				tmpScanner,
				testDef.origValue,
			)
		}
	}
}

func TestBigIntNil(t *testing.T) {
	var b types.BigInt
	val, err := b.Value()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if val != "0" {
		t.Fatalf("did not get expected value: got %#v, expected \"0\"", val)
	}
	if b.Big().Sign() != 0 {
		t.Fatalf("expected zero value from nil BigInt")
	}
	if err := b.Scan([]byte("42")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if b.Int64() != 42 {
		t.Fatalf("did not get expected value after Scan(): got %d", b.Int64())
	}
	if err := b.Scan("not-a-number"); err == nil {
		t.Fatalf("expected error scanning invalid value")
	}
}

func TestUint64List(t *testing.T) {
	l := types.Uint64List{0, 1, 2, 3, 4}
	val, err := l.Value()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if val != "0,1,2,3,4" {
		t.Fatalf("did not get expected value: got %#v", val)
	}
	var out types.Uint64List
	if err := out.Scan(val); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !reflect.DeepEqual(out, l) {
		t.Fatalf("did not get expected value after Scan(): got %v", out)
	}
	var empty types.Uint64List
	if err := empty.Scan(""); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %v", empty)
	}
}
