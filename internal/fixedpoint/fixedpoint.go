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

// Package fixedpoint converts between human readable decimal values and the
// 1e18 fixed-point integers used for ratios and amounts
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	Decimals = 18
	// MaxDigits bounds the decimal digits of a parsed value, enough for any
	// 256-bit integer
	MaxDigits = 78
)

var ErrOutOfRange = errors.New("value out of range")

// One is 1.0 in fixed-point representation
var One = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

var oneDecimal = decimal.NewFromBigInt(One, 0)

// ParseRatio parses a decimal value such as "0.6" into a fixed-point integer
func ParseRatio(val string) (*big.Int, error) {
	d, err := decimal.NewFromString(val)
	if err != nil {
		return nil, fmt.Errorf("invalid ratio %q: %w", val, err)
	}
	scaled := d.Mul(oneDecimal)
	if err := checkMagnitude(scaled); err != nil {
		return nil, fmt.Errorf("ratio %q: %w", val, err)
	}
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("ratio %q has more than %d decimal places", val, Decimals)
	}
	return scaled.BigInt(), nil
}

// ParseInteger parses an integer value, which may use exponent notation such
// as "16e18"
func ParseInteger(val string) (*big.Int, error) {
	d, err := decimal.NewFromString(val)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", val, err)
	}
	if err := checkMagnitude(d); err != nil {
		return nil, fmt.Errorf("integer %q: %w", val, err)
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("value %q is not an integer", val)
	}
	return d.BigInt(), nil
}

// checkMagnitude rejects values whose integer part or fractional part would
// need more than MaxDigits digits. Both IsInteger and BigInt expand the
// exponent into a power of ten
func checkMagnitude(d decimal.Decimal) error {
	digits := int64(d.NumDigits())
	exp := int64(d.Exponent())
	if digits+exp > MaxDigits || -exp > MaxDigits {
		return fmt.Errorf("%w: more than %d digits", ErrOutOfRange, MaxDigits)
	}
	return nil
}

// FormatRatio formats a fixed-point integer as a decimal string
func FormatRatio(val *big.Int) string {
	if val == nil {
		return "0"
	}
	return decimal.NewFromBigInt(val, -Decimals).String()
}

// InUnitRange reports whether val lies in [0, 1e18]
func InUnitRange(val *big.Int) bool {
	return val != nil && val.Sign() >= 0 && val.Cmp(One) <= 0
}
