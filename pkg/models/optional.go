/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// undefinedSentinel is the string some upstream encoders emit for a field
// that was never assigned.
const undefinedSentinel = "undefined"

var nullLiteral = []byte("null")

// Optional is a scalar field that may be absent. Upstream producers encode
// absence as a missing key, null, an empty string, the string "undefined" or
// a boxed object such as {"_type":"undefined"}; all of them decode to an
// empty Optional.
type Optional[T comparable] struct {
	value T
	set   bool
}

// Some wraps a concrete value.
func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an empty Optional.
func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a nullable database column into an Optional.
func FromPtr[T comparable](p *T) Optional[T] {
	if p == nil {
		return Optional[T]{}
	}

	return Some(*p)
}

// Raw returns the stored value and whether one was decoded, without applying
// the emptiness rules of ResolveOptional.
func (o Optional[T]) Raw() (T, bool) {
	return o.value, o.set
}

// ResolveOptional is the single emptiness predicate for optional fields:
// unset and zero values are both reported as empty. String values are
// additionally trimmed and the "undefined" sentinel is treated as empty.
func ResolveOptional[T comparable](field Optional[T]) (T, bool) {
	var zero T

	if !field.set || field.value == zero {
		return zero, false
	}

	if s, ok := any(field.value).(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || trimmed == undefinedSentinel {
			return zero, false
		}

		return any(trimmed).(T), true
	}

	return field.value, true
}

// ResolveString is ResolveOptional for string fields, returning "" when empty.
func ResolveString(field Optional[string]) string {
	v, _ := ResolveOptional(field)

	return v
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	*o = Optional[T]{}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullLiteral) {
		return nil
	}

	// boxed sentinel objects carry no scalar value
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return nil
	}

	var v T

	if err := json.Unmarshal(trimmed, &v); err != nil {
		// agent ids arrive as numbers from some producers
		if sp, ok := any(&v).(*string); ok && trimmed[0] != '"' {
			*sp = string(trimmed)
			o.value, o.set = v, true

			return nil
		}

		return err
	}

	o.value, o.set = v, true

	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	v, ok := ResolveOptional(o)
	if !ok {
		return nullLiteral, nil
	}

	return json.Marshal(v)
}
