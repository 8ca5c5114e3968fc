// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides values that know whether they have been configured.
package vartype

import (
	"encoding/json"
	"fmt"
)

// VarFloat64 is an optional float64, used for angles and radii that have no sane zero value.
type VarFloat64 = Variable[float64]

// Variable holds a value of T and whether it has been set. The zero Variable is unset.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable returns a Variable that is set to value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{value: value, isset: true}
}

// Set stores val.
func (v *Variable[T]) Set(val T) {
	v.value, v.isset = val, true
}

// Reset unsets the Variable.
func (v *Variable[T]) Reset() {
	*v = Variable[T]{}
}

// Get returns the value and whether it is set.
func (v Variable[T]) Get() (T, bool) {
	return v.value, v.isset
}

// Or returns the value if it is set and fallback otherwise.
func (v Variable[T]) Or(fallback T) T {
	if !v.isset {
		return fallback
	}
	return v.value
}

// IsSet reports whether a value has been set.
func (v Variable[T]) IsSet() bool {
	return v.isset
}

func (v Variable[T]) String() string {
	if !v.isset {
		return "unset"
	}
	return fmt.Sprint(v.value)
}

// MarshalJSON encodes an unset Variable as null.
func (v Variable[T]) MarshalJSON() ([]byte, error) {
	if !v.isset {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON sets the Variable unless the input is null.
func (v *Variable[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		v.Reset()
		return nil
	}
	var val T
	if err := json.Unmarshal(data, &val); err != nil {
		return fmt.Errorf("failed to unmarshal variable: %w", err)
	}
	v.Set(val)
	return nil
}
