/*
 * Copyright 2025 tomoncle.
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

package types

import (
	"encoding/json"
	"fmt"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Verdict is the outcome of an allergen check.
type Verdict int

const (
	VerdictSafe Verdict = iota
	VerdictUnsafe
)

var _ BaseEnum = VerdictSafe

func (v Verdict) IsValid() bool {
	return v == VerdictSafe || v == VerdictUnsafe
}

func (v Verdict) Number() int {
	if !v.IsValid() {
		return IllegalValue
	}
	return int(v)
}

func (v Verdict) Name() string {
	switch v {
	case VerdictSafe:
		return "safe"
	case VerdictUnsafe:
		return "unsafe"
	default:
		return IllegalName
	}
}

func (v Verdict) String() string {
	return v.Name()
}

// Desc is the verdict line shown to the operator.
func (v Verdict) Desc() string {
	if !v.IsValid() {
		return IllegalDesc
	}
	return fmt.Sprintf(">>> %s <<<", v.Name())
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Name())
}

func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "safe":
		*v = VerdictSafe
	case "unsafe":
		*v = VerdictUnsafe
	default:
		return fmt.Errorf("invalid verdict %q", s)
	}
	return nil
}
