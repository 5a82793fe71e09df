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

import "fmt"

// Record maps column names of a single result row to their values. A NULL
// column is stored as nil.
type Record map[string]interface{}

// Text returns the value under key as text. ok is false when the key is
// missing or the value is nil.
func (r Record) Text(key string) (s string, ok bool) {
	v, found := r[key]
	if !found || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Has reports whether key is present, including NULL values.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}
