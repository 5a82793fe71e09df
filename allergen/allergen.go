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

// Package allergen decides whether an ingredient statement mentions an
// allergen term. Matching is a literal substring search for the lower-case,
// upper-case and title-case forms of the term; there is no tokenization.
package allergen

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/tomoncle/foodcheck/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTerm is the allergen every check uses.
const DefaultTerm = "wheat"

// ErrNoIngredients is returned when a product has no ingredient statement.
var ErrNoIngredients = errors.New("product has no ingredients")

// Result is the outcome of one check.
type Result struct {
	Term    string        `json:"allergen"`
	Matched string        `json:"matched,omitempty"`
	Verdict types.Verdict `json:"verdict"`
}

// Checker searches ingredient text for the case forms of one term.
type Checker struct {
	term  string
	forms []string
}

// NewChecker builds a Checker for term. Identical forms are kept once.
func NewChecker(term string) *Checker {
	c := &Checker{term: term}
	for _, f := range []string{
		strings.ToLower(term),
		strings.ToUpper(term),
		cases.Title(language.Und).String(term),
	} {
		if f != "" && !contains(c.forms, f) {
			c.forms = append(c.forms, f)
		}
	}
	return c
}

// Default returns a Checker for DefaultTerm.
func Default() *Checker {
	return NewChecker(DefaultTerm)
}

func (c *Checker) Term() string { return c.term }

// Forms returns the searched forms in lower, upper, title order.
func (c *Checker) Forms() []string {
	out := make([]string, len(c.forms))
	copy(out, c.forms)
	return out
}

// Check judges ingredients. Present but empty text is safe.
func (c *Checker) Check(ingredients sql.NullString) (Result, error) {
	if !ingredients.Valid {
		return Result{Term: c.term}, ErrNoIngredients
	}
	return c.CheckText(ingredients.String), nil
}

// CheckText judges text that is known to be present.
func (c *Checker) CheckText(text string) Result {
	for _, f := range c.forms {
		if strings.Contains(text, f) {
			return Result{Term: c.term, Matched: f, Verdict: types.VerdictUnsafe}
		}
	}
	return Result{Term: c.term, Verdict: types.VerdictSafe}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
