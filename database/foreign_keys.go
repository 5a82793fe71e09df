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

package database

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

var validForeignKeyActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKey is a reference from a column of a registered model to another
// table. It is emitted inside CREATE TABLE so it works on dialects without
// ALTER TABLE ... ADD CONSTRAINT.
type ForeignKey struct {
	Column          string
	ReferenceTable  string
	ReferenceColumn string
	OnDelete        string // CASCADE, RESTRICT, SET NULL, NO ACTION
}

// Validate reports a missing name or an unknown delete action.
func (fk ForeignKey) Validate() error {
	switch {
	case fk.Column == "":
		return fmt.Errorf("foreign key column cannot be empty")
	case fk.ReferenceTable == "":
		return fmt.Errorf("reference table cannot be empty: %s", fk.Column)
	case fk.ReferenceColumn == "":
		return fmt.Errorf("reference column cannot be empty: %s -> %s", fk.Column, fk.ReferenceTable)
	}
	if fk.OnDelete == "" {
		return nil
	}
	for _, action := range validForeignKeyActions {
		if strings.EqualFold(fk.OnDelete, action) {
			return nil
		}
	}
	return fmt.Errorf("invalid delete policy %q for %s -> %s", fk.OnDelete, fk.Column, fk.ReferenceTable)
}

func (fk ForeignKey) apply(q *bun.CreateTableQuery) *bun.CreateTableQuery {
	clause := "(?) REFERENCES ? (?)"
	if fk.OnDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	return q.ForeignKey(clause, bun.Ident(fk.Column), bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn))
}

// foreignKeysOf returns the foreign keys a registered model declares.
func foreignKeysOf(model SQLModel) []ForeignKey {
	if m, ok := model.(interface{ ForeignKeys() []ForeignKey }); ok {
		return m.ForeignKeys()
	}
	return nil
}
