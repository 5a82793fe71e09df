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

package foodcheck

import (
	"github.com/tomoncle/foodcheck/database"
	"github.com/tomoncle/foodcheck/repository"
)

// RegisterModels adds the food tables to the migration registry. Calling it
// more than once is harmless.
func RegisterModels() {
	database.RegisteredModel(database.NewModelAdapter((*repository.Food)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*repository.BrandedFood)(nil), 20, database.ForeignKey{
		Column:          "fdc_id",
		ReferenceTable:  "food",
		ReferenceColumn: "fdc_id",
		OnDelete:        "CASCADE",
	}))
}
