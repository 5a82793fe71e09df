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

package repository

import (
	"context"
	"database/sql"

	"github.com/tomoncle/foodcheck/types"
	"github.com/uptrace/bun"
)

// Record keys produced by ProductRecord.Record.
const (
	FieldSKU         = "SKU"
	FieldIngredients = "Ingredients"
	FieldDescription = "Description"
)

// Food is a product row keyed by its FoodData Central id, which doubles as
// the barcode the operator enters.
type Food struct {
	bun.BaseModel `bun:"table:food,alias:food"`

	FdcID       string `bun:"fdc_id,pk,type:varchar(32)" json:"fdc_id"`
	Description string `bun:"description,type:text" json:"description"`
}

// BrandedFood extends Food with the ingredient statement of branded products.
type BrandedFood struct {
	bun.BaseModel `bun:"table:branded_food,alias:branded_food"`

	FdcID       string         `bun:"fdc_id,pk,type:varchar(32)" json:"fdc_id"`
	Ingredients sql.NullString `bun:"ingredients,type:text" json:"ingredients"`
}

// ProductRecord is one row of the food/branded_food join.
type ProductRecord struct {
	SKU         string         `bun:"sku"`
	Ingredients sql.NullString `bun:"ingredients"`
	Description string         `bun:"description"`
}

// Record converts the row to a column-name mapping. NULL ingredients map to nil.
func (p ProductRecord) Record() types.Record {
	rec := types.Record{
		FieldSKU:         p.SKU,
		FieldDescription: p.Description,
		FieldIngredients: nil,
	}
	if p.Ingredients.Valid {
		rec[FieldIngredients] = p.Ingredients.String
	}
	return rec
}

type productRepositoryImpl struct {
	db    bun.IDB
	foods Repository[Food]
}

// NewProductRepository returns a ProductRepository backed by db.
func NewProductRepository(db bun.IDB) ProductRepository {
	return &productRepositoryImpl{db: db, foods: NewRepository[Food](db)}
}

func (r *productRepositoryImpl) Foods() Repository[Food] {
	return r.foods
}

// FindBySKU runs
//
//	SELECT food.fdc_id AS sku, branded_food.ingredients AS ingredients, food.description AS description
//	FROM food JOIN branded_food ON branded_food.fdc_id = food.fdc_id
//	WHERE food.fdc_id = ?
//
// with sku bound as a parameter. At most two rows are read so callers can
// detect a broken 1:1 join without scanning the whole table.
func (r *productRepositoryImpl) FindBySKU(ctx context.Context, sku string) ([]ProductRecord, error) {
	records := make([]ProductRecord, 0, 1)
	err := r.db.NewSelect().
		Model((*Food)(nil)).
		ColumnExpr("food.fdc_id AS sku").
		ColumnExpr("branded_food.ingredients AS ingredients").
		ColumnExpr("food.description AS description").
		Join("JOIN branded_food AS branded_food ON branded_food.fdc_id = food.fdc_id").
		Where("food.fdc_id = ?", sku).
		Limit(2).
		Scan(ctx, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SKUPrefixFilter matches foods whose id starts with prefix. LIKE wildcards
// in prefix are escaped.
func SKUPrefixFilter(prefix string) *types.QueryFilter {
	return types.NewQueryFilter("food.fdc_id LIKE ? ESCAPE '!'", escapeLike(prefix)+"%")
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '!' {
			out = append(out, '!')
		}
		out = append(out, r)
	}
	return string(out)
}
