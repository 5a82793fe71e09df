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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/foodcheck/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{(*Food)(nil), (*BrandedFood)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	foods := []*Food{
		{FdcID: "1105904", Description: "WHITE SANDWICH BREAD"},
		{FdcID: "1105905", Description: "CORN SYRUP"},
		{FdcID: "1105907", Description: "SPARKLING WATER"},
		{FdcID: "1105908", Description: "RAW APPLES"},
		{FdcID: "12_34", Description: "UNDERSCORE"},
		{FdcID: "12x34", Description: "LETTER"},
	}
	require.NoError(t, NewRepository[Food](db).Create(ctx, foods...))

	branded := []*BrandedFood{
		{FdcID: "1105904", Ingredients: sql.NullString{String: "ENRICHED WHEAT FLOUR, SUGAR, SALT", Valid: true}},
		{FdcID: "1105905", Ingredients: sql.NullString{String: "CORN SYRUP, SALT, WATER", Valid: true}},
		{FdcID: "1105907"},
	}
	require.NoError(t, NewRepository[BrandedFood](db).Create(ctx, branded...))
	return db
}

func TestFindBySKU(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	ctx := context.Background()

	records, err := repo.FindBySKU(ctx, "1105904")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ProductRecord{
		SKU:         "1105904",
		Ingredients: sql.NullString{String: "ENRICHED WHEAT FLOUR, SUGAR, SALT", Valid: true},
		Description: "WHITE SANDWICH BREAD",
	}, records[0])

	assert.Equal(t, types.Record{
		FieldSKU:         "1105904",
		FieldIngredients: "ENRICHED WHEAT FLOUR, SUGAR, SALT",
		FieldDescription: "WHITE SANDWICH BREAD",
	}, records[0].Record())
}

func TestFindBySKUNullIngredients(t *testing.T) {
	records, err := NewProductRepository(newTestDB(t)).FindBySKU(context.Background(), "1105907")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Ingredients.Valid)

	rec := records[0].Record()
	assert.True(t, rec.Has(FieldIngredients))
	assert.Nil(t, rec[FieldIngredients])
}

func TestFindBySKUNoMatch(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	ctx := context.Background()

	for _, sku := range []string{"0000000", "1105908", "' OR '1'='1", "1105904' --"} {
		records, err := repo.FindBySKU(ctx, sku)
		require.NoError(t, err, sku)
		assert.Empty(t, records, sku)
	}
}

func TestFoodsRepository(t *testing.T) {
	foods := NewProductRepository(newTestDB(t)).Foods()
	ctx := context.Background()

	food, err := foods.FindOne(ctx, types.NewQueryFilter("food.fdc_id = ?", "1105908"))
	require.NoError(t, err)
	assert.Equal(t, "RAW APPLES", food.Description)

	_, err = foods.FindOne(ctx, types.NewQueryFilter("food.fdc_id = ?", "missing"))
	assert.ErrorIs(t, err, sql.ErrNoRows)

	n, err := foods.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	list, err := foods.List(ctx, SKUPrefixFilter("12"))
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSKUPrefixFilterPage(t *testing.T) {
	foods := NewProductRepository(newTestDB(t)).Foods()
	ctx := context.Background()
	orders := []string{"food.fdc_id ASC"}

	page, err := foods.Page(ctx, types.NewPageRequest(2, 2, SKUPrefixFilter("11059"), orders))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "1105907", page.Items[0].FdcID)
	assert.Equal(t, "1105908", page.Items[1].FdcID)

	// "_" is literal, not a single-character wildcard
	page, err = foods.Page(ctx, types.NewPageRequest(1, 10, SKUPrefixFilter("12_"), orders))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "12_34", page.Items[0].FdcID)

	page, err = foods.Page(ctx, types.NewPageRequest(1, 10, SKUPrefixFilter("99"), orders))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "1!_2!%3!!", escapeLike("1_2%3!"))
	assert.Equal(t, "1105904", escapeLike("1105904"))
}
