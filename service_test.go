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
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/foodcheck/database"
	"github.com/tomoncle/foodcheck/repository"
	"github.com/tomoncle/foodcheck/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T, withTables bool) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	if !withTables {
		return db
	}

	ctx := context.Background()
	for _, model := range []interface{}{(*repository.Food)(nil), (*repository.BrandedFood)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	_, err = db.NewInsert().Model(&[]repository.Food{
		{FdcID: "1105904", Description: "WHITE SANDWICH BREAD"},
		{FdcID: "1105905", Description: "CORN SYRUP"},
		{FdcID: "1105906", Description: "WHOLE GRAIN CRACKERS"},
		{FdcID: "1105907", Description: "SPARKLING WATER"},
		{FdcID: "1105908", Description: "RAW APPLES"},
	}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&[]repository.BrandedFood{
		{FdcID: "1105904", Ingredients: sql.NullString{String: "ENRICHED WHEAT FLOUR, SUGAR, SALT", Valid: true}},
		{FdcID: "1105905", Ingredients: sql.NullString{String: "CORN SYRUP, SALT, WATER", Valid: true}},
		{FdcID: "1105906", Ingredients: sql.NullString{String: "Whole Wheat Flour, Canola Oil", Valid: true}},
		{FdcID: "1105907"},
	}).Exec(ctx)
	require.NoError(t, err)
	return db
}

func TestCheck(t *testing.T) {
	svc := NewServiceWithDB(newTestDB(t, true))
	ctx := context.Background()

	tests := []struct {
		sku     string
		verdict types.Verdict
		matched string
	}{
		{"1105904", types.VerdictUnsafe, "WHEAT"},
		{"1105905", types.VerdictSafe, ""},
		{"1105906", types.VerdictUnsafe, "Wheat"},
		{"  1105905\n", types.VerdictSafe, ""},
	}
	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			report, err := svc.Check(ctx, tt.sku)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, report.Verdict)
			assert.Equal(t, tt.matched, report.Matched)
			assert.Equal(t, "wheat", report.Term)
		})
	}
}

func TestCheckReport(t *testing.T) {
	report, err := NewServiceWithDB(newTestDB(t, true)).Check(context.Background(), "1105904")
	require.NoError(t, err)
	assert.Equal(t, "1105904", report.SKU)
	assert.Equal(t, "WHITE SANDWICH BREAD", report.Description)
	assert.Equal(t, "ENRICHED WHEAT FLOUR, SUGAR, SALT", report.Ingredients)
}

func TestCheckErrors(t *testing.T) {
	svc := NewServiceWithDB(newTestDB(t, true))
	ctx := context.Background()

	_, err := svc.Check(ctx, "0000000")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Check(ctx, "1105908")
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Contains(t, err.Error(), "has no branded food entry")

	_, err = svc.Check(ctx, "1105907")
	assert.ErrorIs(t, err, ErrNoIngredients)

	_, err = svc.Check(ctx, "' OR '1'='1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

// cancelAfterFirstQuery cancels the query context once the first query ends.
type cancelAfterFirstQuery struct {
	cancel context.CancelFunc
}

func (h *cancelAfterFirstQuery) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *cancelAfterFirstQuery) AfterQuery(context.Context, *bun.QueryEvent) {
	h.cancel()
}

func TestCheckFallbackLookupError(t *testing.T) {
	db := newTestDB(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db.AddQueryHook(&cancelAfterFirstQuery{cancel: cancel})

	_, err := NewServiceWithDB(db).Check(ctx, "0000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestCheckSchemaMissing(t *testing.T) {
	_, err := NewServiceWithDB(newTestDB(t, false)).Check(context.Background(), "1105904")
	require.ErrorIs(t, err, ErrSchemaMissing)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestLookup(t *testing.T) {
	svc := NewServiceWithDB(newTestDB(t, true))
	ctx := context.Background()

	rec, err := svc.Lookup(ctx, "1105905")
	require.NoError(t, err)
	assert.Equal(t, types.Record{
		"SKU":         "1105905",
		"Ingredients": "CORN SYRUP, SALT, WATER",
		"Description": "CORN SYRUP",
	}, rec)

	rec, err = svc.Lookup(ctx, "1105907")
	require.NoError(t, err)
	_, ok := rec.Text("Ingredients")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	svc := NewServiceWithDB(newTestDB(t, true))
	ctx := context.Background()

	page, err := svc.Search(ctx, "11059", types.NewDefaultPageRequest(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "1105904", page.Items[0].FdcID)

	page, err = svc.Search(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, types.DefaultPageSize, page.PageSize)
}

func TestCheckIsRepeatable(t *testing.T) {
	svc := NewServiceWithDB(newTestDB(t, true))
	ctx := context.Background()

	first, err := svc.Check(ctx, "1105904")
	require.NoError(t, err)
	second, err := svc.Check(ctx, "1105904")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestServiceOnGlobalDatabase(t *testing.T) {
	for _, k := range []string{"DB_TYPE", "DB_NAME", "DB_MAX_OPEN_CONNS"} {
		t.Setenv(k, "")
	}
	RegisterModels()
	RegisterModels()

	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = filepath.Join(t.TempDir(), "food")
	cfg := &database.Config{
		ConnectionConfig:  *conn,
		DataMigrateConfig: database.DataMigrateConfig{EnableMigrateOnStartup: true},
		DataInitConfig: database.DataInitConfig{
			AutoInitOnMigration: true,
			Filepath:            "configs/sql",
			Environment:         "development",
		},
	}
	_, err := database.InitDB(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = database.CloseDB() }()

	svc := NewService()
	assert.Equal(t, "wheat", svc.Allergen())

	report, err := svc.Check(context.Background(), "1105904")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictUnsafe, report.Verdict)

	report, err = svc.Check(context.Background(), "9000001")
	require.NoError(t, err)
	assert.Equal(t, "wheat", report.Matched)

	_, err = svc.Check(context.Background(), "1105907")
	assert.ErrorIs(t, err, ErrNoIngredients)
}
