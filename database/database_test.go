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
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testItem struct {
	bun.BaseModel `bun:"table:test_items,alias:ti"`

	ID   string `bun:"id,pk,type:varchar(32)"`
	Name string `bun:"name,type:text"`
}

var envKeys = []string{
	"DB_TYPE", "DB_HOST", "DB_PORT", "DB_USERNAME", "DB_NAME", "DB_SSLMODE",
	"DB_MAX_IDLE_CONNS", "DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME", "DB_ENABLE_QUERY_LOG",
}

func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func sqliteConfig(t *testing.T) *Config {
	t.Helper()
	clearDBEnv(t)
	conn := DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = filepath.Join(t.TempDir(), "food")
	return &Config{ConnectionConfig: *conn}
}

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("find: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql missing table", &mysql.MySQLError{Number: 1146, Message: "Table 'fooddata.food' doesn't exist"}, true, NoTableErr},
		{"mysql access denied", &mysql.MySQLError{Number: 1045}, true, AccessDeniedErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true, DuplicateKeyErr},
		{"mysql other", &mysql.MySQLError{Number: 2000}, true, UnknownErr},
		{"sqlite missing table", errors.New("SQL logic error: no such table: food (1)"), true, NoTableErr},
		{"postgres missing table", errors.New(`pq: relation "branded_food" does not exist`), true, NoTableErr},
		{"postgres missing column", errors.New(`pq: column "sku" does not exist`), true, NoColumnErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: food.fdc_id"), true, DuplicateKeyErr},
		{"syntax", errors.New(`near "SELEC": syntax error`), true, SyntaxErr},
		{"other", errors.New("connection refused"), false, UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := IsSqlError(tt.err)
			assert.Equal(t, tt.is, is)
			assert.Equal(t, tt.kind, kind, kind.String())
		})
	}
}

func TestSplitSQLStatements(t *testing.T) {
	content := `-- sample foods
INSERT INTO food (fdc_id, description) VALUES ('1', 'BREAD');

INSERT INTO food (fdc_id, description)
  VALUES ('2', 'SYRUP');
INSERT INTO food (fdc_id, description) VALUES ('3', 'TAIL')`

	assert.Equal(t, []string{
		"INSERT INTO food (fdc_id, description) VALUES ('1', 'BREAD')",
		"INSERT INTO food (fdc_id, description) VALUES ('2', 'SYRUP')",
		"INSERT INTO food (fdc_id, description) VALUES ('3', 'TAIL')",
	}, splitSQLStatements(content))
	assert.Empty(t, splitSQLStatements("-- only a comment\n\n"))
}

func TestParseFileOrder(t *testing.T) {
	assert.Equal(t, 1, parseFileOrder("001_food.sql"))
	assert.Equal(t, 20, parseFileOrder("20_branded.sql"))
	assert.Equal(t, 999, parseFileOrder("food.sql"))
}

func TestGetSQLFilesOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"common/010_b.sql":              {Data: []byte("SELECT 1;")},
		"common/002_a.sql":              {Data: []byte("SELECT 1;")},
		"common/README.md":              {Data: []byte("ignored")},
		"common/extra.sql":              {Data: []byte("SELECT 1;")},
		"environments/test/001_env.sql": {Data: []byte("SELECT 1;")},
		"environments/other/001_no.sql": {Data: []byte("SELECT 1;")},
	}
	files, err := NewSQLInitManager(nil, "test", fsys).GetSQLFiles()
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"002_a.sql", "010_b.sql", "extra.sql", "001_env.sql"}, names)
}

func TestGetSQLFilesMissingDirs(t *testing.T) {
	files, err := NewSQLInitManager(nil, "production", fstest.MapFS{}).GetSQLFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestModelRegistryOrder(t *testing.T) {
	r := newModelRegistry()
	r.Register(NewModelAdapter((*Migration)(nil), 20))
	r.Register(NewModelAdapter((*testItem)(nil), 10))
	r.Register(NewModelAdapter((*testItem)(nil), 5))

	models := r.Models()
	require.Len(t, models, 2)
	assert.IsType(t, (*testItem)(nil), models[0].Instance())
	assert.Equal(t, 5, models[0].Priority())
	assert.IsType(t, (*Migration)(nil), models[1].Instance())
}

func TestOverrideFromEnv(t *testing.T) {
	clearDBEnv(t)
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_CONN_MAX_LIFETIME", "60")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")

	cfg := DefaultConnectionConfig()
	OverrideFromEnv(cfg)
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, time.Minute, cfg.ConnMaxLifetime)
	assert.True(t, cfg.EnableQueryLog)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "fooddata", cfg.DBName)
}

func TestCreateFromConfigUnsupported(t *testing.T) {
	clearDBEnv(t)
	cfg := &Config{ConnectionConfig: ConnectionConfig{Type: "oracle"}}
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type: oracle")

	_, err = InitDB(context.Background(), nil)
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	mysqlManager := newDatabaseManager(&ConnectionConfig{
		Type: "mysql", Host: "db", Port: 3306, Username: "food", Password: "p@ss",
		DBName: "fooddata", Charset: "utf8mb4", ConnectTimeout: time.Second,
	}, DataInitConfig{})
	dsn := mysqlManager.mysqlDSN()
	assert.Contains(t, dsn, "food:p@ss@tcp(db:3306)/fooddata")
	assert.Contains(t, dsn, "parseTime=true")

	pgManager := newDatabaseManager(&ConnectionConfig{
		Type: "postgres", Host: "db", Port: 5432, Username: "food", Password: "p ss", DBName: "fooddata",
	}, DataInitConfig{})
	assert.Contains(t, pgManager.postgresDSN(), "postgres://food:p%20ss@db:5432/fooddata")

	tests := map[string]string{
		":memory:":      "file::memory:",
		"/tmp/food":     "/tmp/food.db",
		"/tmp/food.db":  "/tmp/food.db",
		"file:food.db?": "file:food.db?",
	}
	for in, want := range tests {
		m := newDatabaseManager(&ConnectionConfig{Type: "sqlite", DBName: in}, DataInitConfig{})
		assert.Equal(t, want, m.sqliteDSN(), in)
	}
}

func TestInitDBSQLite(t *testing.T) {
	RegisteredModel(NewModelAdapter((*testItem)(nil), 10))

	cfg := sqliteConfig(t)
	cfg.DataMigrateConfig.EnableMigrateOnStartup = true

	ctx := context.Background()
	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = CloseDB() }()

	assert.Same(t, db, GetDB())
	require.NotNil(t, GetDatabaseManager())

	_, err = db.NewInsert().Model(&testItem{ID: "a", Name: "apple"}).Exec(ctx)
	require.NoError(t, err)

	status := GetHealthStatus(ctx)
	assert.True(t, status.Healthy, status.LastError)
	assert.True(t, status.Connected)
	assert.GreaterOrEqual(t, GetDatabaseStats().OpenConns, 1)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
	assert.Error(t, RunMigrations(ctx))
}

func TestMigrationsSeedOnce(t *testing.T) {
	RegisteredModel(NewModelAdapter((*testItem)(nil), 10))

	ctx := context.Background()
	db, err := InitDatabaseWithOptions(ctx, sqliteConfig(t), false)
	require.NoError(t, err)
	defer func() { _ = CloseDB() }()

	mm := NewMigrationManager(db, nil)
	mm.SetDataInit(DataInitConfig{AutoInitOnMigration: true, Environment: "test"})
	mm.SetSeedFS(fstest.MapFS{
		"common/001_items.sql": {Data: []byte(
			"-- items\nINSERT INTO test_items (id, name) VALUES ('a', 'apple');\n" +
				"INSERT INTO test_items (id, name) VALUES ('b', 'bread');\n")},
		"environments/test/001_more.sql": {Data: []byte("INSERT INTO test_items (id, name) VALUES ('c', 'corn');")},
	})

	require.NoError(t, mm.RunMigrations(ctx))
	// a second run must not seed again
	require.NoError(t, mm.RunMigrations(ctx))

	versions, err := mm.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, versions)

	n, err := db.NewSelect().Model((*testItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLInitManagerRollsBackFailingFile(t *testing.T) {
	RegisteredModel(NewModelAdapter((*testItem)(nil), 10))

	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.DataMigrateConfig.EnableMigrateOnStartup = true
	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = CloseDB() }()

	fsys := fstest.MapFS{
		"common/001_bad.sql": {Data: []byte(
			"INSERT INTO test_items (id, name) VALUES ('a', 'apple');\n" +
				"INSERT INTO test_items (id, name) VALUES ('a', 'again');\n")},
	}
	results, err := NewSQLInitManager(db, "", fsys).ExecuteInitialization(ctx)
	require.Error(t, err)
	assert.Empty(t, results)

	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)

	n, err := db.NewSelect().Model((*testItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type testParent struct {
	bun.BaseModel `bun:"table:test_parents"`

	ID string `bun:"id,pk,type:varchar(32)"`
}

type testChild struct {
	bun.BaseModel `bun:"table:test_children"`

	ID       string `bun:"id,pk,type:varchar(32)"`
	ParentID string `bun:"parent_id,type:varchar(32)"`
}

func TestForeignKeyValidate(t *testing.T) {
	ok := ForeignKey{Column: "fdc_id", ReferenceTable: "food", ReferenceColumn: "fdc_id", OnDelete: "cascade"}
	assert.NoError(t, ok.Validate())
	assert.NoError(t, ForeignKey{Column: "a", ReferenceTable: "b", ReferenceColumn: "c"}.Validate())

	bad := []ForeignKey{
		{ReferenceTable: "food", ReferenceColumn: "fdc_id"},
		{Column: "fdc_id", ReferenceColumn: "fdc_id"},
		{Column: "fdc_id", ReferenceTable: "food"},
		{Column: "fdc_id", ReferenceTable: "food", ReferenceColumn: "fdc_id", OnDelete: "EXPLODE"},
	}
	for _, fk := range bad {
		assert.Error(t, fk.Validate(), "%+v", fk)
	}
}

func TestCreateTablesWithForeignKeys(t *testing.T) {
	fk := ForeignKey{Column: "parent_id", ReferenceTable: "test_parents", ReferenceColumn: "id", OnDelete: "CASCADE"}
	RegisteredModel(NewModelAdapter((*testParent)(nil), 1))
	RegisteredModel(NewModelAdapter((*testChild)(nil), 2, fk))

	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.DataMigrateConfig.EnableMigrateOnStartup = true
	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = CloseDB() }()

	query, err := fk.apply(db.NewCreateTable().Model((*testChild)(nil))).AppendQuery(db.Formatter(), nil)
	require.NoError(t, err)
	assert.Contains(t, string(query), `FOREIGN KEY ("parent_id") REFERENCES "test_parents" ("id") ON DELETE CASCADE`)

	_, err = db.NewInsert().Model(&testParent{ID: "p"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&testChild{ID: "c", ParentID: "p"}).Exec(ctx)
	require.NoError(t, err)
}

func TestSlowQueryHook(t *testing.T) {
	var buf bytes.Buffer
	h := &SlowQueryHook{slowTime: time.Millisecond, writer: &buf}
	ctx := context.Background()

	h.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now(), Query: "SELECT 1"})
	assert.Empty(t, buf.String())

	h.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now().Add(-time.Second), Query: "SELECT 2", Err: errors.New("x")})
	assert.Empty(t, buf.String())

	h.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now().Add(-time.Second), Query: "SELECT fdc_id FROM food"})
	assert.Contains(t, buf.String(), "[BUN_SLOW]")
	assert.Contains(t, buf.String(), "SELECT fdc_id FROM food")
}

func TestToFields(t *testing.T) {
	assert.Equal(t, logrus.Fields{"sku": "1", "extra": "dangling"}, toFields("sku", "1", "dangling"))
	assert.Empty(t, toFields())
}
