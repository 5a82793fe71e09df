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
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

const defaultSQLRootPath = "configs/sql"

// MigrationManager coordinates table creation and data seeding.
type MigrationManager struct {
	db       *bun.DB
	logger   Logger
	dataInit DataInitConfig
	seedFS   fs.FS
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:migrations,alias:m"`

	Version     string    `bun:"version,pk,type:varchar(32)"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager constructs a MigrationManager for db. Seeding reads
// from "configs/sql" in the "development" environment until SetDataInit or
// SetSeedFS says otherwise.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{
		db:       db,
		logger:   logger,
		dataInit: DataInitConfig{Environment: "development"},
	}
}

// SetDataInit replaces the seeding settings. Empty fields keep their defaults.
func (mm *MigrationManager) SetDataInit(cfg DataInitConfig) {
	if cfg.Environment == "" {
		cfg.Environment = mm.dataInit.Environment
	}
	mm.dataInit = cfg
}

// SetSeedFS makes seeding read SQL files from fsys instead of the filesystem.
func (mm *MigrationManager) SetSeedFS(fsys fs.FS) {
	mm.seedFS = fsys
}

// RunMigrations creates the migration tracking table if needed and executes
// every pending migration in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.getAllMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Debug("Database migrations completed")
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create registered model tables",
			Up:          mm.createBaseTables,
		},
	}
	if mm.dataInit.AutoInitOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "002",
			Name:        "seed_initial_data",
			Description: "Seed initial data",
			Up:          mm.seedInitialData,
		})
	}
	return migrations
}

// AppliedVersions lists the versions recorded in the migrations table.
func (mm *MigrationManager) AppliedVersions(ctx context.Context) ([]string, error) {
	var versions []string
	err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Column("version").
		Order("version ASC").
		Scan(ctx, &versions)
	return versions, err
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range GetRegisteredModels() {
		q := db.NewCreateTable().
			Model(model.Instance()).
			IfNotExists()
		for _, fk := range foreignKeysOf(model) {
			if err := fk.Validate(); err != nil {
				return fmt.Errorf("table %T: %w", model.Instance(), err)
			}
			q = fk.apply(q)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model.Instance(), err)
		}
	}
	return nil
}

// InitData executes the SQL seed files outside of the migration ledger.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	fsys := mm.seedFS
	if fsys == nil {
		root := mm.dataInit.Filepath
		if root == "" {
			root = defaultSQLRootPath
		}
		fsys = os.DirFS(root)
	}

	mm.logger.Info("Starting data initialization using SQL files", "environment", mm.dataInit.Environment)

	sqlManager := NewSQLInitManager(db, mm.dataInit.Environment, fsys)
	sqlManager.logger = mm.logger
	if _, err := sqlManager.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}
