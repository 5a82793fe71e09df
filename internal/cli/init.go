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

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tomoncle/foodcheck"
	"github.com/tomoncle/foodcheck/config"
	"github.com/tomoncle/foodcheck/database"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	Seed   bool
	Reseed bool
}

// InitResult is reported by the init command.
type InitResult struct {
	Database   string   `json:"database"`
	Migrations []string `json:"migrations"`
	Seeded     bool     `json:"seeded"`
	Reseeded   bool     `json:"reseeded"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the food tables",
		Long: `Create the food and branded_food tables in the configured database.

With --seed the SQL files under the seed directory (common/ and
environments/<env>/) are executed once; the run is recorded in the
migrations table so repeating init does not load them again.

With --reseed the same files are executed again without consulting the
migrations table, for example after the food tables were emptied. Rows
that already exist make the run fail.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "load the SQL seed files")
	cmd.Flags().BoolVar(&opts.Reseed, "reseed", false, "execute the SQL seed files again")
	cmd.MarkFlagsMutuallyExclusive("seed", "reseed")

	return cmd
}

func runInit(rootOpts *RootOptions, opts *InitOptions, cmd *cobra.Command) error {
	out := newFormatter(rootOpts, cmd)

	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	configureLogging(cfg, rootOpts)

	dbCfg := cfg.ConfigLoader()
	if opts.Seed {
		dbCfg.DataInitConfig.AutoInitOnMigration = true
	}

	foodcheck.RegisterModels()
	ctx := cmd.Context()
	db, err := database.InitDatabaseWithOptions(ctx, dbCfg, true)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeDatabase, err)
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			database.GetLogger().Warn("Failed to close database", "error", err)
		}
	}()

	if opts.Reseed {
		if err := database.InitData(ctx); err != nil {
			return out.Fail(ExitCommandError, ErrCodeDatabase, err)
		}
		out.VerboseLog("seed files executed")
	}

	applied, err := database.NewMigrationManager(db, nil).AppliedVersions(ctx)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeDatabase, err)
	}
	out.VerboseLog("applied migrations: %v", applied)

	result := &InitResult{
		Database:   dbCfg.ConnectionConfig.DBName,
		Migrations: applied,
		Seeded:     opts.Seed,
		Reseeded:   opts.Reseed,
	}
	return out.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "database %s ready, migrations applied: %v\n", result.Database, result.Migrations)
		return err
	})
}
