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
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomoncle/foodcheck"
	"github.com/tomoncle/foodcheck/config"
	"github.com/tomoncle/foodcheck/database"
	"github.com/tomoncle/foodcheck/utils"
)

// session is one opened database plus the settings it was opened with.
type session struct {
	cfg     *config.Config
	service foodcheck.Service
	timeout time.Duration
}

// openSession loads the configuration, applies logging settings and opens
// the global database. The caller must call close.
func openSession(ctx context.Context, opts *RootOptions, out *OutputFormatter) (*session, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, out.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	configureLogging(cfg, opts)
	if cfg.Path != "" {
		out.VerboseLog("using config %s", cfg.Path)
	}

	foodcheck.RegisterModels()
	dbCfg := cfg.ConfigLoader()
	if _, err := database.InitDB(ctx, dbCfg); err != nil {
		return nil, nil, out.Fail(ExitCommandError, ErrCodeDatabase, err)
	}
	out.VerboseLog("connected to %s database %s", dbCfg.ConnectionConfig.Type, dbCfg.ConnectionConfig.DBName)

	s := &session{
		cfg:     cfg,
		service: foodcheck.NewService(),
		timeout: dbCfg.ConnectionConfig.ConnectTimeout + dbCfg.ConnectionConfig.ReadTimeout,
	}
	closeFn := func() {
		if err := database.CloseDB(); err != nil {
			database.GetLogger().Warn("Failed to close database", "error", err)
		}
	}
	return s, closeFn, nil
}

func configureLogging(cfg *config.Config, opts *RootOptions) {
	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	utils.ConfigureLogLevel(level)
	utils.ConfigureConsoleLogFormat(cfg.Logging.Format)
}

// queryContext bounds a single command's database work.
func (s *session) queryContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), s.timeout)
}

// failQuery maps service errors to exit codes.
func failQuery(out *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, foodcheck.ErrProductNotFound):
		return out.Fail(ExitFailure, ErrCodeNotFound, err)
	case errors.Is(err, foodcheck.ErrNoIngredients):
		return out.Fail(ExitFailure, ErrCodeNoIngredients, err)
	default:
		return out.Fail(ExitCommandError, ErrCodeDatabase, err)
	}
}
