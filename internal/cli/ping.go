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
	"github.com/tomoncle/foodcheck/database"
)

// PingResult is reported by the ping command.
type PingResult struct {
	Type   string                 `json:"type"`
	Health *database.HealthStatus `json:"health"`
	Stats  *database.DBStats      `json:"stats"`
}

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ping",
		Short:         "Check the database connection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(rootOpts, cmd)
		},
	}
	return cmd
}

func runPing(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	s, closeFn, err := openSession(cmd.Context(), opts, out)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := s.queryContext(cmd)
	defer cancel()

	result := &PingResult{
		Type:   s.cfg.Database.Type,
		Health: database.GetHealthStatus(ctx),
		Stats:  database.GetDatabaseStats(),
	}
	if !result.Health.Healthy {
		return out.Fail(ExitCommandError, ErrCodeDatabase, fmt.Errorf("database unhealthy: %s", result.Health.LastError))
	}
	return out.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s ok in %s (open %d, in use %d, idle %d, max open %d)\n",
			result.Type, result.Health.ResponseTime,
			result.Stats.OpenConns, result.Stats.InUse, result.Stats.Idle, result.Stats.MaxOpenConns)
		return err
	})
}
