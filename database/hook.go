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
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var (
	slowLabel  = color.New(color.FgYellow, color.Bold).SprintFunc()
	selectText = color.New(color.FgGreen).SprintFunc()
	writeText  = color.New(color.FgBlue).SprintFunc()
	otherText  = color.New(color.FgRed).SprintFunc()
)

// SlowQueryHook reports successful queries slower than a threshold, either
// through a Logger or, without one, as a coloured line on its writer.
type SlowQueryHook struct {
	slowTime time.Duration
	logger   Logger
	writer   io.Writer
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(slowTime time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{slowTime: slowTime, logger: logger, writer: os.Stderr}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration <= h.slowTime {
		return
	}

	if h.logger != nil {
		h.logger.Warn(slowLabel("Database slow query detected"),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
		return
	}
	_, _ = fmt.Fprintln(h.writer,
		time.Now().Format("2006-01-02 15:04:05.000"),
		slowLabel(fmt.Sprintf("%15s", "[BUN_SLOW]")),
		fmt.Sprintf("%17s", duration.Round(time.Microsecond)),
		formatOperationColor(event.Operation(), event.Query),
	)
}

func formatOperationColor(operation, query string) string {
	switch operation {
	case "SELECT":
		return selectText(query)
	case "INSERT", "UPDATE", "DELETE":
		return writeText(query)
	default:
		return otherText(query)
	}
}
