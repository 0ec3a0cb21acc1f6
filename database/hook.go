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
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes the SQL hooks, e.g. while migrations run.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

func colorWrap(s, code string) string { return fmt.Sprintf("%s%s%s", code, s, ansiReset) }

// QueryHook prints every executed statement, colored by operation. The
// environment variable named by envName overrides enabled ("0" disables,
// "2" also prints successful queries when not verbose).
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook printing all statements to w (stdout when nil).
func NewQueryHook(w io.Writer) *QueryHook {
	if w == nil {
		w = os.Stdout
	}
	return &QueryHook{envName: "SHOW_SQL", enabled: true, verbose: true, writer: w}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	enabled := h.enabled
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = verbose || env == "2"
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		colorWrap(fmt.Sprintf("%8s", "[SQL]"), ansiCyan),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		" ", formatOperationColor(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", color.New(color.BgRed).Sprintf(" %s ", typ+": "+event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func formatOperationColor(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return colorWrap(event.Query, ansiGreen)
	case "INSERT":
		return colorWrap(event.Query, ansiBlue)
	case "UPDATE":
		return colorWrap(event.Query, ansiYellow)
	case "DELETE":
		return colorWrap(event.Query, ansiMagenta)
	default:
		return colorWrap(event.Query, ansiRed)
	}
}

// queryHooks returns the hooks c asks for: bundebug output with
// EnableQueryLog, the colored printer with ShowSQL and a slow query warning
// with SlowQueryTime.
func queryHooks(c *ConnectionConfig, logger Logger) []bun.QueryHook {
	var hooks []bun.QueryHook
	if c.EnableQueryLog {
		hooks = append(hooks, bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if c.ShowSQL {
		hooks = append(hooks, NewQueryHook(nil))
	}
	if c.SlowQueryTime > 0 {
		hooks = append(hooks, slowQueryLog{threshold: c.SlowQueryTime, logger: logger})
	}
	return hooks
}

// slowQueryLog warns about successful statements slower than threshold.
type slowQueryLog struct {
	threshold time.Duration
	logger    Logger
}

func (h slowQueryLog) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h slowQueryLog) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if elapsed := time.Since(event.StartTime); elapsed > h.threshold {
		h.logger.Warn(color.YellowString("Slow query"),
			"elapsed", elapsed, "threshold", h.threshold, "query", event.Query)
	}
}

// QueryCounter counts executed statements by operation. It makes N+1 access
// patterns observable: lazily loading one association per row issues one
// extra SELECT per row, a fetch join issues none.
type QueryCounter struct {
	mu     sync.Mutex
	counts map[string]int
	last   string
}

var _ bun.QueryHook = (*QueryCounter)(nil)

func NewQueryCounter() *QueryCounter {
	return &QueryCounter{counts: make(map[string]int)}
}

func (c *QueryCounter) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (c *QueryCounter) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[event.Operation()]++
	c.last = event.Query
}

// Count returns the number of statements seen for operation, e.g. "SELECT".
func (c *QueryCounter) Count(operation string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[operation]
}

// LastQuery returns the text of the most recent statement.
func (c *QueryCounter) LastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *QueryCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
	c.last = ""
}
