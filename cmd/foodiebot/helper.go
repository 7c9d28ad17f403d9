package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/conversation"
	"github.com/harunnryd/foodiebot/internal/daemon/components"
	"github.com/harunnryd/foodiebot/internal/orchestrator"
	"github.com/harunnryd/foodiebot/internal/store"
	"github.com/harunnryd/foodiebot/internal/tooling"

	"github.com/spf13/cobra"
)

const (
	dataDirLockTimeout = 2 * time.Second
	dataDirLockRetry   = 100 * time.Millisecond
)

// localRuntime is the in-process stack the one-shot commands run on: the
// locked data dir, the database, a conversation store and the turn engine.
type localRuntime struct {
	cfg    *config.Config
	lock   *store.DirLock
	db     *store.DB
	conv   conversation.Store
	engine *orchestrator.Engine
	tools  *tooling.Components
}

// openDatabase locks the data dir and opens the migrated database. Callers
// must Close the returned runtime.
func openDatabase(ctx context.Context, c *config.Config) (*localRuntime, error) {
	if c == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(c.Server.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lock, err := store.LockDataDir(ctx, c.Server.DataDir, dataDirLockTimeout, dataDirLockRetry)
	if err != nil {
		return nil, fmt.Errorf("data dir %s is in use (is 'foodiebot serve' running?): %w", c.Server.DataDir, err)
	}
	db, err := store.Open(ctx, c.DatabasePath())
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &localRuntime{cfg: c, lock: lock, db: db}, nil
}

// openRuntime extends openDatabase with seed data, the conversation store and
// the engine.
func openRuntime(ctx context.Context, c *config.Config) (*localRuntime, error) {
	rt, err := openDatabase(ctx, c)
	if err != nil {
		return nil, err
	}
	if _, err := rt.db.Seed(ctx, false); err != nil {
		rt.Close()
		return nil, fmt.Errorf("seed database: %w", err)
	}

	rt.conv, err = conversation.New(c.Conversation, rt.db)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	rt.engine, _, rt.tools, err = components.BuildEngine(ctx, c, rt.db, rt.conv)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *localRuntime) Close() {
	if r.db != nil {
		r.db.Close()
	}
	if r.lock != nil {
		r.lock.Unlock()
	}
}

// cliUser resolves the --user flag, falling back to $USER.
func cliUser(cmd *cobra.Command) string {
	user := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("user"); flag != nil {
			user = strings.TrimSpace(flag.Value.String())
		}
	}
	if user == "" {
		user = strings.TrimSpace(os.Getenv("USER"))
	}
	if user == "" {
		user = "local"
	}
	return user
}
