package cli

import (
	"errors"
	"fmt"

	"stressvision/internal/config"
	"stressvision/internal/logger"
	"stressvision/internal/repository/sqlite"
)

// ErrNoDatabase is returned by commands that need DB_PATH when it is unset.
var ErrNoDatabase = errors.New("no database configured, set DB_PATH or --db")

// Context is shared by every command. Config is filled from the environment
// before the flags are parsed, so flags override it.
type Context struct {
	Config *config.Config
	Logger *logger.Logger
}

func NewContext(cfg *config.Config) *Context {
	return &Context{Config: cfg}
}

// Setup validates the final configuration and opens the log files.
func (c *Context) Setup() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger(c.Config.LogDirectory)
	if err != nil {
		return fmt.Errorf("failed to open log directory: %w", err)
	}
	c.Logger = log
	return nil
}

// OpenDB opens the run database.
func (c *Context) OpenDB() (*sqlite.DB, error) {
	if c.Config.DatabasePath == "" {
		return nil, ErrNoDatabase
	}
	return sqlite.New(c.Config.DatabasePath)
}

func (c *Context) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
