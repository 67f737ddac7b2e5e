package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stressvision/internal/config"
	"stressvision/internal/models"
)

func validConfig(t *testing.T) *config.Config {
	chdir(t, t.TempDir())
	t.Setenv("DB_PATH", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.LogDirectory = filepath.Join(t.TempDir(), "logs")
	return cfg
}

func TestContext_SetupRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.FrameSkip = 0

	ctx := NewContext(cfg)
	err := ctx.Setup()
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))
	assert.Nil(t, ctx.Logger)
}

func TestContext_SetupOpensLogger(t *testing.T) {
	cfg := validConfig(t)

	ctx := NewContext(cfg)
	require.NoError(t, ctx.Setup())
	defer ctx.Close()

	assert.NotNil(t, ctx.Logger)
	assert.DirExists(t, cfg.LogDirectory)
}

func TestContext_OpenDB(t *testing.T) {
	cfg := validConfig(t)
	ctx := NewContext(cfg)

	_, err := ctx.OpenDB()
	assert.ErrorIs(t, err, ErrNoDatabase)

	cfg.DatabasePath = filepath.Join(t.TempDir(), "runs.db")
	db, err := ctx.OpenDB()
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestProgress_TracksHighestIndex(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "processing", 10)

	for _, idx := range []int{0, 3, 6, 9} {
		p.OnFrame(context.Background(), models.OutputFrame{Frame: models.Frame{Index: idx}})
	}
	assert.Equal(t, 10, p.Done())

	p.Finish()
	assert.Contains(t, buf.String(), "processing")
}

func TestProgress_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "processing", 0)

	p.OnFrame(context.Background(), models.OutputFrame{Frame: models.Frame{Index: 4}})
	assert.Equal(t, 5, p.Done())
}
