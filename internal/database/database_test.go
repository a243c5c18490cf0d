package database

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestOpen_RecordNotFoundIsQuiet(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, MigrateShared(db))
	buf := captureLogs(t)

	var tok models.OAuthToken
	err = db.Where("user_id = ?", "nobody").First(&tok).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())
}

func TestOpen_QueryErrorsGoThroughSlog(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	buf := captureLogs(t)

	require.Error(t, db.Exec("SELECT * FROM missing_table").Error)
	assert.Contains(t, buf.String(), `"component":"gorm"`)
	assert.Contains(t, buf.String(), "missing_table")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver")
}
