package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, name := range files {
		body, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "-- +goose Up"), name)
		assert.True(t, strings.Contains(string(body), "-- +goose Down"), name)
	}
}

func TestMigrations_DiscoveryLogColumns(t *testing.T) {
	body, err := fs.ReadFile(migrations, "migrations/00002_create_discovery_log.sql")
	require.NoError(t, err)

	for _, column := range []string{
		"id", "part_number", "invoice_number", "invoice_date", "discovered_price",
		"authorized_price", "action_taken", "user_decision", "discovery_date",
		"processing_session_id", "notes",
	} {
		assert.Contains(t, string(body), "\n    "+column+" ", column)
	}
}
