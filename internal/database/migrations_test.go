package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version, "migrations must be sorted by version")
	}
}

func TestInitMigration_Invariants(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)

	sql := migrations[0].SQL
	assert.Contains(t, sql, "CHECK (sold <= quantity)")
	assert.Contains(t, sql, "UNIQUE (order_id, sequence_number)")
	assert.Contains(t, sql, "qr_code TEXT NOT NULL UNIQUE")
	assert.Contains(t, sql, "UNIQUE (user_id, event_id)")
	assert.Contains(t, sql, "BEFORE UPDATE OR DELETE ON verification_logs")
}
