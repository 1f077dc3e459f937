package client

import (
	"testing"

	"storefront/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLiteMigrates(t *testing.T) {
	db, err := InitDB("sqlite://file:initdb?mode=memory")
	require.NoError(t, err)

	for _, table := range model.All() {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestInitDB_UnsupportedScheme(t *testing.T) {
	_, err := InitDB("oracle://nope")
	assert.Error(t, err)
}
