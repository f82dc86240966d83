package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/idcards/internal/config"
	"github.com/JonMunkholm/idcards/internal/store/memstore"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}

	s, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &memstore.Store{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

	_, _, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestOpen_PostgresBadURL(t *testing.T) {
	cfg := &config.Config{
		Store:    config.StoreConfig{Driver: config.DriverPostgres},
		Database: config.DatabaseConfig{URL: "::not a url::"},
	}

	_, _, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
