package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type StorageConfig struct {
	// Path is the BoltDB file holding pool cache snapshots.
	// Default: "./data/pools.db"
	Path string

	// Enabled controls whether pool caches are persisted to disk.
	// Default: true
	Enabled bool

	// FlushInterval is how often the pool caches are snapshotted.
	// Default: 30s
	FlushInterval time.Duration
}

func (c *StorageConfig) Key() string {
	return STORAGE_CONFIG_KEY
}

func (c *StorageConfig) Load() error {
	c.Path = common.GetEnvOrDefault("STORAGE_PATH", "./data/pools.db")
	c.Enabled = common.GetEnvOrDefault("STORAGE_ENABLED", "true") == "true"
	c.FlushInterval = time.Duration(common.GetEnvOrDefaultInt("STORAGE_FLUSH_INTERVAL", 30)) * time.Second
	return c.Validate()
}

func (c *StorageConfig) Validate() error {
	if c.Enabled && (c.Path == "" || c.FlushInterval <= 0) {
		return errors.New("invalid storage config")
	}
	return nil
}
