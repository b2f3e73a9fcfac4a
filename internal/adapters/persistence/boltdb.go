package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

const (
	bucketPrefix = "pools:"

	DefaultDBPath = "./data/pools.db"
)

// StoredPoolEntry is the persisted form of one cached token pair.
type StoredPoolEntry struct {
	Pools     []domain.Pool `json:"pools"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Storage keeps pool cache snapshots in BoltDB, one bucket per source keyed
// by pair.
type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[PoolStorage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func bucket(source domain.Source) string {
	return bucketPrefix + string(source)
}

// SaveSnapshot writes every entry of a source in one batch. Entries with no
// pools are stored too, so known empty pairs are not refetched on restart.
func (s *Storage) SaveSnapshot(source domain.Source, entries map[string]StoredPoolEntry) error {
	if len(entries) == 0 {
		return nil
	}

	name := []byte(bucket(source))
	batch := s.db.NewBatch()
	for pair, entry := range entries {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal pair %s: %w", pair, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: name,
			Key:    []byte(pair),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add pair %s to batch: %w", pair, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Str("source", string(source)).Int("count", len(entries)).Msg("[PoolStorage] FAILED to execute batch")
		return err
	}

	log.Debug().Str("source", string(source)).Int("count", len(entries)).Msg("[PoolStorage] saved snapshot")
	return nil
}

// LoadSnapshot reads the entries of a source. Undecodable records are skipped.
func (s *Storage) LoadSnapshot(source domain.Source) (map[string]StoredPoolEntry, error) {
	data, err := s.db.List(bucket(source))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", source, err)
	}

	entries := make(map[string]StoredPoolEntry, len(data))
	failed := 0
	for pair, value := range data {
		var entry StoredPoolEntry
		if err := sonic.Unmarshal(value, &entry); err != nil {
			log.Warn().Str("pair", pair).Err(err).Msg("[PoolStorage] failed to unmarshal entry, skipping")
			failed++
			continue
		}
		entries[pair] = entry
	}

	if failed > 0 {
		log.Error().
			Str("source", string(source)).
			Int("total_in_db", len(data)).
			Int("loaded", len(entries)).
			Int("unmarshal_failed", failed).
			Msg("[PoolStorage] snapshot loading completed with errors")
	} else {
		log.Info().
			Str("source", string(source)).
			Int("loaded", len(entries)).
			Msg("[PoolStorage] snapshot loaded")
	}
	return entries, nil
}

func (s *Storage) PairCount(source domain.Source) (int, error) {
	data, err := s.db.List(bucket(source))
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
