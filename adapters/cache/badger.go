// Package cache provides a badger-backed translation memory.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
)

const keyPrefix = "tr:"

// Config controls where and how long translations are kept
type Config struct {
	// Dir is the on-disk location; empty keeps the cache in memory
	Dir string
	// TTL expires entries; zero keeps them forever
	TTL time.Duration
}

// TranslationCache implements repositories.TranslationCache on badger
type TranslationCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewTranslationCache opens the badger store described by config
func NewTranslationCache(config Config, logger *zap.Logger) (*TranslationCache, error) {
	opts := badger.DefaultOptions(config.Dir).WithLogger(badgerLogger{logger.Sugar()})
	if config.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation cache: %w", err)
	}

	logger.Info("Translation cache opened",
		zap.Bool("in_memory", config.Dir == ""),
		zap.Duration("ttl", config.TTL))

	return &TranslationCache{db: db, ttl: config.TTL, logger: logger}, nil
}

// Get implements repositories.TranslationCache
func (c *TranslationCache) Get(ctx context.Context, key repositories.TranslationKey) (string, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read translation cache: %w", err)
	}
	return string(value), true, nil
}

// Put implements repositories.TranslationCache
func (c *TranslationCache) Put(ctx context.Context, key repositories.TranslationKey, translated string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(key), []byte(translated))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write translation cache: %w", err)
	}
	return nil
}

// Close flushes and closes the store
func (c *TranslationCache) Close() error {
	return c.db.Close()
}

func cacheKey(key repositories.TranslationKey) []byte {
	h := sha256.New()
	for _, part := range []string{key.Source, key.Target, key.Model, key.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return []byte(keyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// badgerLogger routes badger's internal logging into zap
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
