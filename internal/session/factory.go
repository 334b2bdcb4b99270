package session

import (
	"github.com/rs/zerolog/log"
)

// StoreConfig selects the storage backend for client-local state. Redis wins
// when an address is configured, then the file store, then plain memory.
type StoreConfig struct {
	Redis   RedisConfig
	FileDir string
}

// NewStore builds the configured store, falling back to an in-memory store
// when the durable backend cannot be opened. The fallback is logged and the
// caller keeps working with a process-lifetime identity.
func NewStore(cfg StoreConfig) Store {
	if cfg.Redis.Addr != "" {
		store, err := NewRedisStore(cfg.Redis)
		if err == nil {
			return store
		}
		log.Warn().Err(err).Msg("session: redis store unavailable, falling back")
	}

	if cfg.FileDir != "" {
		store, err := NewFileStore(cfg.FileDir)
		if err == nil {
			return store
		}
		log.Warn().Err(err).Msg("session: file store unavailable, falling back")
	}

	return NewMemoryStore()
}
