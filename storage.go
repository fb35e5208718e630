package authclient

import (
	"context"
	"fmt"
	"io"

	"github.com/eyoklama/authclient/session"
	"github.com/redis/go-redis/v9"
)

// openBackend builds the credential backend named by cfg. closers collects
// resources the Client must release on Close.
func openBackend(ctx context.Context, cfg StorageConfig, rdb redis.UniversalClient) (session.Backend, []io.Closer, error) {
	var (
		backend session.Backend
		closers []io.Closer
	)

	switch cfg.Backend {
	case StorageMemory:
		backend = session.NewMemoryBackend()
	case StorageFile:
		fb, err := session.NewFileBackend(cfg.Dir, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		backend = fb
	case StorageRedis:
		if rdb == nil {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			closers = append(closers, client)
			rdb = client
		}
		backend = session.NewRedisBackend(rdb, cfg.Namespace)
	case StorageSQLite:
		sb, err := session.OpenSQLiteBackend(ctx, cfg.SQLitePath, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		backend = sb
	default:
		return nil, nil, fmt.Errorf("%w: unknown Storage Backend %q", ErrInvalidConfig, cfg.Backend)
	}

	if cfg.Passphrase == "" {
		return backend, closers, nil
	}
	sealed, err := session.NewSealedBackend(backend, cfg.Passphrase, cfg.Namespace, cfg.Seal.session())
	if err != nil {
		closeAll(append(closers, asCloser(backend)...))
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return sealed, closers, nil
}

func asCloser(b session.Backend) []io.Closer {
	if c, ok := b.(io.Closer); ok {
		return []io.Closer{c}
	}
	return nil
}

func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
