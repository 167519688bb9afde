package core

import (
	"fmt"
	"os"
	"strconv"

	"dutyroster/internal/infra/persistence/memory"
	"dutyroster/internal/infra/persistence/postgres"
	"dutyroster/internal/infra/persistence/redisdoc"
	"dutyroster/internal/infra/persistence/sqlite"
	"dutyroster/pkg/domain"
)

// OpenLocalStore selects the durable local snapshot store from the
// environment.
//
//	DUTYROSTER_LOCAL_DRIVER: sqlite|memory (default sqlite)
//	DUTYROSTER_SQLITE_PATH: database file when driver=sqlite (default ./dutyroster.db)
func OpenLocalStore(cfg domain.Config) (domain.LocalStore, func() error, error) {
	driver := os.Getenv("DUTYROSTER_LOCAL_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	switch driver {
	case "sqlite":
		path := os.Getenv("DUTYROSTER_SQLITE_PATH")
		if path == "" {
			path = "dutyroster.db"
		}
		store, err := sqlite.New(path, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown local store driver %s", driver)
	}
}

// OpenRemoteStore selects the optional shared remote store from the
// environment. A nil store means the deployment is local-only.
//
//	DUTYROSTER_REMOTE_DRIVER: none|postgres|redis (default none)
//	DUTYROSTER_POSTGRES_DSN: connection string when driver=postgres
//	DUTYROSTER_REDIS_ADDR / _PASSWORD / _DB: connection when driver=redis
func OpenRemoteStore(cfg domain.Config) (domain.RemoteStore, func() error, error) {
	noop := func() error { return nil }
	switch driver := os.Getenv("DUTYROSTER_REMOTE_DRIVER"); driver {
	case "", "none":
		return nil, noop, nil
	case "postgres":
		dsn := os.Getenv("DUTYROSTER_POSTGRES_DSN")
		if dsn == "" {
			return nil, nil, fmt.Errorf("postgres remote store requires DUTYROSTER_POSTGRES_DSN")
		}
		store, err := postgres.New(dsn, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "redis":
		addr := os.Getenv("DUTYROSTER_REDIS_ADDR")
		if addr == "" {
			return nil, nil, fmt.Errorf("redis remote store requires DUTYROSTER_REDIS_ADDR")
		}
		db := 0
		if raw := os.Getenv("DUTYROSTER_REDIS_DB"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("parse DUTYROSTER_REDIS_DB: %w", err)
			}
			db = parsed
		}
		store := redisdoc.New(redisdoc.Options{
			Addr:     addr,
			Password: os.Getenv("DUTYROSTER_REDIS_PASSWORD"),
			DB:       db,
		}, cfg)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote store driver %s", driver)
	}
}
