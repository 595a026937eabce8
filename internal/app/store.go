package app

import (
	"fmt"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/sitedir/internal/config"
	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/contentapi"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/memory"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/redisstore"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/sqlitestore"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/redis"
)

// backend is the opened document store plus what the app must ping or close.
type backend struct {
	store  docstore.Store
	pinger deps.Pinger
	closer io.Closer
}

func openBackend(cfg *config.Config, log logger.Logger) (backend, error) {
	switch cfg.StoreBackend {
	case config.BackendContentAPI:
		log.Infof("Using content API %s/%s on branch %s", cfg.ContentOwner, cfg.ContentRepo, cfg.ContentBranch)
		c, err := contentapi.New(contentapi.Config{
			BaseURL:        cfg.ContentAPIURL,
			Owner:          cfg.ContentOwner,
			Repo:           cfg.ContentRepo,
			Branch:         cfg.ContentBranch,
			Token:          cfg.ContentToken,
			PathPrefix:     cfg.ContentPathPrefix,
			CommitterName:  cfg.CommitterName,
			CommitterEmail: cfg.CommitterEmail,
			Timeout:        cfg.ContentTimeout,
		}, &http.Client{Timeout: cfg.ContentTimeout}, log.Named("contentapi"))
		if err != nil {
			return backend{}, err
		}
		return backend{store: c}, nil

	case config.BackendRedis:
		// Fail fast if Redis is unavailable.
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return backend{}, fmt.Errorf("connect redis: %w", err)
		}
		s := redisstore.NewStore(client)
		return backend{store: s, pinger: s, closer: client}, nil

	case config.BackendSQLite:
		log.Infof("Opening SQLite database %s", cfg.SQLitePath)
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return backend{}, err
		}
		return backend{store: s, closer: s}, nil

	case config.BackendMemory:
		log.Warn("memory backend selected, documents are lost on restart")
		return backend{store: memory.New()}, nil
	}
	return backend{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
