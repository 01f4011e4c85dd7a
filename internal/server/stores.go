package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coachline/coaching-core/internal/api/handler"
	"github.com/coachline/coaching-core/internal/core/ports"
	"github.com/coachline/coaching-core/internal/core/service"
	mongodb "github.com/coachline/coaching-core/internal/infrastructure/db/mongo"
	"github.com/coachline/coaching-core/internal/infrastructure/db/postgres"
	redisdb "github.com/coachline/coaching-core/internal/infrastructure/db/redis"
	"github.com/coachline/coaching-core/internal/infrastructure/memstore"
	"github.com/coachline/coaching-core/internal/infrastructure/queue"
	"github.com/coachline/coaching-core/internal/pkg/config"
)

// Stores holds the two systems of record plus the optional notification dedup.
type Stores struct {
	Identities *service.IdentityService
	Profiles   ports.ProfileStore
	Dedup      queue.Deduper
	Pingers    []handler.Pinger

	closers []func(context.Context) error
}

// OpenStores connects every configured backend. Mongo and Postgres fall back to the
// in-memory stores when their URL is empty; Redis dedup is skipped without an address.
// When migrate is set the embedded profile schema is applied before the pool opens.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool, log zerolog.Logger) (_ *Stores, err error) {
	st := &Stores{}
	defer func() {
		if err != nil {
			_ = st.Close(context.WithoutCancel(ctx))
		}
	}()

	var identityRepo ports.IdentityRepository
	if cfg.Mongo.URI != "" {
		client, db, cerr := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if cerr != nil {
			return nil, cerr
		}
		st.closers = append(st.closers, client.Disconnect)
		repo := mongodb.NewIdentityRepository(db)
		if err = repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		identityRepo = repo
		st.Pingers = append(st.Pingers, mongodb.Pinger{Client: client})
		log.Info().Str("database", cfg.Mongo.Database).Msg("identity store: mongo")
	} else {
		identityRepo = memstore.NewIdentityRepository()
		log.Warn().Msg("identity store: in-memory (MONGO_URI not set)")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = ephemeralSecret()
		log.Warn().Msg("JWT_SECRET not set, sessions will not survive a restart")
	}
	st.Identities = service.NewIdentityService(identityRepo, service.SessionConfig{
		Secret:         secret,
		TTL:            cfg.SessionTTL,
		MinPasswordLen: cfg.MinPasswordLen,
	}, log.With().Str("component", "identity").Logger())

	if cfg.Postgres.URL != "" {
		if migrate {
			version, merr := postgres.Migrate(cfg.Postgres.URL, 0)
			if merr != nil {
				return nil, merr
			}
			log.Info().Uint("version", version).Msg("profile schema migrated")
		}
		pool, perr := postgres.NewPool(ctx, postgres.Config{URL: cfg.Postgres.URL, MaxConns: cfg.Postgres.MaxConns})
		if perr != nil {
			return nil, perr
		}
		st.closers = append(st.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		st.Profiles = postgres.NewProfileRepository(pool)
		st.Pingers = append(st.Pingers, postgres.Pinger{Pool: pool})
		log.Info().Msg("profile store: postgres")
	} else {
		st.Profiles = memstore.NewProfileStore()
		log.Warn().Msg("profile store: in-memory (POSTGRES_URL not set)")
	}

	if cfg.Redis.Addr != "" {
		client, rerr := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if rerr != nil {
			return nil, rerr
		}
		st.closers = append(st.closers, func(context.Context) error { return client.Close() })
		st.Dedup = redisdb.NewDedupChecker(client, 24*time.Hour)
		st.Pingers = append(st.Pingers, redisdb.Pinger{Client: client})
	}

	return st, nil
}

// Close releases every backend in reverse order of opening.
func (st *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	st.closers = nil
	return errors.Join(errs...)
}

func ephemeralSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
