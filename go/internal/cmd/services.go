package main

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/livedraft/go/internal/config"
	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/gateway"
	"github.com/mcdev12/livedraft/go/internal/draft/lock"
	"github.com/mcdev12/livedraft/go/internal/draft/pick"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/metrics"
)

type Services struct {
	Draft *draft.Service
	Pick  *pick.Service
	REST  *gateway.Handler

	closers []func()
}

// Close releases every connection opened by setupServices.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, cfg *config.Config, collector metrics.Collector) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	services := &Services{}

	var (
		repo   state.Repository
		cache  state.Cache
		locker lock.Locker
	)
	switch cfg.Store {
	case config.StoreModeMemory:
		// single process only: the lock and the store live in this binary
		log.Warn().Msg("using in-memory draft store")
		repo = state.NewMemoryRepository()
		locker = lock.NewLocal()
	default:
		database, err := setupDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		services.closers = append(services.closers, func() { database.Close() })

		redisClient, err := setupRedis(ctx, cfg)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.closers = append(services.closers, func() { redisClient.Close() })

		repo = state.NewPostgresRepository(database)
		cache = state.NewRedisCache(redisClient, cfg.Redis.StateTTL)
		locker = lock.NewRedisLocker(redisClient, cfg.Redis.LockTTL)
	}

	var catalog autopick.Catalog
	mongoClient, err := setupMongo(ctx, cfg)
	if err != nil {
		services.Close()
		return nil, err
	}
	if mongoClient != nil {
		services.closers = append(services.closers, func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to disconnect from mongo")
			}
		})
		catalog = autopick.NewMongoCatalog(mongoClient, cfg.Mongo.Database)
	}

	store := state.NewStore(repo, cache, collector)
	runner := state.NewRunner(store, locker, clockwork.NewRealClock(), collector)

	draftApp := draft.NewApp(runner)
	pickApp := pick.NewApp(runner, autopick.NewRanked(catalog), catalog, collector)

	services.Draft = draft.NewService(draftApp)
	services.Pick = pick.NewService(pickApp)
	services.REST = gateway.NewHandler(draftApp, pickApp)

	log.Info().
		Str("store", cfg.Store).
		Bool("catalog", catalog != nil).
		Msg("draft services ready")
	return services, nil
}

