package app

import (
	"context"
	"log"

	"github.com/reelmatch/core/internal/config"
	http_init "github.com/reelmatch/core/internal/delivery/http/init"
	http_queue "github.com/reelmatch/core/internal/delivery/http/queue"
	http_room "github.com/reelmatch/core/internal/delivery/http/room"
	http_swipe "github.com/reelmatch/core/internal/delivery/http/swipe"
	ws_room "github.com/reelmatch/core/internal/delivery/ws/room"
	infra_catalog_file "github.com/reelmatch/core/internal/infra/catalog/file"
	infra_catalog_postgres "github.com/reelmatch/core/internal/infra/catalog/postgres"
	infra_identity "github.com/reelmatch/core/internal/infra/identity"
	"github.com/reelmatch/core/internal/infra/memstore"
	infra_pg_init "github.com/reelmatch/core/internal/infra/postgres/init"
	infra_redis_init "github.com/reelmatch/core/internal/infra/redis/init"
	infra_redis_kv "github.com/reelmatch/core/internal/infra/redis/kv"
	infra_tmdb "github.com/reelmatch/core/internal/infra/tmdb"
	"github.com/reelmatch/core/internal/session"
	"github.com/reelmatch/core/internal/store"
	usecase_catalog "github.com/reelmatch/core/internal/usecase/catalog"
	usecase_room "github.com/reelmatch/core/internal/usecase/room"
)

func Go(cfg *config.Config) {
	ctx := context.Background()

	kv := buildStore(cfg)
	catalog := buildCatalog(ctx, cfg)

	registry := usecase_room.New(kv)
	identity := infra_identity.New()

	hub := ws_room.New()
	sessions := session.NewManager(kv, catalog, hub)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(http_room.New(registry, identity, sessions))
	controllerPool.Add(http_swipe.New(sessions))
	controllerPool.Add(http_queue.New(sessions, catalog))
	controllerPool.Add(ws_room.NewController(hub))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}

// buildStore selects the remote-store variant once, at construction time.
func buildStore(cfg *config.Config) store.KV {
	switch cfg.Store.Backend {
	case "memory":
		return memstore.New()
	case "redis":
		return infra_redis_kv.New(infra_redis_init.MustEstablishConn(cfg.Redis))
	default:
		log.Fatalf("unknown store backend %q", cfg.Store.Backend)
		return nil
	}
}

// buildCatalog loads the session's working set once. A missing catalog is
// fatal; a failing popular-titles feed is not.
func buildCatalog(ctx context.Context, cfg *config.Config) *usecase_catalog.Store {
	var src usecase_catalog.Source
	switch cfg.Catalog.Source {
	case "file":
		src = infra_catalog_file.New(cfg.Catalog.Path)
	case "postgres":
		src = infra_catalog_postgres.New(infra_pg_init.MustEstablishConn(cfg.Postgres))
	default:
		log.Fatalf("unknown catalog source %q", cfg.Catalog.Source)
	}

	var feed usecase_catalog.TitleFeed
	if cfg.TMDB.Token != "" {
		feed = infra_tmdb.New(cfg.TMDB.BaseURL, cfg.TMDB.Token)
	}

	catalog, err := usecase_catalog.Load(ctx, src, feed, cfg.TMDB.Pages)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	return catalog
}
