package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/avatar"
	"github.com/magnusohlin/numba/internal/config"
	"github.com/magnusohlin/numba/internal/infra/memory"
	"github.com/magnusohlin/numba/internal/infra/natsbus"
	"github.com/magnusohlin/numba/internal/infra/postgres"
	redisstore "github.com/magnusohlin/numba/internal/infra/redis"
	"github.com/magnusohlin/numba/internal/question"
	transport "github.com/magnusohlin/numba/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var rooms app.RoomRepository
	if redisClient != nil {
		store := redisstore.NewRoomStore(redisClient, redisTTL)
		g.Go(func() error { return store.Run(gctx) })
		rooms = store
	} else {
		rooms = memory.NewRoomStore()
	}

	results, sinks, closeResults, err := buildResults(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeResults()

	questions := question.NewGenerator(config.TTLDuration(cfg.Game.QuestionTime, question.DefaultTimeLimit))
	hub := transport.NewHub()
	coordinator := app.NewCoordinator(rooms, questions, avatar.NewGenerator(nil), hub,
		app.WithTick(config.TTLDuration(cfg.Game.Tick, time.Second)),
		app.WithMaxQuestions(cfg.Game.MaxQuestions),
		app.WithResultSink(sinks),
	)
	janitor := app.NewJanitor(coordinator,
		config.TTLDuration(cfg.Rooms.IdleTTL, 30*time.Minute),
		config.TTLDuration(cfg.Rooms.SweepInterval, time.Minute),
	)
	g.Go(func() error { return janitor.Run(gctx) })

	wsHandler := transport.NewWSHandler(coordinator, hub)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	transport.NewResultsHandler(results).Register(mux)

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      c.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("port", finalPort).Bool("redis", redisClient != nil).Msg("starting numba")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildResults assembles the archive of finished games: a durable or
// in-memory store, an optional NATS publisher and a read cache that every
// new result invalidates.
func buildResults(ctx context.Context, cfg config.Config, redisClient *redis.Client) (app.ResultReader, app.MultiSink, func(), error) {
	var (
		reader  app.ResultReader
		sinks   app.MultiSink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, closeAll, err
		}
		closers = append(closers, pool.Close)
		store := postgres.NewResultStore(pool)
		reader = store
		sinks = append(sinks, store)
	} else {
		store := memory.NewResultStore(cfg.Results.Retain)
		reader = store
		sinks = append(sinks, store)
	}

	if cfg.NATS.URL != "" {
		natsCfg := natsbus.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		if cfg.NATS.SubjectPrefix != "" {
			natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		}
		publisher, err := natsbus.NewResultPublisher(natsCfg)
		if err != nil {
			log.Warn().Err(err).Str("nats_url", cfg.NATS.URL).Msg("result events disabled")
		} else {
			closers = append(closers, publisher.Close)
			sinks = append(sinks, publisher)
		}
	}

	cacheTTL := config.TTLDuration(cfg.Results.CacheTTL, 30*time.Second)
	if redisClient != nil {
		cache := redisstore.NewResultsCache(redisClient, reader, cacheTTL)
		reader = cache
		sinks = append(sinks, cache)
	} else {
		cache := memory.NewResultsCache(reader, cacheTTL)
		reader = cache
		sinks = append(sinks, cache)
	}
	return reader, sinks, closeAll, nil
}
