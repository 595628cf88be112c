package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/titikruang/ruang/internal/broker"
	"github.com/titikruang/ruang/internal/config"
	"github.com/titikruang/ruang/internal/database"
	"github.com/titikruang/ruang/internal/identity"
	"github.com/titikruang/ruang/internal/logger"
	"github.com/titikruang/ruang/internal/repository"
	memoryrepo "github.com/titikruang/ruang/internal/repository/memory"
	postgresrepo "github.com/titikruang/ruang/internal/repository/postgres"
	"github.com/titikruang/ruang/internal/server"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/internal/transport/http/middleware"
	"github.com/titikruang/ruang/internal/transport/ws"
	"go.uber.org/zap"
)

const brokerPrefix = "ruang."

type repos struct {
	identities repository.IdentityRepository
	groups     repository.GroupRepository
	messages   repository.MessageRepository
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zl.Fatal("server: stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Storage
	r, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis is shared by the broker and the name store when either asks for it.
	var rdb *redis.Client
	if cfg.BrokerDriver == "redis" || cfg.NameStore == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		zap.L().Info("server: connected to redis")
	}

	b, err := openBroker(cfg, rdb)
	if err != nil {
		return err
	}
	defer b.Close()

	var names identity.NameStore = identity.NewMemoryNameStore()
	if cfg.NameStore == "redis" {
		names = identity.NewRedisNameStore(rdb, cfg.NameTTL)
	}

	// Services
	authService := service.NewAuthService(r.identities, cfg.JWTSecret, cfg.TokenTTL)
	groupService := service.NewGroupService(r.groups, cfg.GroupQuota)
	messageService := service.NewMessageService(r.messages, r.groups, b)
	reactionService := service.NewReactionService(r.messages, r.groups, b)

	hub := ws.NewHub()
	go hub.Run(ctx)

	limiter := middleware.NewIPRateLimiter(cfg.SignInRatePerMinute, cfg.SignInBurst)
	go limiter.Run(ctx)

	handler := server.NewRouter(server.Deps{
		Auth:           authService,
		Groups:         groupService,
		Messages:       messageService,
		Reactions:      reactionService,
		Names:          names,
		Hub:            hub,
		Limiter:        limiter,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("broker", cfg.BrokerDriver),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (repos, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return repos{}, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return repos{}, nil, err
		}
		zap.L().Info("server: connected to database")

		return repos{
			identities: postgresrepo.NewIdentityRepo(pool),
			groups:     postgresrepo.NewGroupRepo(pool),
			messages:   postgresrepo.NewMessageRepo(pool),
		}, pool.Close, nil

	case "memory":
		clock := memoryrepo.NewClock(time.Now)
		return repos{
			identities: memoryrepo.NewIdentityRepo(),
			groups:     memoryrepo.NewGroupRepo(clock),
			messages:   memoryrepo.NewMessageRepo(clock),
		}, func() {}, nil
	}
	return repos{}, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openBroker(cfg *config.Config, rdb *redis.Client) (broker.Broker, error) {
	switch cfg.BrokerDriver {
	case "memory":
		return broker.NewMemory(), nil

	case "redis":
		return broker.NewRedis(rdb, brokerPrefix), nil

	case "nats":
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("ruang"))
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		zap.L().Info("server: connected to nats", zap.String("url", cfg.NATSURL))
		return broker.NewNATS(nc, brokerPrefix), nil
	}
	return nil, fmt.Errorf("unknown broker driver %q", cfg.BrokerDriver)
}
