package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
	"github.com/mirror520/collab/persistence"
	"github.com/mirror520/collab/policy"
	"github.com/mirror520/collab/pubsub"
	"github.com/mirror520/collab/session"
	"github.com/mirror520/collab/transport/http"
	"github.com/mirror520/collab/workspace"

	_ "github.com/mirror520/collab/pubsub/inmem"
	_ "github.com/mirror520/collab/pubsub/nats"
	_ "github.com/mirror520/collab/pubsub/redis"
)

func main() {
	app := &cli.App{
		Name:  "collab",
		Usage: "collaborative coding workspace service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "work directory holding config.yaml and local data",
				EnvVars: []string{"COLLAB_PATH"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "http port",
				EnvVars: []string{"COLLAB_PORT"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err.Error())
	}
}

func run(cli *cli.Context) error {
	if err := conf.LoadEnv(cli); err != nil {
		return err
	}

	cfg, err := conf.LoadConfig(conf.Path)
	if err != nil {
		return err
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	if !cfg.Transports.HTTP.Enabled {
		return errors.New("no transport enabled")
	}

	ctx := context.Background()

	svc, closeFn, err := NewService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	r := gin.New()
	r.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		cors.Default(),
	)

	parser := http.NewTokenParser(cfg.JWT.Secret, cfg.BaseURL, cfg.JWT.Leeway)
	http.SetRouter(r, svc, http.Authenticator(parser), cfg.Transports.HTTP.AllowedOrigins, log)

	srv := &stdhttp.Server{
		Addr:    cfg.Transports.HTTP.Internal.Addr(),
		Handler: r,
	}

	go func() {
		log.Info("http server started", zap.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Error(err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("graceful shutdown", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// NewService wires the store, the change bus and the entity services behind
// the policy-checked calling layer. closeFn releases the store and the bus.
func NewService(ctx context.Context, cfg *conf.Config, log *zap.Logger) (svc collab.Service, closeFn func(), err error) {
	store, err := persistence.NewStore(cfg.Persistence)
	if err != nil {
		return nil, nil, err
	}

	bus, err := pubsub.NewPubSub(cfg.EventBus)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	closeFn = func() {
		bus.Close()
		store.Close()
	}

	store = document.PublishingMiddleware(bus, log)(store)

	authz, err := policy.NewRegoPolicy(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	cols := cfg.Collections

	svc = collab.NewService(
		workspace.NewService(store, bus, cols.Workspaces, cfg.Sync.MaxRetries),
		session.NewService(store, bus, cols.Sessions,
			session.WithCursorBroadcast(cfg.Sync.CursorBroadcast),
			session.WithMaxRetries(cfg.Sync.MaxRetries),
		),
		chat.NewService(store, bus, cols.Messages),
		merge.NewService(store, bus, cols.MergeRequests),
		ai.NewClient(cfg.AI, log),
		authz,
	)
	svc = collab.LoggingMiddleware(log)(svc)

	log.Info("service ready",
		zap.String("persistence", cfg.Persistence.Driver.String()),
		zap.String("eventBus", cfg.EventBus.Provider.String()),
		zap.Bool("ai", cfg.AI.APIKey != ""),
	)

	return svc, closeFn, nil
}
