package relayapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhangqi6627/tgchatbot/internal/config"
	tginfra "github.com/zhangqi6627/tgchatbot/internal/infra/telegram"
	"github.com/zhangqi6627/tgchatbot/internal/jobs/sweep"
	redrepo "github.com/zhangqi6627/tgchatbot/internal/repo/redis"
	admincmdsvc "github.com/zhangqi6627/tgchatbot/internal/services/admincmd"
	mediagroupsvc "github.com/zhangqi6627/tgchatbot/internal/services/mediagroup"
	relaysvc "github.com/zhangqi6627/tgchatbot/internal/services/relay"
	verifysvc "github.com/zhangqi6627/tgchatbot/internal/services/verify"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	redis      *goredis.Client
	sweepJob   *sweep.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	routeRepo := redrepo.NewRouteRepo(redisClient)
	accessRepo := redrepo.NewAccessRepo(redisClient)
	challengeRepo := redrepo.NewChallengeRepo(redisClient)
	batchRepo := redrepo.NewBatchRepo(redisClient)

	tgClient, err := tginfra.NewClient(cfg.Bot.Token, cfg.Bot.APIBase)
	if err != nil {
		return nil, fmt.Errorf("init telegram client: %w", err)
	}

	verifyService := verifysvc.NewService(challengeRepo, accessRepo, tgClient, verifysvc.Config{
		ChallengeTTL: cfg.Relay.ChallengeTTL,
		VerifiedTTL:  cfg.Relay.VerifiedTTL,
	}, log)
	batchService := mediagroupsvc.NewService(batchRepo, tgClient, mediagroupsvc.Config{
		QuietPeriod: cfg.Relay.QuietPeriod,
		BatchTTL:    cfg.Relay.BatchTTL,
	}, log)
	commandInterpreter := admincmdsvc.NewInterpreter(routeRepo, accessRepo, tgClient, cfg.Bot.SupergroupID, log)
	relayService := relaysvc.NewService(
		routeRepo,
		accessRepo,
		tgClient,
		verifyService,
		batchService,
		commandInterpreter,
		cfg.Bot.SupergroupID,
		log,
	)
	sweepJob := sweep.New(batchRepo, batchService, log)

	RegisterRoutes(r, Dependencies{
		RelayService: relayService,
		Transport:    tgClient,
		Logger:       log,
		Config:       cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		redis:      redisClient,
		sweepJob:   sweepJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("relay server started", zap.String("addr", a.cfg.HTTP.Addr))

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runSweepLoop(ctx)
	}()
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runSweepLoop(ctx context.Context) error {
	interval := a.cfg.Relay.SweepEvery
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.sweepJob.Run(ctx); err != nil {
				a.logger.Warn("batch sweep failed", zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
