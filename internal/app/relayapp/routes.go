package relayapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhangqi6627/tgchatbot/internal/config"
	relaysvc "github.com/zhangqi6627/tgchatbot/internal/services/relay"
	"github.com/zhangqi6627/tgchatbot/internal/transport/http/handlers"
)

type Dependencies struct {
	RelayService *relaysvc.Service
	Transport    handlers.Notifier
	Logger       *zap.Logger
	Config       config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(
		deps.RelayService,
		deps.Transport,
		deps.Config.Bot.SupergroupID,
		deps.Config.Bot.WebhookSecret,
		deps.Logger,
	)

	r.Get("/healthz", healthHandler.Handle)
	r.Post("/webhook", webhookHandler.Handle)
}
