package bootstrap

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/relaymail/relaymail/internal/adapter/msgraph"
	"github.com/relaymail/relaymail/internal/adapter/postgres"
	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/pkg/circuitbreaker"
	"github.com/relaymail/relaymail/internal/port"
	"github.com/relaymail/relaymail/internal/service"
	httptransport "github.com/relaymail/relaymail/internal/transport/http"
)

// Container wires adapters into services once at startup.
type Container struct {
	Tenants    []config.Tenant
	Supervisor *service.Supervisor
	Router     http.Handler
}

func New(cfg *config.Settings, tenants []config.Tenant, log *slog.Logger) *Container {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	tokens := service.NewTokenCache(msgraph.NewTokenSource(httpClient))
	sender := msgraph.NewSender(httpClient)
	breaker := circuitbreaker.New(5, 30*time.Second)
	notifier := service.NewNotifier(tokens, sender, breaker, log)

	dialer := postgres.NewStreamDialer(cfg.ConnectTimeout)
	resolver := postgres.NewResolver(cfg.ConnectTimeout)

	factory := func(tenant config.Tenant) port.Runner {
		return service.NewWorker(tenant, dialer, resolver, notifier, log, service.WorkerOptions{
			WaitTimeout: cfg.EventWaitTimeout,
		})
	}

	return &Container{
		Tenants:    tenants,
		Supervisor: service.NewSupervisor(tenants, factory, cfg.SuperviseInterval, log),
		Router:     httptransport.NewRouter(log),
	}
}
