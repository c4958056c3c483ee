package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
	"github.com/predexchange/predex/internal/server"
	"github.com/predexchange/predex/internal/server/handler"
	"github.com/predexchange/predex/internal/server/ws"
	"github.com/predexchange/predex/internal/service"
)

// ServerMode builds the engine and service layer on top of the wired
// dependencies, seeds the stored exchange configuration, and runs the HTTP
// API until the context is cancelled. Local mode runs the same stack minus
// the Redis and S3 pieces.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	eng := engine.New(deps.Store, domain.SystemClock{}, a.logger)

	if err := a.bootstrap(ctx, eng); err != nil {
		return err
	}

	marketSvc := service.NewMarketService(eng, deps.Store, deps.MarketCache, deps.SignalBus, a.logger)
	orderSvc := service.NewOrderService(eng, deps.Store, deps.RateLimiter, deps.SignalBus, deps.MarketCache, a.logger)
	resolutionSvc := service.NewResolutionService(eng, deps.Store, deps.SignalBus, deps.MarketCache, deps.LockManager, deps.Archiver, a.logger)
	adminSvc := service.NewAdminService(eng, deps.Store, deps.SignalBus, a.logger)

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Markets:     handler.NewMarketHandler(marketSvc, a.logger),
		Orders:      handler.NewOrderHandler(orderSvc, a.logger),
		Resolutions: handler.NewResolutionHandler(resolutionSvc, a.logger),
		Admin:       handler.NewAdminHandler(adminSvc, a.logger),
	}

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub relays bus events to subscribers. Local mode has no bus
	// and therefore no hub.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		APIKey:        a.cfg.Server.APIKey,
		RequestLimit:  a.cfg.Server.RequestLimit,
		RequestWindow: a.cfg.Server.RequestWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// bootstrap seeds the stored exchange configuration and the voter whitelist
// from the static config. Both are idempotent so restarts are harmless.
func (a *App) bootstrap(ctx context.Context, eng *engine.Engine) error {
	admin, err := domain.ParseIdentity(a.cfg.Exchange.Admin)
	if err != nil {
		return fmt.Errorf("app: exchange admin %q: %w", a.cfg.Exchange.Admin, err)
	}
	treasury, err := domain.ParseIdentity(a.cfg.Exchange.Treasury)
	if err != nil {
		return fmt.Errorf("app: exchange treasury %q: %w", a.cfg.Exchange.Treasury, err)
	}

	if err := eng.Bootstrap(ctx, domain.ExchangeConfig{
		Admin:             admin,
		Treasury:          treasury,
		TokenDenom:        a.cfg.Exchange.TokenDenom,
		PlatformFee:       a.cfg.Exchange.PlatformFee,
		ChallengingPeriod: int64(a.cfg.Exchange.ChallengingPeriod.Duration.Seconds()),
		VotingPeriod:      int64(a.cfg.Exchange.VotingPeriod.Duration.Seconds()),
		MinBet:            a.cfg.Exchange.MinBet,
		WhitelistEnabled:  a.cfg.Exchange.WhitelistEnabled,
	}); err != nil {
		return fmt.Errorf("app: bootstrap exchange config: %w", err)
	}

	adminCall := domain.CallInfo{Caller: admin}
	for _, raw := range a.cfg.Exchange.Whitelist {
		voter, err := domain.ParseIdentity(raw)
		if err != nil {
			return fmt.Errorf("app: whitelist entry %q: %w", raw, err)
		}
		err = eng.AddToWhitelist(ctx, adminCall, voter)
		if err != nil && !errors.Is(err, domain.ErrAlreadyWhitelisted) {
			return fmt.Errorf("app: seed whitelist: %w", err)
		}
	}
	return nil
}
