package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/handlers"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/config"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/observability"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/services"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping/ratefile"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Shipping services.ShippingService
}

// Container holds the immutable rate engine and everything built on top of it.
type Container struct {
	Config    config.Config
	Logger    *zap.Logger
	Engine    *shipping.Engine
	Formatter *shipping.Formatter
	Metrics   *observability.HTTPMetrics
	Services  Services
	StartedAt time.Time
}

// NewContainer loads the rate configuration and assembles the service graph. The rate file is
// read once; a bad file fails startup instead of serving wrong prices.
func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		return nil, errors.New("di: logger is required")
	}

	engine, err := buildEngine(cfg.Shipping)
	if err != nil {
		return nil, err
	}

	formatter, err := shipping.NewFormatter(cfg.Shipping.Locale, engine.Currency())
	if err != nil {
		return nil, err
	}

	shippingService, err := services.NewShippingService(services.ShippingServiceDeps{
		Engine: engine,
		Logger: logger.Named("shipping"),
		Clock:  time.Now,
	})
	if err != nil {
		return nil, err
	}

	var metrics *observability.HTTPMetrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewHTTPMetrics()
	}

	logger.Info("shipping rates loaded",
		zap.String("rates_file", ratesSource(cfg.Shipping.RatesFile)),
		zap.String("policy", string(engine.DefaultPolicy())),
		zap.String("currency", engine.Currency()),
		zap.Int("zones", len(engine.Zones())),
	)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Engine:    engine,
		Formatter: formatter,
		Metrics:   metrics,
		Services:  Services{Shipping: shippingService},
		StartedAt: time.Now().UTC(),
	}, nil
}

func buildEngine(cfg config.ShippingConfig) (*shipping.Engine, error) {
	rates, err := ratefile.Load(cfg.RatesFile)
	if err != nil {
		return nil, err
	}
	engine, err := shipping.NewEngine(rates)
	if err != nil {
		return nil, fmt.Errorf("di: %s: %w", ratesSource(cfg.RatesFile), err)
	}
	if cfg.Policy != "" {
		engine, err = engine.WithPolicy(shipping.Policy(cfg.Policy))
		if err != nil {
			return nil, err
		}
	}
	return engine, nil
}

func ratesSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// Router builds the HTTP handler with the shared middleware chain and the shipping routes.
func (c *Container) Router() http.Handler {
	httpLogger := c.Logger.Named("http")
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(httpLogger),
		observability.TraceMiddleware(c.Config.Observability.ServiceName),
		observability.RecoveryMiddleware(httpLogger),
		observability.RequestLoggerMiddleware(c.Metrics),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     c.Config.Observability.BuildVersion,
			CommitSHA:   c.Config.Observability.BuildCommit,
			Environment: c.Config.Observability.Environment,
			StartedAt:   c.StartedAt,
		}),
		handlers.WithReadinessCheck("rates", func(context.Context) error {
			if c.Engine == nil || len(c.Engine.Zones()) == 0 {
				return errors.New("rate engine not loaded")
			}
			return nil
		}),
	)

	shippingHandlers := handlers.NewShippingHandlers(c.Services.Shipping,
		handlers.WithShippingFormatter(c.Formatter),
		handlers.WithShippingRateLimit(c.Config.RateLimits.ShippingPerMinute, c.Config.RateLimits.ShippingBurst, time.Now),
		handlers.WithShippingMaxBodyBytes(c.Config.Server.MaxBodyBytes),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithRequestTimeout(c.Config.Server.RequestTimeout),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithShippingRoutes(shippingHandlers.Routes),
	}
	if c.Metrics != nil {
		opts = append(opts, handlers.WithMetricsHandler(c.Config.Metrics.Path, c.Metrics.Handler()))
	}
	return handlers.NewRouter(opts...)
}
