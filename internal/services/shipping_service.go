package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/observability"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/requestctx"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

const shippingInstrumentation = "github.com/ClaudioParedesArbeloDev/GLD-Services/internal/services"

var (
	errShippingEngineRequired = errors.New("shipping service: engine is required")
	errShippingContextNil     = errors.New("shipping service: context is required")
)

// Quote outcomes reported on the shipping.quotes counter.
const (
	quoteOutcomeQuoted       = "quoted"
	quoteOutcomeFree         = "free"
	quoteOutcomePostalCode   = "invalid_postal_code"
	quoteOutcomeEmptyCart    = "empty_cart"
	quoteOutcomeOverweight   = "weight_exceeded"
	quoteOutcomeUnclassified = "error"
)

// ShippingServiceDeps bundles collaborators required to construct the shipping service.
type ShippingServiceDeps struct {
	Engine      *shipping.Engine
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
	Tracer      trace.Tracer
	Meter       metric.Meter
}

type shippingService struct {
	engine *shipping.Engine
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	tracer trace.Tracer

	quotes        metric.Int64Counter
	quotesEnabled bool
	latency       metric.Float64Histogram
	latencyOK     bool
}

var _ ShippingService = (*shippingService)(nil)

// NewShippingService wires the rate engine with logging, tracing and quote metrics.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Engine == nil {
		return nil, errShippingEngineRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(shippingInstrumentation)
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(shippingInstrumentation)
	}

	quotes, quotesErr := meter.Int64Counter(
		"shipping.quotes",
		metric.WithDescription("Shipping quote requests by policy and outcome"),
	)
	if quotesErr != nil {
		logger.Warn("shipping service: unable to register quote counter", zap.Error(quotesErr))
	}
	latency, latencyErr := meter.Float64Histogram(
		"shipping.quote.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds to compute a shipping quote"),
	)
	if latencyErr != nil {
		logger.Warn("shipping service: unable to register latency histogram", zap.Error(latencyErr))
	}

	return &shippingService{
		engine:        deps.Engine,
		logger:        logger,
		now:           func() time.Time { return clock().UTC() },
		newID:         idGen,
		tracer:        tracer,
		quotes:        quotes,
		quotesEnabled: quotesErr == nil,
		latency:       latency,
		latencyOK:     latencyErr == nil,
	}, nil
}

// Calculate prices a cart for a destination. When the command carries no subtotal it is
// derived from the cart lines.
func (s *shippingService) Calculate(ctx context.Context, cmd ShippingQuoteCommand) (ShippingQuote, error) {
	if ctx == nil {
		return ShippingQuote{}, errShippingContextNil
	}

	policy := shipping.Policy(strings.ToLower(strings.TrimSpace(string(cmd.Policy))))
	if policy == "" {
		policy = s.engine.DefaultPolicy()
	}

	subtotal := shipping.Subtotal(cmd.Lines)
	if cmd.Subtotal.Valid {
		subtotal = cmd.Subtotal.Decimal
	}

	ctx, span := s.tracer.Start(ctx, "shipping.calculate", trace.WithAttributes(
		attribute.String("shipping.policy", string(policy)),
		attribute.Int("shipping.lines", len(cmd.Lines)),
	))
	defer span.End()

	started := s.now()
	quote, err := s.engine.Quote(shipping.QuoteRequest{
		Lines:      cmd.Lines,
		PostalCode: cmd.PostalCode,
		Subtotal:   subtotal,
		Policy:     policy,
	})
	elapsed := s.now().Sub(started)

	logger := s.loggerFor(ctx).With(
		zap.String("policy", string(policy)),
		observability.DestinationField(cmd.PostalCode),
		observability.CartLinesField(cmd.Lines),
	)
	if err != nil {
		outcome := quoteOutcome(err)
		s.record(ctx, policy, outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		fields := []zap.Field{zap.String("outcome", outcome), zap.Error(err)}
		var overweight *shipping.WeightExceededError
		if errors.As(err, &overweight) {
			fields = append(fields,
				zap.Int64("chargeable_grams", overweight.ChargeableGrams),
				zap.Int64("max_grams", overweight.MaxGrams),
			)
		}
		logger.Info("shipping quote rejected", fields...)
		return ShippingQuote{}, err
	}

	outcome := quoteOutcomeQuoted
	if quote.Free {
		outcome = quoteOutcomeFree
	}
	s.record(ctx, policy, outcome, elapsed)
	span.SetAttributes(
		attribute.String("shipping.zone", quote.Zone.ID),
		attribute.Bool("shipping.free", quote.Free),
		attribute.Int64("shipping.chargeable_grams", quote.Weight.ChargeableGrams),
	)
	span.SetStatus(codes.Ok, outcome)

	logger.Debug("shipping quote computed",
		zap.String("zone", quote.Zone.ID),
		zap.Bool("free", quote.Free),
		zap.Int64("chargeable_grams", quote.Weight.ChargeableGrams),
		zap.Bool("charged_by_volume", quote.Weight.ChargedByVolume),
		zap.String("total", quote.Total.StringFixed(2)),
	)

	return ShippingQuote{
		ID:         s.newID(),
		ComputedAt: started,
		Subtotal:   subtotal,
		Quote:      quote,
		Progress:   s.engine.Progress(subtotal),
	}, nil
}

func (s *shippingService) Progress(ctx context.Context, subtotal decimal.Decimal) (shipping.FreeShippingProgress, error) {
	if ctx == nil {
		return shipping.FreeShippingProgress{}, errShippingContextNil
	}
	return s.engine.Progress(subtotal), nil
}

func (s *shippingService) Zones(ctx context.Context) ([]shipping.Zone, error) {
	if ctx == nil {
		return nil, errShippingContextNil
	}
	return s.engine.Zones(), nil
}

func (s *shippingService) Settings(ctx context.Context) (ShippingSettings, error) {
	if ctx == nil {
		return ShippingSettings{}, errShippingContextNil
	}
	return ShippingSettings{
		Currency:              s.engine.Currency(),
		Policy:                s.engine.DefaultPolicy(),
		FreeShippingThreshold: s.engine.FreeShippingThreshold(),
		MaxChargeableGrams:    s.engine.MaxChargeableGrams(),
		Origin:                s.engine.Origin(),
		BracketBounds:         s.engine.Tariffs().Bounds(),
	}, nil
}

func (s *shippingService) loggerFor(ctx context.Context) *zap.Logger {
	if logger := requestctx.Logger(ctx); logger != nil && logger != requestctx.NoopLogger() {
		return logger
	}
	return s.logger
}

func (s *shippingService) record(ctx context.Context, policy shipping.Policy, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("policy", string(policy)),
		attribute.String("outcome", outcome),
	)
	if s.quotesEnabled {
		s.quotes.Add(ctx, 1, attrs)
	}
	if s.latencyOK {
		s.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
}

func quoteOutcome(err error) string {
	switch {
	case errors.Is(err, shipping.ErrInvalidPostalCode):
		return quoteOutcomePostalCode
	case errors.Is(err, shipping.ErrEmptyCart):
		return quoteOutcomeEmptyCart
	case errors.Is(err, shipping.ErrWeightExceeded):
		return quoteOutcomeOverweight
	default:
		return quoteOutcomeUnclassified
	}
}
