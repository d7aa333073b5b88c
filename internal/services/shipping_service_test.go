package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/requestctx"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping/ratefile"
)

type recordingCounter struct {
	noop.Int64Counter
	adds []attribute.Set
}

func (c *recordingCounter) Add(_ context.Context, _ int64, opts ...metric.AddOption) {
	c.adds = append(c.adds, metric.NewAddConfig(opts).Attributes())
}

type recordingMeter struct {
	noop.Meter
	counters map[string]*recordingCounter
}

func (m *recordingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if m.counters == nil {
		m.counters = map[string]*recordingCounter{}
	}
	counter := &recordingCounter{}
	m.counters[name] = counter
	return counter, nil
}

func (m *recordingMeter) outcomes(t *testing.T) []string {
	t.Helper()
	counter, ok := m.counters["shipping.quotes"]
	if !ok {
		t.Fatalf("shipping.quotes counter not registered")
	}
	var out []string
	for _, set := range counter.adds {
		value, _ := set.Value("outcome")
		out = append(out, value.AsString())
	}
	return out
}

func newTestShippingService(t *testing.T, deps ShippingServiceDeps) ShippingService {
	t.Helper()
	if deps.Engine == nil {
		cfg, err := ratefile.Default()
		if err != nil {
			t.Fatalf("ratefile.Default: %v", err)
		}
		engine, err := shipping.NewEngine(cfg)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		deps.Engine = engine
	}
	svc, err := NewShippingService(deps)
	if err != nil {
		t.Fatalf("NewShippingService: %v", err)
	}
	return svc
}

func cartOf(price int64, qty int) []shipping.CartLine {
	return []shipping.CartLine{{
		ID:        "sku-1",
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(price),
		MassGrams: decimal.NewNullDecimal(decimal.NewFromInt(800)),
	}}
}

func TestNewShippingServiceRequiresEngine(t *testing.T) {
	if _, err := NewShippingService(ShippingServiceDeps{}); !errors.Is(err, errShippingEngineRequired) {
		t.Fatalf("expected engine required error, got %v", err)
	}
}

func TestShippingServiceCalculateDerivesSubtotalFromLines(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("ART", -3*60*60))
	meter := &recordingMeter{}
	svc := newTestShippingService(t, ShippingServiceDeps{
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "quote-1" },
		Meter:       meter,
	})

	result, err := svc.Calculate(context.Background(), ShippingQuoteCommand{
		Lines:      cartOf(50000, 2),
		PostalCode: "S2000",
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.ID != "quote-1" {
		t.Fatalf("expected quote id quote-1, got %s", result.ID)
	}
	if !result.ComputedAt.Equal(now) || result.ComputedAt.Location() != time.UTC {
		t.Fatalf("expected computedAt %s in UTC, got %s", now.UTC(), result.ComputedAt)
	}
	if !result.Subtotal.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected derived subtotal 100000, got %s", result.Subtotal)
	}
	if !result.Quote.Free || !result.Quote.Total.IsZero() {
		t.Fatalf("expected free quote, got free=%v total=%s", result.Quote.Free, result.Quote.Total)
	}
	if result.Quote.Zone.ID != "rosario" {
		t.Fatalf("expected rosario zone, got %s", result.Quote.Zone.ID)
	}
	if !result.Progress.Qualifies || !result.Progress.Percentage.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected qualifying progress, got %+v", result.Progress)
	}
	if got := meter.outcomes(t); len(got) != 1 || got[0] != quoteOutcomeFree {
		t.Fatalf("expected one free outcome, got %v", got)
	}
}

func TestShippingServiceCalculateUsesExplicitSubtotalAndPolicy(t *testing.T) {
	svc := newTestShippingService(t, ShippingServiceDeps{})

	result, err := svc.Calculate(context.Background(), ShippingQuoteCommand{
		Lines:      cartOf(50000, 2),
		PostalCode: "1425",
		Subtotal:   decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		Policy:     " Breakdown ",
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.Quote.Free {
		t.Fatalf("explicit subtotal below threshold must not be free")
	}
	if result.Quote.Policy != shipping.PolicyBreakdown {
		t.Fatalf("expected breakdown policy, got %s", result.Quote.Policy)
	}
	if result.Quote.Breakdown == nil {
		t.Fatalf("expected breakdown to be populated")
	}
	if !result.Progress.Remaining.Equal(decimal.NewFromInt(99000)) {
		t.Fatalf("expected remaining 99000, got %s", result.Progress.Remaining)
	}
	if result.ID == "" {
		t.Fatalf("expected generated quote id")
	}
}

func TestShippingServiceCalculateRejections(t *testing.T) {
	tests := []struct {
		name    string
		cmd     ShippingQuoteCommand
		target  error
		outcome string
	}{
		{
			name:    "invalid postal code",
			cmd:     ShippingQuoteCommand{Lines: cartOf(100, 1), PostalCode: " 12 "},
			target:  shipping.ErrInvalidPostalCode,
			outcome: quoteOutcomePostalCode,
		},
		{
			name:    "empty cart",
			cmd:     ShippingQuoteCommand{PostalCode: "2000"},
			target:  shipping.ErrEmptyCart,
			outcome: quoteOutcomeEmptyCart,
		},
		{
			name: "weight exceeded",
			cmd: ShippingQuoteCommand{
				PostalCode: "2000",
				Lines: []shipping.CartLine{{
					ID:        "anvil",
					Quantity:  1,
					UnitPrice: decimal.NewFromInt(10),
					MassGrams: decimal.NewNullDecimal(decimal.NewFromInt(31000)),
				}},
			},
			target:  shipping.ErrWeightExceeded,
			outcome: quoteOutcomeOverweight,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			meter := &recordingMeter{}
			svc := newTestShippingService(t, ShippingServiceDeps{Meter: meter})
			ctx := requestctx.WithLogger(context.Background(), zap.New(core))

			_, err := svc.Calculate(ctx, tc.cmd)
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}

			rejected := logs.FilterMessage("shipping quote rejected").All()
			if len(rejected) != 1 {
				t.Fatalf("expected one rejection log on the request logger, got %d", len(rejected))
			}
			if got := rejected[0].ContextMap()["outcome"]; got != tc.outcome {
				t.Fatalf("expected outcome %s in log, got %v", tc.outcome, got)
			}
			if got := meter.outcomes(t); len(got) != 1 || got[0] != tc.outcome {
				t.Fatalf("expected metric outcome %s, got %v", tc.outcome, got)
			}
		})
	}
}

func TestShippingServiceLogsDestinationAndLineIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := newTestShippingService(t, ShippingServiceDeps{})
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	lines := cartOf(100, 1)
	lines[0].ID = "sku\n1"
	if _, err := svc.Calculate(ctx, ShippingQuoteCommand{Lines: lines, PostalCode: " s2000abc "}); err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	computed := logs.FilterMessage("shipping quote computed").All()
	if len(computed) != 1 {
		t.Fatalf("expected one computed log, got %d", len(computed))
	}
	fields := computed[0].ContextMap()
	if fields["destination"] != "S2000ABC" {
		t.Fatalf("expected normalised destination, got %v", fields["destination"])
	}
	ids, ok := fields["lines"].([]interface{})
	if !ok || len(ids) != 1 || ids[0] != "sku1" {
		t.Fatalf("expected sanitised line ids, got %#v", fields["lines"])
	}
}

func TestShippingServiceCalculateWeightExceededDetails(t *testing.T) {
	svc := newTestShippingService(t, ShippingServiceDeps{})

	_, err := svc.Calculate(context.Background(), ShippingQuoteCommand{
		PostalCode: "2000",
		Lines: []shipping.CartLine{{
			ID:        "anvil",
			Quantity:  2,
			UnitPrice: decimal.NewFromInt(10),
			MassGrams: decimal.NewNullDecimal(decimal.NewFromInt(16000)),
		}},
	})

	var overweight *shipping.WeightExceededError
	if !errors.As(err, &overweight) {
		t.Fatalf("expected WeightExceededError, got %v", err)
	}
	if overweight.ChargeableGrams != 32000 || overweight.MaxGrams != 30000 {
		t.Fatalf("unexpected overweight details %+v", overweight)
	}
}

func TestShippingServiceProgressZonesAndSettings(t *testing.T) {
	svc := newTestShippingService(t, ShippingServiceDeps{})
	ctx := context.Background()

	progress, err := svc.Progress(ctx, decimal.NewFromInt(25000))
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if !progress.Percentage.Equal(decimal.NewFromInt(25)) || progress.Qualifies {
		t.Fatalf("unexpected progress %+v", progress)
	}

	zones, err := svc.Zones(ctx)
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zones) == 0 || zones[len(zones)-1].ID != "nacional" {
		t.Fatalf("expected default zone last, got %+v", zones)
	}

	settings, err := svc.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Currency != "ARS" || settings.Policy != shipping.PolicyRanked {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if settings.MaxChargeableGrams != 30000 || len(settings.BracketBounds) != 3 {
		t.Fatalf("unexpected limits %+v", settings)
	}
	if settings.Origin.PostalCode != "2121" {
		t.Fatalf("unexpected origin %+v", settings.Origin)
	}
}
