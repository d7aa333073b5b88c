package observability

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

func TestSanitizeRoute(t *testing.T) {
	if got := SanitizeRoute(""); got != "/" {
		t.Fatalf("expected / for empty route, got %q", got)
	}
	if got := SanitizeRoute("/api/v1/shipping\r\n/calculate"); got != "/api/v1/shipping/calculate" {
		t.Fatalf("expected control characters removed, got %q", got)
	}
	long := "/" + strings.Repeat("é", routeLimit+5)
	got := SanitizeRoute(long)
	if utf8.RuneCountInString(got) != routeLimit || !utf8.ValidString(got) {
		t.Fatalf("expected %d valid runes, got %d", routeLimit, utf8.RuneCountInString(got))
	}
}

func TestShippingLogFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	lines := make([]shipping.CartLine, 0, maxLoggedLines+5)
	for i := 0; i < maxLoggedLines+5; i++ {
		lines = append(lines, shipping.CartLine{ID: fmt.Sprintf("sku-%d\t", i)})
	}
	logger.Info("quote", DestinationField(" x8300\x00abc "), CartLinesField(lines))

	entry := logs.All()[0].ContextMap()
	if entry["destination"] != "X8300ABC" {
		t.Fatalf("unexpected destination %v", entry["destination"])
	}
	ids, ok := entry["lines"].([]interface{})
	if !ok || len(ids) != maxLoggedLines {
		t.Fatalf("expected %d logged line ids, got %#v", maxLoggedLines, entry["lines"])
	}
	if ids[0] != "sku-0" {
		t.Fatalf("expected control characters stripped from ids, got %v", ids[0])
	}
}
