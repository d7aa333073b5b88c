package observability

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

const (
	routeLimit       = 180
	methodLimit      = 10
	destinationLimit = 16
	lineIDLimit      = 64
	maxLoggedLines   = 20
)

// logSafe drops control characters and keeps at most limit runes.
func logSafe(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if runes := []rune(cleaned); len(runes) > limit {
		cleaned = string(runes[:limit])
	}
	return cleaned
}

// SanitizeRoute prepares a route or path for logs and metric labels.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return logSafe(route, routeLimit)
}

// SanitizeMethod prepares an HTTP method for logs and metric labels.
func SanitizeMethod(method string) string {
	return logSafe(method, methodLimit)
}

// DestinationField logs a destination postal code in the form the zone classifier sees.
func DestinationField(postalCode string) zap.Field {
	return zap.String("destination", logSafe(shipping.NormalizePostalCode(postalCode), destinationLimit))
}

// CartLinesField logs the ids of the first 20 cart lines. Prices and measures stay out of
// the logs.
func CartLinesField(lines []shipping.CartLine) zap.Field {
	n := min(len(lines), maxLoggedLines)
	ids := make([]string, 0, n)
	for _, line := range lines[:n] {
		ids = append(ids, logSafe(line.ID, lineIDLimit))
	}
	return zap.Strings("lines", ids)
}
