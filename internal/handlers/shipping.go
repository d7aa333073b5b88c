package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/httpx"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/services"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

const (
	maxLineIDLength   = 128
	moneyJSONDecimals = 2
)

// ShippingHandlers exposes quote, progress and catalogue endpoints under /shipping.
type ShippingHandlers struct {
	service   services.ShippingService
	formatter *shipping.Formatter
	limiter   rateLimiter
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	maxBody   int64
}

// ShippingHandlerOption customises shipping handlers.
type ShippingHandlerOption func(*ShippingHandlers)

// WithShippingFormatter enables localised display labels in responses.
func WithShippingFormatter(f *shipping.Formatter) ShippingHandlerOption {
	return func(h *ShippingHandlers) {
		h.formatter = f
	}
}

// WithShippingRateLimit limits requests per client. Non-positive perMinute disables it.
func WithShippingRateLimit(perMinute, burst int, clock func() time.Time) ShippingHandlerOption {
	return func(h *ShippingHandlers) {
		h.limiter = newClientRateLimiter(perMinute, burst, clock)
	}
}

// WithShippingMaxBodyBytes caps the calculate request body.
func WithShippingMaxBodyBytes(limit int64) ShippingHandlerOption {
	return func(h *ShippingHandlers) {
		if limit > 0 {
			h.maxBody = limit
		}
	}
}

// NewShippingHandlers constructs the shipping HTTP surface.
func NewShippingHandlers(service services.ShippingService, opts ...ShippingHandlerOption) *ShippingHandlers {
	h := &ShippingHandlers{
		service:   service,
		validate:  newRequestValidator(),
		sanitizer: bluemonday.StrictPolicy(),
		maxBody:   defaultMaxBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(rateLimitMiddleware(h.limiter))
	r.Post("/calculate", h.calculate)
	r.Get("/free-shipping-progress", h.freeShippingProgress)
	r.Get("/zones", h.zones)
	r.Get("/config", h.settings)
}

type calculateShippingRequest struct {
	Items                 []shippingItemRequest `json:"items" validate:"max=200,dive"`
	DestinationPostalCode string                `json:"destinationPostalCode" validate:"max=32"`
	Subtotal              flexibleNumber        `json:"subtotal" validate:"omitempty,measure,gte=0"`
	Policy                string                `json:"policy" validate:"omitempty,oneof=breakdown ranked"`
}

type shippingItemRequest struct {
	ID        string         `json:"id" validate:"max=128"`
	Quantity  flexibleNumber `json:"quantity" validate:"omitempty,measure"`
	UnitPrice flexibleNumber `json:"unitPrice" validate:"omitempty,measure,gte=0"`
	MassGrams flexibleNumber `json:"massGrams" validate:"omitempty,measure"`
	Length    flexibleNumber `json:"length" validate:"omitempty,measure"`
	Width     flexibleNumber `json:"width" validate:"omitempty,measure"`
	Height    flexibleNumber `json:"height" validate:"omitempty,measure"`
}

func (h *ShippingHandlers) calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, h.maxBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.InvalidRequest(err.Error()))
		}
		return
	}

	var req calculateShippingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.InvalidRequest("request body must be a JSON object"))
		return
	}
	req.Policy = strings.ToLower(strings.TrimSpace(req.Policy))
	if err := h.validate.StructCtx(ctx, req); err != nil {
		httpx.WriteError(ctx, w, httpx.InvalidRequest("request validation failed", validationViolations(err)...))
		return
	}

	result, err := h.service.Calculate(ctx, services.ShippingQuoteCommand{
		Lines:      h.cartLines(req.Items),
		PostalCode: req.DestinationPostalCode,
		Subtotal:   req.Subtotal.NullDecimal,
		Policy:     shipping.Policy(req.Policy),
	})
	if err != nil {
		h.writeShippingError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.quotePayload(result))
}

func (h *ShippingHandlers) freeShippingProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	subtotal := decimal.Zero
	if raw := strings.TrimSpace(r.URL.Query().Get("subtotal")); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.InvalidRequest("subtotal must be a number"))
			return
		}
		if !shipping.InRange(parsed) {
			httpx.WriteError(ctx, w, httpx.InvalidRequest("subtotal is out of range"))
			return
		}
		subtotal = parsed
	}

	progress, err := h.service.Progress(ctx, subtotal)
	if err != nil {
		h.writeShippingError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"subtotal":             money(subtotal),
		"freeShippingProgress": h.progressPayload(progress),
	})
}

func (h *ShippingHandlers) zones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	zones, err := h.service.Zones(ctx)
	if err != nil {
		h.writeShippingError(ctx, w, err)
		return
	}
	items := make([]zonePayload, 0, len(zones))
	for i, zone := range zones {
		payload := buildZonePayload(zone)
		payload.Default = i == len(zones)-1
		items = append(items, payload)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"zones": items})
}

func (h *ShippingHandlers) settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	settings, err := h.service.Settings(ctx)
	if err != nil {
		h.writeShippingError(ctx, w, err)
		return
	}
	payload := settingsPayload{
		Currency:              settings.Currency,
		Policy:                string(settings.Policy),
		FreeShippingThreshold: money(settings.FreeShippingThreshold),
		MaxWeightGrams:        settings.MaxChargeableGrams,
		BracketBounds:         settings.BracketBounds,
		Origin:                buildOriginPayload(settings.Origin),
	}
	if h.formatter != nil {
		payload.FreeShippingThresholdLabel = h.formatter.Money(settings.FreeShippingThreshold)
		payload.MaxWeightLabel = h.formatter.Mass(settings.MaxChargeableGrams)
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *ShippingHandlers) writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	out := httpx.ShippingError(err)
	if out.Weight != nil && h.formatter != nil {
		out.Message = "cart weighs " + h.formatter.Mass(out.Weight.ChargeableGrams) + ", above the maximum of " + h.formatter.Mass(out.Weight.MaxGrams)
	}
	httpx.WriteError(ctx, w, out)
}

func (h *ShippingHandlers) cartLines(items []shippingItemRequest) []shipping.CartLine {
	if len(items) == 0 {
		return nil
	}
	lines := make([]shipping.CartLine, 0, len(items))
	for _, item := range items {
		price := decimal.Zero
		if item.UnitPrice.Valid {
			price = item.UnitPrice.Decimal
		}
		lines = append(lines, shipping.CartLine{
			ID:        h.sanitizeLineID(item.ID),
			Quantity:  quantityOf(item.Quantity),
			UnitPrice: price,
			MassGrams: item.MassGrams.NullDecimal,
			Dimensions: shipping.Dimensions{
				Length: item.Length.NullDecimal,
				Width:  item.Width.NullDecimal,
				Height: item.Height.NullDecimal,
			},
		})
	}
	return lines
}

func (h *ShippingHandlers) sanitizeLineID(id string) string {
	cleaned := strings.TrimSpace(h.sanitizer.Sanitize(id))
	if utf8.RuneCountInString(cleaned) > maxLineIDLength {
		cleaned = string([]rune(cleaned)[:maxLineIDLength])
	}
	return cleaned
}

// quantityOf truncates fractional quantities; absent or non-positive values count as one.
func quantityOf(n flexibleNumber) int {
	if !n.Valid {
		return 1
	}
	q := n.Decimal.IntPart()
	switch {
	case q < 1:
		return 1
	case q > math.MaxInt32:
		return math.MaxInt32
	default:
		return int(q)
	}
}

type breakdownPayload struct {
	Base       json.Number `json:"base"`
	Weight     json.Number `json:"weight"`
	Insurance  json.Number `json:"insurance"`
	Packaging  json.Number `json:"packaging"`
	Handling   json.Number `json:"handling"`
	Surcharges json.Number `json:"surcharges"`
	Total      json.Number `json:"total"`
}

type lineWeightPayload struct {
	ID                  string `json:"id,omitempty"`
	Quantity            int    `json:"quantity"`
	UnitGrams           int64  `json:"unitGrams"`
	UnitVolumetricGrams int64  `json:"unitVolumetricGrams"`
	DefaultMass         bool   `json:"defaultMass"`
	DefaultDimensions   bool   `json:"defaultDimensions"`
}

type weightPayload struct {
	ActualGrams     int64               `json:"actualGrams"`
	VolumetricGrams int64               `json:"volumetricGrams"`
	ChargeableGrams int64               `json:"chargeableGrams"`
	ChargedByVolume bool                `json:"chargedByVolume"`
	Label           string              `json:"label,omitempty"`
	Lines           []lineWeightPayload `json:"lines"`
}

type optionPayload struct {
	Carrier          string      `json:"carrier"`
	CarrierName      string      `json:"carrierName"`
	ServiceLevel     string      `json:"serviceLevel"`
	ServiceLabel     string      `json:"serviceLabel"`
	Price            json.Number `json:"price"`
	PriceLabel       string      `json:"priceLabel,omitempty"`
	DeliveryEstimate string      `json:"deliveryEstimate"`
	Recommended      bool        `json:"recommended"`
}

type postalRangePayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type zonePayload struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	RateArea       string               `json:"rateArea"`
	BaseCost       json.Number          `json:"baseCost"`
	CostPerKg      json.Number          `json:"costPerKg"`
	DeliveryWindow string               `json:"deliveryWindow"`
	Method         string               `json:"method"`
	Ranges         []postalRangePayload `json:"ranges"`
	Default        bool                 `json:"default,omitempty"`
}

type originPayload struct {
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Province   string `json:"province"`
}

type progressPayload struct {
	Threshold      json.Number `json:"threshold"`
	Remaining      json.Number `json:"remaining"`
	RemainingLabel string      `json:"remainingLabel,omitempty"`
	Percentage     json.Number `json:"percentage"`
	Qualifies      bool        `json:"qualifies"`
}

type quotePayload struct {
	QuoteID               string            `json:"quoteId"`
	ComputedAt            string            `json:"computedAt"`
	Policy                string            `json:"policy"`
	Free                  bool              `json:"free"`
	Currency              string            `json:"currency"`
	Subtotal              json.Number       `json:"subtotal"`
	Total                 json.Number       `json:"total"`
	TotalLabel            string            `json:"totalLabel,omitempty"`
	Breakdown             *breakdownPayload `json:"breakdown,omitempty"`
	Options               []optionPayload   `json:"options,omitempty"`
	Zone                  zonePayload       `json:"zone"`
	Weight                weightPayload     `json:"weight"`
	DeliveryEstimate      string            `json:"deliveryEstimate"`
	Service               string            `json:"service"`
	EstimatedOnly         bool              `json:"estimatedOnly"`
	Origin                originPayload     `json:"origin"`
	DestinationPostalCode string            `json:"destinationPostalCode"`
	FreeShippingProgress  progressPayload   `json:"freeShippingProgress"`
}

type settingsPayload struct {
	Currency                   string        `json:"currency"`
	Policy                     string        `json:"policy"`
	FreeShippingThreshold      json.Number   `json:"freeShippingThreshold"`
	FreeShippingThresholdLabel string        `json:"freeShippingThresholdLabel,omitempty"`
	MaxWeightGrams             int64         `json:"maxWeightGrams"`
	MaxWeightLabel             string        `json:"maxWeightLabel,omitempty"`
	BracketBounds              []int64       `json:"bracketBounds"`
	Origin                     originPayload `json:"origin"`
}

func (h *ShippingHandlers) quotePayload(result services.ShippingQuote) quotePayload {
	q := result.Quote
	payload := quotePayload{
		QuoteID:               result.ID,
		ComputedAt:            result.ComputedAt.UTC().Format(time.RFC3339Nano),
		Policy:                string(q.Policy),
		Free:                  q.Free,
		Currency:              q.Currency,
		Subtotal:              money(result.Subtotal),
		Total:                 money(q.Total),
		Zone:                  buildZonePayload(q.Zone),
		Weight:                h.weightPayload(q.Weight),
		DeliveryEstimate:      q.DeliveryEstimate,
		Service:               q.Service,
		EstimatedOnly:         q.EstimatedOnly,
		Origin:                buildOriginPayload(q.Origin),
		DestinationPostalCode: q.DestinationPostalCode,
		FreeShippingProgress:  h.progressPayload(result.Progress),
	}
	if h.formatter != nil {
		payload.TotalLabel = h.formatter.Money(q.Total)
	}
	if b := q.Breakdown; b != nil {
		payload.Breakdown = &breakdownPayload{
			Base:       money(b.Base),
			Weight:     money(b.Weight),
			Insurance:  money(b.Insurance),
			Packaging:  money(b.Packaging),
			Handling:   money(b.Handling),
			Surcharges: money(b.Surcharges),
			Total:      money(b.Total),
		}
	}
	for _, opt := range q.Options {
		item := optionPayload{
			Carrier:          opt.Carrier,
			CarrierName:      opt.CarrierName,
			ServiceLevel:     opt.ServiceLevel,
			ServiceLabel:     opt.ServiceLabel,
			Price:            money(opt.Price),
			DeliveryEstimate: opt.DeliveryEstimate,
			Recommended:      opt.Recommended,
		}
		if h.formatter != nil {
			item.PriceLabel = h.formatter.Money(opt.Price)
		}
		payload.Options = append(payload.Options, item)
	}
	return payload
}

func (h *ShippingHandlers) weightPayload(w shipping.WeightAssessment) weightPayload {
	payload := weightPayload{
		ActualGrams:     w.ActualGrams,
		VolumetricGrams: w.VolumetricGrams,
		ChargeableGrams: w.ChargeableGrams,
		ChargedByVolume: w.ChargedByVolume,
		Lines:           make([]lineWeightPayload, 0, len(w.Lines)),
	}
	if h.formatter != nil {
		payload.Label = h.formatter.Weight(w)
	}
	for _, line := range w.Lines {
		payload.Lines = append(payload.Lines, lineWeightPayload{
			ID:                  line.ID,
			Quantity:            line.Quantity,
			UnitGrams:           line.UnitGrams,
			UnitVolumetricGrams: line.UnitVolumetricGrams,
			DefaultMass:         line.DefaultMass,
			DefaultDimensions:   line.DefaultDimensions,
		})
	}
	return payload
}

func (h *ShippingHandlers) progressPayload(p shipping.FreeShippingProgress) progressPayload {
	payload := progressPayload{
		Threshold:  money(p.Threshold),
		Remaining:  money(p.Remaining),
		Percentage: money(p.Percentage),
		Qualifies:  p.Qualifies,
	}
	if h.formatter != nil {
		payload.RemainingLabel = h.formatter.Money(p.Remaining)
	}
	return payload
}

func buildZonePayload(z shipping.Zone) zonePayload {
	ranges := make([]postalRangePayload, 0, len(z.Ranges))
	for _, r := range z.Ranges {
		ranges = append(ranges, postalRangePayload{From: r.From, To: r.To})
	}
	return zonePayload{
		ID:             z.ID,
		Name:           z.Name,
		RateArea:       z.RateArea,
		BaseCost:       money(z.BaseCost),
		CostPerKg:      money(z.CostPerKg),
		DeliveryWindow: z.DeliveryWindow,
		Method:         z.Method,
		Ranges:         ranges,
	}
}

func buildOriginPayload(o shipping.Origin) originPayload {
	return originPayload{PostalCode: o.PostalCode, City: o.City, Province: o.Province}
}

// money renders an amount as a JSON number literal with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(moneyJSONDecimals))
}
