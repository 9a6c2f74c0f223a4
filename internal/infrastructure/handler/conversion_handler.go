// Package handler internal/infrastructure/handler/conversion_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/damon-houk/coin-exchange-widget/internal/application/input"
	"github.com/damon-houk/coin-exchange-widget/internal/application/service"
	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// Settings holds the input settings exposed to the view
type Settings struct {
	MaxDecimals   int
	DebounceDelay time.Duration
	CacheTTL      time.Duration
}

// ConversionHandler exposes the conversion store and coin directory over HTTP
type ConversionHandler struct {
	store     *service.ConversionStore
	directory *service.CoinDirectory
	settings  Settings
	logger    logger.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(store *service.ConversionStore, directory *service.CoinDirectory, settings Settings, log logger.Logger) *ConversionHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if settings.MaxDecimals <= 0 {
		settings.MaxDecimals = input.DefaultMaxDecimals
	}

	return &ConversionHandler{
		store:     store,
		directory: directory,
		settings:  settings,
		logger:    log,
	}
}

// ListCoins handles the coin search used by both currency dropdowns
func (h *ConversionHandler) ListCoins(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	search := r.URL.Query().Get("search")
	side := entity.InputSide(r.URL.Query().Get("side"))

	if side != "" && !side.Valid() {
		h.logger.Warn("Invalid side parameter", map[string]interface{}{
			"request_id": requestID,
			"side":       string(side),
		})
		sendErrorResponse(w, h.logger, "Invalid side",
			"The 'side' query parameter must be 'from' or 'to'", http.StatusBadRequest, requestID)
		return
	}

	if !h.directory.Ready() {
		description := "The coin list is still loading. Please try again shortly."
		if err := h.directory.Err(); err != nil {
			h.logger.Warn("Coin list unavailable", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			description = "The coin list could not be loaded. Please try again later."
		}
		sendErrorResponse(w, h.logger, "Coin list unavailable", description,
			http.StatusServiceUnavailable, requestID)
		return
	}

	var coins []entity.Coin
	if side.Valid() {
		coins = h.directory.SearchForSide(search, side, h.store.State())
	} else {
		coins = h.directory.Search(search, "")
	}

	h.logger.Debug("Coin search", map[string]interface{}{
		"request_id": requestID,
		"search":     search,
		"side":       string(side),
		"count":      len(coins),
	})

	h.sendJSON(w, r, newCoinListResponse(coins))
}

// GetConversion returns the current snapshot
func (h *ConversionHandler) GetConversion(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, r, newConversionResponse(h.store.State()))
}

// SetAmount handles a keystroke in one of the amount fields
func (h *ConversionHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req SetAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	side := entity.InputSide(req.Side)
	if !side.Valid() {
		sendErrorResponse(w, h.logger, "Invalid side",
			"Side must be 'from' or 'to'", http.StatusBadRequest, requestID)
		return
	}

	edit, ok := input.Parse(req.Value, h.settings.MaxDecimals)
	if !ok {
		h.logger.Debug("Edit dropped", map[string]interface{}{
			"request_id":   requestID,
			"value":        req.Value,
			"max_decimals": h.settings.MaxDecimals,
		})
		sendErrorResponse(w, h.logger, "Edit rejected",
			"The value has more fractional digits than allowed", http.StatusUnprocessableEntity, requestID)
		return
	}

	h.logger.Info("Amount edit", map[string]interface{}{
		"request_id": requestID,
		"side":       req.Side,
		"value":      edit.Value,
	})

	h.store.SetAmount(detach(r.Context()), edit.Value, side)
	h.sendJSON(w, r, newConversionResponse(h.store.State()))
}

// SetCurrency handles a dropdown selection
func (h *ConversionHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req SetCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	side := entity.InputSide(req.Side)
	if !side.Valid() {
		sendErrorResponse(w, h.logger, "Invalid side",
			"Side must be 'from' or 'to'", http.StatusBadRequest, requestID)
		return
	}

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		sendErrorResponse(w, h.logger, "Missing symbol",
			"A currency symbol is required", http.StatusBadRequest, requestID)
		return
	}

	state := h.store.State()
	if state.Currency(side) == symbol {
		h.sendJSON(w, r, newConversionResponse(state))
		return
	}

	h.logger.Info("Currency selected", map[string]interface{}{
		"request_id": requestID,
		"side":       req.Side,
		"symbol":     symbol,
	})

	ctx := detach(r.Context())
	if side == entity.SideTo {
		h.store.SetToCurrency(ctx, symbol)
	} else {
		h.store.SetFromCurrency(ctx, symbol)
	}
	h.sendJSON(w, r, newConversionResponse(h.store.State()))
}

// SwapCurrencies exchanges the two selected currencies
func (h *ConversionHandler) SwapCurrencies(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Swapping currencies", map[string]interface{}{
		"request_id": middleware.GetRequestID(r.Context()),
	})

	h.store.SwapCurrencies(detach(r.Context()))
	h.sendJSON(w, r, newConversionResponse(h.store.State()))
}

// GetSettings returns the input settings
func (h *ConversionHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, r, SettingsResponse{
		MaxDecimals:     h.settings.MaxDecimals,
		DebounceDelayMS: h.settings.DebounceDelay.Milliseconds(),
		CacheTTLSeconds: int64(h.settings.CacheTTL / time.Second),
	})
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/coins", h.ListCoins).Methods("GET")
	router.HandleFunc("/conversion", h.GetConversion).Methods("GET")
	router.HandleFunc("/conversion/amount", h.SetAmount).Methods("PUT")
	router.HandleFunc("/conversion/currency", h.SetCurrency).Methods("PUT")
	router.HandleFunc("/conversion/swap", h.SwapCurrencies).Methods("POST")
	router.HandleFunc("/conversion/settings", h.GetSettings).Methods("GET")
	router.HandleFunc("/conversion/stream", h.Stream).Methods("GET")

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"GET /coins",
			"GET /conversion",
			"PUT /conversion/amount",
			"PUT /conversion/currency",
			"POST /conversion/swap",
			"GET /conversion/settings",
			"GET /conversion/stream",
		},
	})
}

// detach keeps request values but not cancellation: a conversion started by a
// client that disconnects still completes and lands in the store.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// sendJSON writes v as the response body. A value that cannot be encoded
// is logged and answered with a 500 instead of an empty 200.
func (h *ConversionHandler) sendJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	requestID := middleware.GetRequestID(r.Context())

	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode response", map[string]interface{}{
			"request_id": requestID,
			"path":       r.URL.Path,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"The response could not be encoded", http.StatusInternalServerError, requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Warn("Failed to write response", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	}

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn("Failed to write error response", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}
