// Package rest provides HTTP handlers for the beer stock operations.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"github.com/abgdnv/beerstock/internal/service"
	"github.com/abgdnv/beerstock/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// statusByError maps domain failures to HTTP status codes. The first match wins.
var statusByError = []struct {
	target error
	status int
}{
	{beererrors.ErrBeerNotFound, http.StatusNotFound},
	{beererrors.ErrBeerAlreadyRegistered, http.StatusBadRequest},
	{beererrors.ErrStockExceeded, http.StatusBadRequest},
	{beererrors.ErrStockBelowZero, http.StatusBadRequest},
	{beererrors.ErrInvalidAmount, http.StatusBadRequest},
	{beererrors.ErrOptimisticLock, http.StatusConflict},
}

// statusFor returns the HTTP status for err, 500 for anything unmapped.
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.target) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

type Handler struct {
	service  service.StockService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.StockService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the beer stock service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/beers", func(r chi.Router) {
		r.Get("/", h.ListAll)
		r.Post("/", h.Create)
		r.Get("/id/{id}", h.FindByID)
		r.Get("/{name}", h.FindByName)
		r.Delete("/{id}", h.DeleteByID)
		r.Patch("/{id}/increment", h.Increment)
		r.Patch("/{id}/decrement", h.Decrement)
	})

	r.Get("/healthz", h.HealthCheck)
}

// Create registers a new beer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var beerCreateDto service.BeerCreateDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &beerCreateDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create beer", "beer", beerCreateDto)

	created, err := h.service.Create(r.Context(), beerCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, "Error creating beer", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Beer created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// ListAll returns every registered beer.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.ListAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, "Error retrieving beer list", err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved beer list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByName retrieves a beer by its name.
func (h *Handler) FindByName(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.PathValue("name")
	mLogger.DebugContext(r.Context(), "Received request to find beer by name", "Name", name)

	found, err := h.service.FindByName(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, "Error retrieving beer", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindByID retrieves a beer by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to find beer by ID", "ID", id)

	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, "Error retrieving beer", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// DeleteByID deletes a beer by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete beer", "ID", id)

	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, "Error deleting beer", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Beer deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// Increment adds the requested quantity to a beer's stock.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.changeStock(w, r, "increment", h.service.Increment)
}

// Decrement removes the requested quantity from a beer's stock.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.changeStock(w, r, "decrement", h.service.Decrement)
}

type stockOperation func(ctx context.Context, id int64, amount int) (*service.BeerDto, error)

func (h *Handler) changeStock(w http.ResponseWriter, r *http.Request, operation string, apply stockOperation) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var quantityDto service.QuantityDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &quantityDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received stock request", "operation", operation, "ID", id, "quantity", quantityDto.Quantity)

	updated, err := apply(r.Context(), id, quantityDto.Quantity)
	if err != nil {
		h.respondServiceError(w, r, mLogger, "Error changing beer stock", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Beer stock changed successfully", "operation", operation, "ID", updated.ID, "quantity", updated.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// respondServiceError logs err and writes the mapped status. Domain failures carry their own message.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, "error", err)
		web.RespondError(w, logger, status, "Internal server error")
		return
	}
	logger.WarnContext(r.Context(), msg, "status", status, "error", err)
	web.RespondError(w, logger, status, err.Error())
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
