package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/choubo-app/choubo/internal/platform/httpx"
	internalShared "github.com/choubo-app/choubo/internal/shared"
)

const orgHeader = "X-Organization-ID"

// IdempotencyPort guards posting requests against client retries.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, orgID int64, key, scope string) error
	Delete(ctx context.Context, orgID int64, key string) error
}

// Handler wires the posting endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	idempotency IdempotencyPort
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), idempotency: idempotency}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/ledger/entries", h.handlePost)
	r.Put("/api/ledger/sources/{sourceType}/{sourceID}", h.handleReplaceSource)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs, err := toInputs(req.Entries)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := h.idempotencyKey(r)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), orgID, key, "ledger.post"); err != nil {
			if errors.Is(err, internalShared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this idempotency key was already processed")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	ids, err := h.service.Post(r.Context(), orgID, inputs)
	if err != nil {
		if key != "" && h.idempotency != nil {
			// A rejected batch must stay retryable under the same key.
			if delErr := h.idempotency.Delete(r.Context(), orgID, key); delErr != nil {
				h.logger.Warn("idempotency rollback failed", slog.Any("error", delErr))
			}
		}
		h.logger.Warn("posting rejected",
			slog.Int64("organization_id", orgID),
			slog.String("idempotency_key", key),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, postResponse{IDs: ids})
}

func (h *Handler) handleReplaceSource(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	sourceType := SourceType(chi.URLParam(r, "sourceType"))
	sourceID, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "source id must be an integer")
		return
	}
	var req replaceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs, err := toInputs(req.Entries)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ids, err := h.service.ReplaceDerivedSet(r.Context(), orgID, sourceType, sourceID, inputs)
	if err != nil {
		h.logger.Warn("derived set replace rejected",
			slog.Int64("organization_id", orgID),
			slog.String("source_type", string(sourceType)),
			slog.Int64("source_id", sourceID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, postResponse{IDs: ids})
}

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(orgHeader)
	orgID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orgID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing or invalid "+orgHeader+" header")
		return 0, false
	}
	return orgID, true
}

// idempotencyKey returns the client-supplied key when it is a valid UUID;
// malformed keys are ignored rather than rejected.
func (h *Handler) idempotencyKey(r *http.Request) string {
	raw := r.Header.Get("X-Idempotency-Key")
	if raw == "" {
		return ""
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return key.String()
}
