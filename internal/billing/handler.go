package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-clinic/meridian/internal/platform/httpx"
)

// Handler manages billing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	idem      *IdempotencyStore
	validator *validator.Validate
}

// NewHandler builds Handler instance. idem may be nil, in which case
// creation requests are not deduplicated.
func NewHandler(logger *slog.Logger, service *Service, idem *IdempotencyStore) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		idem:      idem,
		validator: validator.New(),
	}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{id}", h.showInvoice)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = uuid.NewString()
	}
	if h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), key); err != nil {
			if errors.Is(err, ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this invoice was already created")
				return
			}
			h.logger.Error("claim idempotency key", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	inv, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		h.logger.Error("create invoice",
			slog.Any("error", err),
			slog.Int64("patient_id", req.PatientID))
		if h.idem != nil {
			// Release the key so the client's retry is not rejected as a
			// duplicate of a creation that never happened.
			if delErr := h.idem.Delete(r.Context(), key); delErr != nil {
				h.logger.Error("release idempotency key", slog.Any("error", delErr))
			}
		}
		// Numbering internals are meaningless to callers; every creation
		// failure reads the same and is safe to retry.
		httpx.Problem(w, http.StatusInternalServerError, "Invoice Creation Failed",
			"could not create invoice, please retry")
		return
	}

	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	var patientID int64
	if raw := r.URL.Query().Get("patient_id"); raw != "" {
		var err error
		patientID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "patient_id must be an integer")
			return
		}
	}

	invoices, err := h.service.ListInvoices(r.Context(), ListInvoicesRequest{
		PatientID: patientID,
		DateKey:   r.URL.Query().Get("date_key"),
		Limit:     100,
	})
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoice ID")
		return
	}

	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
			return
		}
		h.logger.Error("get invoice", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}
