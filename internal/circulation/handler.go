// internal/circulation/handler.go
package circulation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"librarydesk/internal/auth"
	"librarydesk/internal/httpx"
)

const returnedDetail = "Book returned successfully."

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("circulation.http")}
}

// Routes mounts the transaction endpoints. Every route expects an authenticated caller.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/overdue", h.HandleListOverdue)
	r.Post("/checkout/{bookID}", h.HandleCheckout)
	r.Post("/{transactionID}/return", h.HandleReturn)
	r.Get("/{transactionID}/history", h.HandleHistory)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.Detail(w, http.StatusUnauthorized, auth.MsgNotAuthenticated)
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	txn, err := h.service.Checkout(r.Context(), caller.UserID, bookID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.Detail(w, http.StatusUnauthorized, auth.MsgNotAuthenticated)
		return
	}
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	if _, err := h.service.Return(r.Context(), caller.UserID, transactionID); err != nil {
		h.writeError(w, err)
		return
	}
	httpx.Detail(w, http.StatusOK, returnedDetail)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.Detail(w, http.StatusUnauthorized, auth.MsgNotAuthenticated)
		return
	}
	txns, err := h.service.ListMine(r.Context(), caller.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txns)
}

func (h *Handler) HandleListOverdue(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.Detail(w, http.StatusUnauthorized, auth.MsgNotAuthenticated)
		return
	}
	txns, err := h.service.ListOverdueMine(r.Context(), caller.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txns)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.Detail(w, http.StatusUnauthorized, auth.MsgNotAuthenticated)
		return
	}
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}
	events, err := h.service.History(r.Context(), caller.UserID, transactionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrTransactionNotFound):
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrNoCopiesAvailable):
		httpx.Detail(w, http.StatusBadRequest, "No copies available.")
	case errors.Is(err, ErrLoanLimitReached):
		httpx.Detail(w, http.StatusBadRequest, "You have reached the maximum number of open loans.")
	default:
		h.logger.Error("request failed", zap.Error(err))
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
