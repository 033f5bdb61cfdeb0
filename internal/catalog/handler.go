// internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"librarydesk/internal/httpx"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("catalog.http")}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleListBooks)
	r.Post("/", h.HandleAddBook)
	r.Get("/{bookID}", h.HandleGetBook)
	r.Put("/{bookID}", h.HandleUpdateBook)
	r.Delete("/{bookID}", h.HandleRemoveBook)
}

func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	available, _ := strconv.ParseBool(params.Get("available"))

	books, err := h.service.ListBooks(r.Context(), Query{
		Search:        params.Get("search"),
		Ordering:      params.Get("ordering"),
		AvailableOnly: available,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	var req BookInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.service.AddBook(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, book)
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	var req UpdateBookInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) HandleRemoveBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrDuplicateISBN):
		httpx.Detail(w, http.StatusBadRequest, "A book with that isbn already exists.")
	case errors.Is(err, ErrVersionConflict):
		httpx.Detail(w, http.StatusConflict, "The book was modified by another request.")
	default:
		h.logger.Error("request failed", zap.Error(err))
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
