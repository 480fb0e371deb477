package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
)

// Ingester stores a book. *publisher.Publisher satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

// BookGetter loads one book with its content. catalog stores satisfy it.
type BookGetter interface {
	GetBook(ctx context.Context, id int64) (search.Book, error)
}

type Handler struct {
	ingester     Ingester
	books        BookGetter
	minWords     int
	maxBodyBytes int64
	logger       *slog.Logger
}

func New(ing Ingester, books BookGetter, minWords int, maxBodyBytes int64) *Handler {
	return &Handler{
		ingester:     ing,
		books:        books,
		minWords:     minWords,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/books", h.Ingest)
	mux.HandleFunc("GET /api/v1/books/{id}", h.GetBook)
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	var req ingestion.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Normalize()
	if err := validator.ValidateIngestRequest(&req, h.minWords); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed", "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, apperrors.PublicMessage(err, "ingestion failed"))
		return
	}
	status := http.StatusAccepted
	if resp.Duplicate {
		status = http.StatusOK
	}
	log.Info("book ingested",
		"book_id", resp.BookID,
		"words", resp.WordCount,
		"duplicate", resp.Duplicate,
	)
	h.writeJSON(w, status, resp)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, http.StatusBadRequest, "book id must be a positive integer")
		return
	}
	book, err := h.books.GetBook(r.Context(), id)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("loading book failed", "book_id", id, "error", err)
		}
		h.writeError(w, status, apperrors.PublicMessage(err, "loading book failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, book)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
