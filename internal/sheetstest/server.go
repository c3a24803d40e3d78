package sheetstest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"holdingsync/pkg/holdingsync"
)

// valueRange mirrors the Sheets v4 ValueRange resource.
type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values,omitempty"`
}

type batchUpdateRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []valueRange `json:"data"`
}

// NewServer starts a fake Sheets v4 REST server over store. Point the API
// client at it with option.WithEndpoint(srv.URL+"/") and
// option.WithHTTPClient(srv.Client()).
func NewServer(store *Store, logger *slog.Logger) *httptest.Server {
	return httptest.NewServer(NewRouter(store, logger))
}

// NewRouter builds the fake API router.
func NewRouter(store *Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLoggingMiddleware(logger))

	h := &handler{store: store}
	r.Route("/v4/spreadsheets/{spreadsheetId}", func(r chi.Router) {
		r.Post("/values:batchUpdate", h.batchUpdate)
		r.Get("/values/{range}", h.get)
		r.Put("/values/{range}", h.update)
		r.Post("/values/{range}", h.post)
	})
	return r
}

type handler struct {
	store *Store
}

func rangeParam(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "range"))
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := h.store.Get(r.Context(), rng)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	vr := valueRange{Range: rng, MajorDimension: "ROWS"}
	for _, row := range rows {
		out := make([]any, len(row))
		for i, v := range row {
			out[i] = v
		}
		vr.Values = append(vr.Values, out)
	}
	writeJSON(w, http.StatusOK, vr)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body valueRange
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.store.UpdateWithOption(rng, body.Values, r.URL.Query().Get("valueInputOption")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": chi.URLParam(r, "spreadsheetId"), "updatedRange": rng})
}

// post serves the "{range}:clear" and "{range}:append" custom methods.
func (h *handler) post(w http.ResponseWriter, r *http.Request) {
	raw, err := rangeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "spreadsheetId")
	switch {
	case strings.HasSuffix(raw, ":clear"):
		rng := strings.TrimSuffix(raw, ":clear")
		if err := h.store.Clear(r.Context(), rng); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": id, "clearedRange": rng})
	case strings.HasSuffix(raw, ":append"):
		rng := strings.TrimSuffix(raw, ":append")
		var body valueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.store.AppendWithOption(rng, body.Values, r.URL.Query().Get("valueInputOption")); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": id, "tableRange": rng})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown method on "+raw))
	}
}

func (h *handler) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var body batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data := make([]holdingsync.RangeValues, len(body.Data))
	for i, d := range body.Data {
		data[i] = holdingsync.RangeValues{Range: d.Range, Values: d.Values}
	}
	if err := h.store.BatchUpdateWithOption(data, body.ValueInputOption); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": chi.URLParam(r, "spreadsheetId"), "totalUpdatedCells": len(data)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError answers in the Google API error envelope.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": err.Error(),
			"status":  http.StatusText(status),
		},
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", status,
				"bytes", wrapped.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if status >= http.StatusBadRequest {
				logger.Warn("sheets request completed", fields...)
				return
			}
			logger.Debug("sheets request completed", fields...)
		})
	}
}
