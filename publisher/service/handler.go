package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/lai/breadcrumbs/observability"
	"github.com/lai/breadcrumbs/pipeline"
)

const maxBody = 32 << 20

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Handler accepts raw breadcrumbs pushed over HTTP.
type Handler struct {
	producer Producer
}

// NewHandler creates a handler with the given producer.
func NewHandler(p Producer) *Handler {
	return &Handler{producer: p}
}

// ServeHTTP handles POST /breadcrumbs.
// Expects a JSON array of raw breadcrumb objects, published as they are.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	msgs, err := SplitArray(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// validation belongs to the consumer; only the key is read here
	for _, m := range msgs {
		key := gjson.GetBytes(m, pipeline.ColVehicle).String()
		if err := h.producer.PublishRaw(r.Context(), key, m); err != nil {
			slog.Error("kafka write failed",
				"error", err,
				"vehicle_id", key,
				"request_id", r.Header.Get("X-Request-ID"),
			)
			writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		}
	}
	observability.Published.WithLabelValues(h.producer.Topic()).Add(float64(len(msgs)))

	w.WriteHeader(http.StatusAccepted)
}
