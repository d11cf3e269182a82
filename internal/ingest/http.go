package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPHandler decodes JSON lifecycle events and forwards them to sink.
// Params: sink evaluates events, max body limits payload size.
// Returns: HTTP handler for events endpoint.
type HTTPHandler struct {
	sink        EventSink
	counter     EventCounter
	maxBodySize int64
	logger      *slog.Logger
}

// NewHTTPHandler creates events HTTP handler.
// Params: sink, optional event counter, max request body size in bytes, and logger.
// Returns: configured handler.
func NewHTTPHandler(sink EventSink, counter EventCounter, maxBodySize int64, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{sink: sink, counter: counter, maxBodySize: maxBodySize, logger: logger}
}

// ServeHTTP handles one event or event batch.
// Params: HTTP request/response writer pair.
// Returns: 202 on success, 400 on invalid payload, 422 when the backend rejected every
// failed event, 503 when a failure may succeed on retry.
func (h *HTTPHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		writeJSONError(writer, http.StatusBadRequest, err)
		return
	}

	events, err := decodeEventPayload(body)
	if err != nil {
		writeJSONError(writer, http.StatusBadRequest, err)
		return
	}

	if err := dispatchEvents(request.Context(), h.sink, h.counter, SourceHTTP, events); err != nil {
		if !retryable(err) {
			h.logger.Error("http ingest evaluation rejected", "events", len(events), "error", err.Error())
			writeJSONError(writer, http.StatusUnprocessableEntity, err)
			return
		}
		h.logger.Error("http ingest evaluation failed", "events", len(events), "error", err.Error())
		writeJSONError(writer, http.StatusServiceUnavailable, err)
		return
	}
	writer.WriteHeader(http.StatusAccepted)
}

// ResyncHandler triggers full resynchronization over HTTP.
type ResyncHandler struct {
	resyncer Resyncer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResyncHandler creates resync HTTP handler.
// Params: resyncer, per-run timeout (0 disables), and logger.
// Returns: configured handler.
func NewResyncHandler(resyncer Resyncer, timeout time.Duration, logger *slog.Logger) *ResyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResyncHandler{resyncer: resyncer, timeout: timeout, logger: logger}
}

// ServeHTTP runs one resync; the run is not aborted when the client disconnects.
// Params: HTTP request/response writer pair.
// Returns: 200 with {"status":"ok"} or 500 with error body.
func (h *ResyncHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := context.WithoutCancel(request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	h.logger.Info("resync requested", "source", SourceHTTP, "remote", request.RemoteAddr)
	if err := h.resyncer.ResyncAll(ctx); err != nil {
		writeJSONError(writer, http.StatusInternalServerError, err)
		return
	}
	writeJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSONError(writer http.ResponseWriter, status int, err error) {
	writeJSON(writer, status, map[string]string{"status": "error", "error": err.Error()})
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}
