package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/updater"
)

// maxBatchItems bounds one batch request
const maxBatchItems = 500

type updateRequest struct {
	StatusID  json.RawMessage `json:"statusId"`
	UpdatedBy string          `json:"updatedBy"`
}

type batchItemRequest struct {
	ID       int             `json:"id"`
	StatusID json.RawMessage `json:"statusId"`
}

type batchRequest struct {
	Items     []batchItemRequest `json:"items"`
	DelayMs   *int               `json:"delayMs"`
	UpdatedBy string             `json:"updatedBy"`
}

type batchResponse struct {
	*updater.Ledger
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source != "" && source != "upstream" && source != "mirror" {
		s.writeError(w, fmt.Errorf("%w: unknown source %q", updater.ErrInvalidInput, source))
		return
	}

	id, ok := s.resolve(w, r)
	if !ok {
		return
	}

	if source == "mirror" {
		s.writeMirrorRecord(w, r, id)
		return
	}

	wo, err := s.deps.Upstream.FetchWorkOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wo)
}

// writeMirrorRecord answers from the mirror without touching the upstream.
// The record may lag behind the upstream until the next sync.
func (s *Server) writeMirrorRecord(w http.ResponseWriter, r *http.Request, id int) {
	wo, err := s.deps.Records.GetWorkOrder(r.Context(), id)
	switch {
	case db.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("work order %d not found in mirror", id),
			Kind:  updater.KindNotFound,
		})
	case err != nil:
		s.logger.Error("failed to read mirrored work order", "work_order_id", id, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: err.Error(),
			Kind:  updater.KindDirectoryUnavailable,
		})
	default:
		writeJSON(w, http.StatusOK, wo)
	}
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid body: %v", updater.ErrInvalidInput, err))
		return
	}

	id, ok := s.resolve(w, r)
	if !ok {
		return
	}

	outcome, err := s.deps.Updater.UpdateStatus(r.Context(), id, statusText(req.StatusID), updater.Options{
		Updater: updaterInfo(req.UpdatedBy),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid body: %v", updater.ErrInvalidInput, err))
		return
	}
	if len(req.Items) > maxBatchItems {
		s.writeError(w, fmt.Errorf("%w: at most %d items per batch, got %d", updater.ErrInvalidInput, maxBatchItems, len(req.Items)))
		return
	}
	var delay *time.Duration
	if req.DelayMs != nil {
		if *req.DelayMs < 0 {
			s.writeError(w, fmt.Errorf("%w: delayMs must not be negative", updater.ErrInvalidInput))
			return
		}
		d := time.Duration(*req.DelayMs) * time.Millisecond
		delay = &d
	}

	items := make([]updater.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, updater.Item{ID: item.ID, StatusID: statusText(item.StatusID)})
	}

	ledger := s.deps.Batch.UpdateMany(r.Context(), items, updater.BatchOptions{
		Delay:   delay,
		Updater: updaterInfo(req.UpdatedBy),
	})

	writeJSON(w, http.StatusOK, batchResponse{
		Ledger:    ledger,
		Succeeded: ledger.Succeeded(),
		Failed:    ledger.Failed(),
	})
}

func (s *Server) handleMirrorSync(w http.ResponseWriter, r *http.Request) {
	result := s.deps.Mirror.TriggerSync(r.Context())

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

func (s *Server) handleFieldWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.deps.Roster.FieldWorkers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.deps.Statuses.GetStatuses(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// resolve maps the {ref} path parameter onto an upstream id and writes the
// error response itself when it cannot.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (int, bool) {
	ref := chi.URLParam(r, "ref")

	id, err := s.deps.Resolver.ResolveWorkOrderID(r.Context(), ref)
	if err != nil {
		if db.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error: fmt.Sprintf("work order %q not found in mirror", ref),
				Kind:  updater.KindNotFound,
			})
			return 0, false
		}
		s.logger.Error("failed to resolve work order reference", "ref", ref, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: err.Error(),
			Kind:  updater.KindDirectoryUnavailable,
		})
		return 0, false
	}

	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := updater.Kind(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "kind", kind, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func statusForKind(kind string) int {
	switch kind {
	case updater.KindInvalidInput:
		return http.StatusBadRequest
	case updater.KindNotFound:
		return http.StatusNotFound
	case updater.KindFallbackInactive:
		return http.StatusConflict
	case updater.KindIntegrityViolation, updater.KindUpstreamError:
		return http.StatusBadGateway
	case updater.KindDirectoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusText accepts a status id sent as a JSON number or string. Anything
// else is passed through verbatim so validation reports it.
func statusText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

func updaterInfo(name string) *updater.UpdaterInfo {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return &updater.UpdaterInfo{Name: name}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
