package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/metrics"
	"invite-tracker-backend/internal/service"
)

const (
	maxRecordJoinsBody = 64 << 10
	// a single platform message never carries more new members than this
	maxJoineesPerBatch = 200
)

// Handler exposes InviteTrackingService to the chat-platform client.
// Intents are dispatched in the background once the ledger write that
// produced them has been committed.
type Handler struct {
	svc        service.InviteTrackingService
	dispatcher service.NotificationDispatcher
	metrics    *metrics.Metrics

	inflight sync.WaitGroup
}

func NewHandler(svc service.InviteTrackingService, dispatcher service.NotificationDispatcher, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, dispatcher: dispatcher, metrics: m}
}

// Wait blocks until every background dispatch has finished.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

type recordJoinsRequest struct {
	ChatID           int64   `json:"chat_id"`
	JoineeIDs        []int64 `json:"joinee_ids"`
	ActorID          *int64  `json:"actor_id,omitempty"`
	ActorDisplayName string  `json:"actor_display_name,omitempty"`
}

type recordJoinsResponse struct {
	Effects []domain.JoinEffect `json:"effects"`
}

type resetChatResponse struct {
	ChatID  int64 `json:"chat_id"`
	Removed int   `json:"removed"`
}

func (h *Handler) RecordJoins(w http.ResponseWriter, r *http.Request) {
	var req recordJoinsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordJoinsBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, "record_joins", fmt.Errorf("%w: malformed body: %v", errBadRequest, err))
		return
	}
	if len(req.JoineeIDs) == 0 {
		h.fail(w, r, "record_joins", fmt.Errorf("%w: joinee_ids must not be empty", errBadRequest))
		return
	}
	if len(req.JoineeIDs) > maxJoineesPerBatch {
		h.fail(w, r, "record_joins", fmt.Errorf("%w: at most %d joinee_ids per request", errBadRequest, maxJoineesPerBatch))
		return
	}

	effects, err := h.svc.OnJoinBatch(r.Context(), req.ChatID, req.JoineeIDs, req.ActorID, req.ActorDisplayName)
	// effects committed before a failure still get their notifications
	for _, effect := range effects {
		h.metrics.ObserveJoin(effect)
		if effect.Intent != nil {
			h.dispatch(r.Context(), *effect.Intent)
		}
	}
	if err != nil {
		h.fail(w, r, "record_joins", err)
		return
	}
	writeJSON(w, http.StatusOK, recordJoinsResponse{Effects: effects})
}

func (h *Handler) CheckProgress(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "check_progress", err)
		return
	}
	view, err := h.svc.CheckProgress(r.Context(), memberID, r.URL.Query().Get("display_name"))
	if err != nil {
		h.fail(w, r, "check_progress", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) RequestKey(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "request_key", err)
		return
	}
	res, err := h.svc.RequestKey(r.Context(), memberID)
	if err != nil {
		h.fail(w, r, "request_key", err)
		return
	}
	h.metrics.ObserveKey(*res)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "reset_chat", err)
		return
	}
	removed, err := h.svc.ResetChat(r.Context(), chatID)
	if err != nil {
		h.fail(w, r, "reset_chat", err)
		return
	}
	writeJSON(w, http.StatusOK, resetChatResponse{ChatID: chatID, Removed: removed})
}

func (h *Handler) LedgerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "ledger_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		h.metrics.ObserveStorageFault(operation)
		logger.ErrorContext(r.Context(), "Storage fault", "operation", operation, "client", callerName(r), "error", err)
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "Request failed", "operation", operation, "client", callerName(r), "error", err)
	default:
		logger.DebugContext(r.Context(), "Request rejected", "operation", operation, "client", callerName(r), "status", status, "error", err)
	}
	writeError(w, status, messageFor(status, err))
}

// callerName is the client named in the service token, if any.
func callerName(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.Client
	}
	return ""
}

func (h *Handler) dispatch(ctx context.Context, intent domain.NotificationIntent) {
	if h.dispatcher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		if err := h.dispatcher.Dispatch(ctx, intent); err != nil {
			h.metrics.ObserveDispatchFailure(intent.Kind)
			logger.WarnContext(ctx, "Notification dispatch failed", "intent_id", intent.ID, "kind", intent.Kind, "error", err)
		}
	}()
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return id, nil
}
