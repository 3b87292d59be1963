package webhook

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yusufpr/akrab_bot/internal/service"
	"github.com/yusufpr/akrab_bot/utils"
)

type Handler struct {
	svc    *service.Service
	logger *utils.Logger
}

func NewRouter(svc *service.Service, logger *utils.Logger) http.Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The provider delivers notifications as GET or POST.
	r.Get("/webhook", h.HandleNotification)
	r.Post("/webhook", h.HandleNotification)

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("Failed to encode webhook response: %v", err)
	}
}

// HandleNotification answers the provider per its retry contract: 400
// only on a missing payload, 200 with an error body on unparseable or
// unknown-correlation input (the provider must not retry those), 200 on
// applied or duplicate, 500 on internal faults.
func (h *Handler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		if err := r.ParseForm(); err == nil {
			message = r.FormValue("message")
		}
	}
	if message == "" {
		h.logger.Warn("[WEBHOOK] Empty message received")
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "message kosong"})
		return
	}

	notice, err := service.ParseCallback(message)
	if err != nil {
		h.logger.Warnf("[WEBHOOK] Unrecognized format -> %s", message)
		h.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "format tidak dikenali"})
		return
	}

	h.logger.Infof("[WEBHOOK] RefID %s status %s", notice.ReffID, notice.StatusText)

	result, err := h.svc.ApplyCallback(r.Context(), notice)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			h.logger.Warnf("[WEBHOOK] RefID %s not found", notice.ReffID)
			h.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "transaksi tidak ditemukan"})
			return
		}
		h.logger.Errorf("[WEBHOOK] Failed to apply callback for %s: %v", notice.ReffID, err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal_error"})
		return
	}

	if result.Duplicate {
		h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Status sudah final"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Webhook diterima"})
}
