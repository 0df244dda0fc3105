package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/satanowski/tvfeed/internal/schedule"
	"github.com/satanowski/tvfeed/internal/tvprogram"
)

const defaultLogLimit = 100

type programsResponse struct {
	Programs  []tvprogram.Show `json:"programs"`
	Count     int              `json:"count"`
	Timestamp time.Time        `json:"timestamp"`
}

// HandleCurrentPrograms lists the shows airing now across all channels.
func (h *Handlers) HandleCurrentPrograms(w http.ResponseWriter, r *http.Request) {
	h.writePrograms(w, h.Service.CurrentShows)
}

// HandlePrograms lists the whole loaded schedule.
func (h *Handlers) HandlePrograms(w http.ResponseWriter, r *http.Request) {
	h.writePrograms(w, h.Service.Programs)
}

func (h *Handlers) writePrograms(w http.ResponseWriter, list func() ([]tvprogram.Show, error)) {
	shows, err := list()
	if errors.Is(err, schedule.ErrNotInitialized) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger().Error("listing programs failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, programsResponse{Programs: shows, Count: len(shows), Timestamp: h.Service.now()})
}

func (h *Handlers) apiRouter() http.Handler {
	r := chi.NewRouter()
	r.NotFound(notFound)
	r.Post("/subscribe", h.HandleSubscribe)
	r.Post("/unsubscribe", h.HandleUnsubscribe)
	r.Get("/subscriptions", h.HandleSubscriptions)
	r.Get("/logs", h.HandleLogs)
	r.Post("/monitoring/start", h.HandleMonitoring(true))
	r.Post("/monitoring/stop", h.HandleMonitoring(false))
	r.Get("/monitoring/status", h.HandleMonitoringStatus)
	return r
}

type subscriptionRequest struct {
	ProgramTitle string `json:"program_title"`
	WebhookURL   string `json:"webhook_url"`
}

type subscriptionResponse struct {
	Message      string `json:"message"`
	ProgramTitle string `json:"program_title"`
	WebhookURL   string `json:"webhook_url"`
}

func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := readSubscription(w, r)
	if !ok {
		return
	}
	if err := h.Notifier.Registry.Subscribe(r.Context(), req.ProgramTitle, req.WebhookURL); err != nil {
		h.logger().Error("subscribe failed", "title", req.ProgramTitle, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}
	h.logger().Info("webhook subscribed", "title", req.ProgramTitle, "url", req.WebhookURL)
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Message:      fmt.Sprintf("Successfully subscribed to '%s'", req.ProgramTitle),
		ProgramTitle: req.ProgramTitle,
		WebhookURL:   req.WebhookURL,
	})
}

func (h *Handlers) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := readSubscription(w, r)
	if !ok {
		return
	}
	if err := h.Notifier.Registry.Unsubscribe(r.Context(), req.ProgramTitle, req.WebhookURL); err != nil {
		h.logger().Error("unsubscribe failed", "title", req.ProgramTitle, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to unsubscribe")
		return
	}
	h.logger().Info("webhook unsubscribed", "title", req.ProgramTitle, "url", req.WebhookURL)
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Message:      fmt.Sprintf("Successfully unsubscribed from '%s'", req.ProgramTitle),
		ProgramTitle: req.ProgramTitle,
		WebhookURL:   req.WebhookURL,
	})
}

func readSubscription(w http.ResponseWriter, r *http.Request) (subscriptionRequest, bool) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProgramTitle == "" || req.WebhookURL == "" {
		writeError(w, http.StatusBadRequest, "program_title and webhook_url are required")
		return req, false
	}
	u, err := url.Parse(req.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "webhook_url must be an absolute http(s) URL")
		return req, false
	}
	return req, true
}

type subscriptionsResponse struct {
	Subscriptions map[string][]string `json:"subscriptions"`
	Count         int                 `json:"count"`
	Timestamp     time.Time           `json:"timestamp"`
}

func (h *Handlers) HandleSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Notifier.Registry.Subscriptions(r.Context())
	if err != nil {
		h.logger().Error("listing subscriptions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}
	count := 0
	for _, urls := range subs {
		count += len(urls)
	}
	writeJSON(w, http.StatusOK, subscriptionsResponse{Subscriptions: subs, Count: count, Timestamp: h.Service.now()})
}

type logsResponse struct {
	Logs  []Notification `json:"logs"`
	Count int            `json:"count"`
}

func (h *Handlers) HandleLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	logs, err := h.Notifier.Registry.Logs(r.Context(), limit)
	if err != nil {
		h.logger().Error("listing notification logs failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: logs, Count: len(logs)})
}

type monitoringResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// HandleMonitoring starts or stops the notifier loop. Both are idempotent.
func (h *Handlers) HandleMonitoring(start bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if start {
			h.Notifier.Start()
			writeJSON(w, http.StatusOK, monitoringResponse{Message: "Monitoring started", Status: "active"})
			return
		}
		h.Notifier.Stop()
		writeJSON(w, http.StatusOK, monitoringResponse{Message: "Monitoring stopped", Status: "inactive"})
	}
}

type monitoringStatus struct {
	MonitoringActive    bool      `json:"monitoring_active"`
	ActiveSubscriptions int       `json:"active_subscriptions"`
	Timestamp           time.Time `json:"timestamp"`
}

func (h *Handlers) HandleMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Notifier.Registry.Subscriptions(r.Context())
	if err != nil {
		h.logger().Error("listing subscriptions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, monitoringStatus{
		MonitoringActive:    h.Notifier.Active(),
		ActiveSubscriptions: len(subs),
		Timestamp:           h.Service.now(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
