package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/satanowski/tvfeed/internal/schedule"
)

// Handlers exposes the service and hub over HTTP. Notifier is optional;
// without it the /api routes are not mounted.
type Handlers struct {
	Service  *Service
	Hub      *Hub
	Notifier *Notifier
	Store    *schedule.Store
	Channels map[string]bool
	Logger   *log.Logger
}

// Router wires the per-channel stream and pull endpoints, the cross-channel
// listings and the webhook API.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(h.logger()))
	r.Use(middleware.Recoverer)
	r.NotFound(notFound)

	r.Get("/healthz", h.HandleHealth)
	r.Get("/programs", h.HandlePrograms)
	r.Get("/programs/current", h.HandleCurrentPrograms)
	if h.Notifier != nil {
		r.Mount("/api", h.apiRouter())
	}

	r.Get("/{channel}", h.HandleStream(KindShow))
	r.Get("/{channel}/", h.HandleStream(KindShow))
	r.Get("/{channel}/pull", h.HandlePull(KindShow))
	r.Get("/{channel}/viewership", h.HandleStream(KindViewership))
	r.Get("/{channel}/viewership/", h.HandleStream(KindViewership))
	r.Get("/{channel}/viewership/pull", h.HandlePull(KindViewership))
	return r
}

// HandleStream opens a Server-Sent Events subscription for one channel.
func (h *Handlers) HandleStream(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, ok := h.channel(w, r)
		if !ok {
			return
		}
		if err := h.Service.Ready(channel); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		sub := h.Hub.Subscribe(ctx, channel, kind)
		defer h.Hub.Unsubscribe(sub.ID)

		for {
			select {
			case data, ok := <-sub.Events():
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandlePull answers one sample as JSON without subscribing.
func (h *Handlers) HandlePull(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, ok := h.channel(w, r)
		if !ok {
			return
		}
		payload, err := h.Service.ChannelCurrentData(channel, kind)
		switch {
		case errors.Is(err, schedule.ErrNotInitialized), errors.Is(err, ErrNoCurrentShow):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		case err != nil:
			h.logger().Error("pull failed", "channel", channel, "kind", kind, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

type healthResponse struct {
	Status      string     `json:"status"`
	RefreshedAt *time.Time `json:"refreshedAt"`
	Subscribers int        `json:"subscribers"`
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Subscribers: h.Hub.Count()}
	if snap := h.Store.Snapshot(); snap != nil {
		resp.RefreshedAt = &snap.RefreshedAt
	} else {
		resp.Status = "starting"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) channel(w http.ResponseWriter, r *http.Request) (string, bool) {
	channel := chi.URLParam(r, "channel")
	if !h.Channels[channel] {
		notFound(w, r)
		return "", false
	}
	return channel, true
}

func (h *Handlers) logger() *log.Logger {
	if h.Logger == nil {
		return log.Default()
	}
	return h.Logger
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not found"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
