package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/cjeanneret/FyGo/internal/logic/motion"
)

// ConfigView is the read-only slice of configuration shown on the
// status page: the active limits and gains.
type ConfigView struct {
	RateHz    float64 `json:"rate_hz"`
	Deadzone  float64 `json:"deadzone"`
	YawGain   float64 `json:"yaw_gain"`
	PitchGain float64 `json:"pitch_gain"`
	YawMin    int     `json:"yaw_min"`
	YawMax    int     `json:"yaw_max"`
	PitchMin  int     `json:"pitch_min"`
	PitchMax  int     `json:"pitch_max"`
	YawAxis   string  `json:"yaw_axis"`
	PitchAxis string  `json:"pitch_axis"`
}

// Handlers holds dependencies for HTTP handlers. The page is strictly
// read-only: teleoperation stays on the stick.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Config      ConfigView

	mu        sync.RWMutex
	latest    motion.Status
	hasSample bool

	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, cfg ConfigView, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Config:      cfg,
		staticFS:    staticFS,
	}
}

// Publish records the latest telemetry sample and fans it out to SSE
// clients. Wired as the control loop's OnStatus hook.
func (h *Handlers) Publish(s motion.Status) {
	h.mu.Lock()
	h.latest = s
	h.hasSample = true
	h.mu.Unlock()

	h.Broadcaster.BroadcastTelemetry(s)
}

// HandleConfig returns the active limits and gains as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Config)
}

// HandleStatus returns the latest telemetry sample, or 204 while the
// control loop has not ticked yet.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest, ok := h.latest, h.hasSample
	h.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(latest)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
