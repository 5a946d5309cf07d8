// Package admin exposes the pipeline on the tsweb debug mux: a status
// snapshot, tracking and manual-select inputs, a server-sent-event tail of
// presentation changes, and the Prometheus registry.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"tailscale.com/tsweb"

	"github.com/banshee-data/tesseract/internal/httputil"
	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/presentation"
	"github.com/banshee-data/tesseract/internal/router"
)

// Pipeline is the slice of the router the debug routes use.
type Pipeline interface {
	Status() router.Status
	Select(index int) error
	Tracking() *router.TrackingSignal
}

// StateFeed publishes presentation changes.
type StateFeed interface {
	Subscribe() (string, <-chan presentation.Change)
	Unsubscribe(id string)
}

// Manual selections are limited to selectRate per second with a burst of
// selectBurst, well above what a person at a keyboard produces.
const (
	selectRate  = 10
	selectBurst = 5
)

// Server holds the debug route handlers.
type Server struct {
	pipeline    Pipeline
	feed        StateFeed
	maxFace     int
	selectLimit *rate.Limiter
}

// NewServer creates the debug route handlers. maxFace bounds /debug/select.
func NewServer(p Pipeline, feed StateFeed, maxFace int) *Server {
	return &Server{
		pipeline:    p,
		feed:        feed,
		maxFace:     maxFace,
		selectLimit: rate.NewLimiter(rate.Limit(selectRate), selectBurst),
	}
}

// AttachAdminRoutes attaches the debug endpoints to mux under /debug/.
// tsweb restricts them to loopback and tailnet callers.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Presentation state", func() any { return s.pipeline.Status().State })
	debug.KVFunc("Active target", func() any { return s.pipeline.Status().Active })
	debug.KVFunc("Sensor alive", func() any { return s.pipeline.Status().Alive })

	debug.HandleFunc("status", "Pipeline status (JSON)", s.handleStatus)
	debug.Handle("metrics", "Pipeline metrics (Prometheus)", promhttp.Handler())
	debug.HandleSilentFunc("tracking", s.handleTracking)
	debug.HandleSilentFunc("select", s.handleSelect)
	debug.HandleSilentFunc("tail", s.handleTail)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, s.pipeline.Status())
}

type trackingRequest struct {
	Tracked *bool `json:"tracked"`
}

// handleTracking accepts {"tracked": bool} or a tracked form value.
func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var tracked bool
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req trackingRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.Tracked == nil {
			httputil.BadRequest(w, `expected {"tracked": true|false}`)
			return
		}
		tracked = *req.Tracked
	} else {
		v, err := strconv.ParseBool(strings.TrimSpace(r.FormValue("tracked")))
		if err != nil {
			httputil.BadRequest(w, "tracked must be true or false")
			return
		}
		tracked = v
	}

	s.pipeline.Tracking().Report(tracked)
	httputil.WriteJSONOK(w, map[string]bool{"tracked": tracked})
}

// handleSelect queues a manual selection that bypasses the stability filter.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.selectLimit.Allow() {
		w.Header().Set("Retry-After", "1")
		httputil.WriteJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		monitoring.Warnf("[admin] manual select rate limit exceeded from %s", r.RemoteAddr)
		return
	}
	face, err := strconv.Atoi(strings.TrimSpace(r.FormValue("face")))
	if err != nil {
		httputil.BadRequest(w, "face must be an integer")
		return
	}
	if face < 1 || face > s.maxFace {
		httputil.BadRequest(w, fmt.Sprintf("face must be between 1 and %d", s.maxFace))
		return
	}
	if err := s.pipeline.Select(face); err != nil {
		if errors.Is(err, router.ErrOverrideQueueFull) {
			httputil.Conflict(w, err.Error())
			return
		}
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]int{"queued": face})
}

// handleTail streams presentation changes as server-sent events.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, changes := s.feed.Subscribe()
	defer s.feed.Unsubscribe(id)

	// current state first so a new client need not wait for a change
	st := s.pipeline.Status()
	if err := writeEvent(w, "state", presentation.Change{From: st.State, To: st.State, At: st.Since}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := writeEvent(w, "change", c); err != nil {
				monitoring.Logf("[admin] tail client %s went away: %v", id, err)
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
