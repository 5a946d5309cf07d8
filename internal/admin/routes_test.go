package admin

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/presentation"
	"github.com/banshee-data/tesseract/internal/router"
	"github.com/banshee-data/tesseract/internal/testutil"
)

type fakePipeline struct {
	mu       sync.Mutex
	status   router.Status
	selected []int
	selErr   error
	tracking router.TrackingSignal
}

func (f *fakePipeline) Status() router.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakePipeline) Select(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selErr != nil {
		return f.selErr
	}
	f.selected = append(f.selected, index)
	return nil
}

func (f *fakePipeline) Tracking() *router.TrackingSignal { return &f.tracking }

type fakeFeed struct {
	mu     sync.Mutex
	ch     chan presentation.Change
	subbed chan struct{}
	unsub  []string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan presentation.Change, 4), subbed: make(chan struct{}, 1)}
}

func (f *fakeFeed) Subscribe() (string, <-chan presentation.Change) {
	f.subbed <- struct{}{}
	return "sub-1", f.ch
}

func (f *fakeFeed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsub = append(f.unsub, id)
}

func newTestMux(t *testing.T) (*http.ServeMux, *fakePipeline, *fakeFeed) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	p := &fakePipeline{status: router.Status{
		SessionID: "abc",
		State:     presentation.Connected,
		Active:    2,
		Alive:     true,
	}}
	feed := newFakeFeed()
	mux := http.NewServeMux()
	NewServer(p, feed, 6).AttachAdminRoutes(mux)
	return mux, p, feed
}

func TestStatus(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodGet, "/debug/status", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "connected", got["state"])
	assert.Equal(t, float64(2), got["active"])
	assert.Equal(t, "abc", got["session_id"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodPost, "/debug/status", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestStatus_RejectsRemoteCaller(t *testing.T) {
	mux, _, _ := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/debug/status", nil)
	req.RemoteAddr = "203.0.113.9:4000"

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusForbidden)
}

func TestTracking(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantTracked bool
	}{
		{"form true", "application/x-www-form-urlencoded", url.Values{"tracked": {"true"}}.Encode(), http.StatusOK, true},
		{"form zero", "application/x-www-form-urlencoded", url.Values{"tracked": {"0"}}.Encode(), http.StatusOK, false},
		{"json true", "application/json", `{"tracked": true}`, http.StatusOK, true},
		{"json missing field", "application/json", `{}`, http.StatusBadRequest, false},
		{"json malformed", "application/json", `{"tracked":`, http.StatusBadRequest, false},
		{"form garbage", "application/x-www-form-urlencoded", "tracked=maybe", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, p, _ := newTestMux(t)
			req := testutil.LocalhostRequest(http.MethodPost, "/debug/tracking", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			testutil.AssertStatusCode(t, rec.Code, tt.wantStatus)
			assert.Equal(t, tt.wantTracked, p.tracking.Tracked())
		})
	}
}

func TestTracking_MethodNotAllowed(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodGet, "/debug/tracking", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		face       string
		selErr     error
		wantStatus int
		wantQueued []int
	}{
		{"valid", "4", nil, http.StatusAccepted, []int{4}},
		{"zero", "0", nil, http.StatusBadRequest, nil},
		{"above range", "7", nil, http.StatusBadRequest, nil},
		{"not a number", "four", nil, http.StatusBadRequest, nil},
		{"queue full", "3", router.ErrOverrideQueueFull, http.StatusConflict, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, p, _ := newTestMux(t)
			p.selErr = tt.selErr
			req := testutil.LocalhostRequest(http.MethodPost, "/debug/select",
				strings.NewReader(url.Values{"face": {tt.face}}.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			testutil.AssertStatusCode(t, rec.Code, tt.wantStatus)
			assert.Equal(t, tt.wantQueued, p.selected)
		})
	}
}

func TestSelect_RateLimited(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	mux, p, _ := newTestMux(t)

	codes := map[int]int{}
	for i := 0; i < selectBurst+5; i++ {
		req := testutil.LocalhostRequest(http.MethodPost, "/debug/select",
			strings.NewReader(url.Values{"face": {"2"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		codes[rec.Code]++
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		}
	}

	assert.GreaterOrEqual(t, codes[http.StatusAccepted], selectBurst)
	assert.Positive(t, codes[http.StatusTooManyRequests])
	assert.Len(t, p.selected, codes[http.StatusAccepted])
}

func TestMetricsRoute(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodGet, "/debug/metrics", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTail_StreamsChanges(t *testing.T) {
	mux, _, feed := newTestMux(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/debug/tail")
	require.NoError(t, err)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	select {
	case <-feed.subbed:
	case <-time.After(time.Second):
		t.Fatal("tail did not subscribe")
	}
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	feed.ch <- presentation.Change{From: presentation.Connected, To: presentation.Transition, At: at}

	scanner := bufio.NewScanner(resp.Body)
	var events, data []string
	for len(data) < 2 && scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, v)
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = append(data, v)
		}
	}

	require.Len(t, data, 2)
	assert.Equal(t, []string{"state", "change"}, events)
	assert.Contains(t, data[0], `"to":"connected"`)
	assert.JSONEq(t, `{"from":"connected","to":"transition","at":"2026-02-01T00:00:00Z"}`, data[1])
}

func TestTail_EndsWhenFeedCloses(t *testing.T) {
	mux, _, feed := newTestMux(t)
	close(feed.ch)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodGet, "/debug/tail", nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tail did not return after feed closed")
	}
	feed.mu.Lock()
	defer feed.mu.Unlock()
	assert.Equal(t, []string{"sub-1"}, feed.unsub)
}
