package testutil

import (
	"net"
	"net/http"
	"testing"
	"time"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

func TestAssertStatusCode_FailurePath(t *testing.T) {
	t.Parallel()

	ok := t.Run("status mismatch", func(t *testing.T) {
		AssertStatusCode(t, http.StatusOK, http.StatusBadRequest)
	})
	if ok {
		t.Fatal("expected subtest to fail on mismatched status code")
	}
}

func TestLocalhostRequest(t *testing.T) {
	t.Parallel()

	req := LocalhostRequest(http.MethodGet, "/debug/status", nil)
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		t.Fatalf("split remote addr: %v", err)
	}
	if !net.ParseIP(host).IsLoopback() {
		t.Errorf("RemoteAddr %q is not loopback", req.RemoteAddr)
	}
}

func TestFreeUDPAddr(t *testing.T) {
	t.Parallel()

	addr := FreeUDPAddr(t)
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		t.Fatalf("rebind %s: %v", addr, err)
	}
	conn.Close()
}

func TestEventually(t *testing.T) {
	t.Parallel()

	start := time.Now()
	Eventually(t, time.Second, func() bool { return time.Since(start) > 10*time.Millisecond }, "elapsed")
}
