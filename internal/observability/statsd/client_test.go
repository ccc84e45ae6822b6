package statsd

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  metrics.app  ": "metrics.app",
		"..foo..":         "foo",
		".":               "",
		"":                "",
	}

	for input, want := range tests {
		if got := sanitizePrefix(input); got != want {
			t.Fatalf("sanitizePrefix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" http/request ": "http_request",
		"foo..bar":       "foo.bar",
		"multi  space":   "multi__space",
		"a:b|c":          "a_b_c",
		"...":            "",
	}

	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env": "prod",
		//nolint:gocritic // whitespace is part of the test case
		" service ": " folio ",
	}
	local := map[string]string{
		"route":  "GET /admin/collections/{slug}",
		"status": "2xx,3xx",
		"":       "ignored",
		"env":    "stage",
	}

	got := formatTags(global, local)
	want := "|#env:stage,route:GET /admin/collections/{slug},service:folio,status:2xx_3xx"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}

	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("udp listener unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readPacket(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	buf := make([]byte, 2*maxPacketSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read packet: %v", err)
	}
	return string(buf[:n])
}

func TestClient_BatchesUntilFlush(t *testing.T) {
	server := listen(t)
	client, err := NewClient(Config{
		Enabled:    true,
		Address:    server.LocalAddr().String(),
		Prefix:     "folio",
		GlobalTags: map[string]string{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	client.Count("http.request", 1, map[string]string{"status": "2xx"})
	client.Gauge("reaper.last_success_epoch", 1.5, nil)
	client.Timing("http.duration", 1500*time.Microsecond, nil)
	client.Flush()

	got := readPacket(t, server)
	want := strings.Join([]string{
		"folio.http.request:1|c|#env:test,status:2xx",
		"folio.reaper.last_success_epoch:1.5|g|#env:test",
		"folio.http.duration:1.5|ms|#env:test",
	}, "\n")
	if got != want {
		t.Fatalf("packet mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestClient_SplitsFullPackets(t *testing.T) {
	server := listen(t)
	client, err := NewClient(Config{Enabled: true, Address: server.LocalAddr().String()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	name := strings.Repeat("m", 500)
	for range 3 {
		client.Count(name, 1, nil)
	}

	first := readPacket(t, server)
	if strings.Count(first, "\n") != 1 {
		t.Fatalf("expected two lines in the first packet, got %q", first)
	}
	if len(first) > maxPacketSize {
		t.Fatalf("packet exceeds limit: %d bytes", len(first))
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if second := readPacket(t, server); second != name+":1|c" {
		t.Fatalf("Close should flush the remainder, got %q", second)
	}
}

func TestClient_RunFlushesOnCancel(t *testing.T) {
	server := listen(t)
	client, err := NewClient(Config{Enabled: true, Address: server.LocalAddr().String()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, time.Hour) }()

	client.Count("reaper.cleanup", 1, nil)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readPacket(t, server); got != "reaper.cleanup:1|c" {
		t.Fatalf("unexpected packet %q", got)
	}
}

func TestClient_Disabled(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
	client.Count("ignored", 1, nil)
	client.Flush()
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Count("ignored", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("a", 2, map[string]string{"k": "v"})
	r.Timing("b", 2*time.Millisecond, nil)

	if got := r.Named("a"); len(got) != 1 || got[0].Value != 2 || got[0].Tags["k"] != "v" {
		t.Fatalf("unexpected samples for a: %#v", got)
	}
	if got := r.Named("b"); len(got) != 1 || got[0].Kind != "timing" || got[0].Value != 2 {
		t.Fatalf("unexpected samples for b: %#v", got)
	}
}
