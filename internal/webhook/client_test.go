package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/castle-blotto/pkg/blottodto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type testServer struct {
	calls atomic.Int32
	last  atomic.Value // []byte
	ln    *fasthttputil.InmemoryListener
}

// newTestServer answers each call with statuses[i], repeating the last one.
func newTestServer(t *testing.T, statuses ...int) *testServer {
	t.Helper()
	ts := &testServer{ln: fasthttputil.NewInmemoryListener()}
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		n := int(ts.calls.Add(1))
		ts.last.Store(append([]byte(nil), ctx.PostBody()...))
		if string(ctx.Request.Header.Peek("X-Blotto-Token")) != "secret" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		idx := n - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		ctx.SetStatusCode(statuses[idx])
		ctx.SetBodyString("ok")
	}}
	go func() { _ = srv.Serve(ts.ln) }()
	t.Cleanup(func() { _ = ts.ln.Close() })
	return ts
}

func (ts *testServer) client(opts ...Option) *Client {
	base := []Option{
		WithDial(func(string) (net.Conn, error) { return ts.ln.Dial() }),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Blotto-Token": "secret", " ": "skip"} }),
		WithTimeout(2 * time.Second),
	}
	return NewClient("http://webhook.test/results", append(base, opts...)...)
}

func TestReport_Success(t *testing.T) {
	ts := newTestServer(t, 200)
	err := ts.client().Report(context.Background(), Payload{
		Session: blottodto.SessionEnded{SessionID: "s1", Scores: []blottodto.FinalScore{{Name: "Alice", Wins: 1, AveragePercentage: "60.00%"}}},
		Text:    "summary",
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var got Payload
	if err := json.Unmarshal(ts.last.Load().([]byte), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Event != "session-ended" || got.Session.SessionID != "s1" || got.Text != "summary" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestReport_RetriesTransientStatus(t *testing.T) {
	ts := newTestServer(t, 503, 502, 200)
	if err := ts.client(WithRetry(3)).Report(context.Background(), Payload{}); err != nil {
		t.Fatalf("report: %v", err)
	}
	if n := ts.calls.Load(); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
}

func TestReport_NoRetryOnClientError(t *testing.T) {
	ts := newTestServer(t, 400)
	err := ts.client(WithRetry(5)).Report(context.Background(), Payload{})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 400 {
		t.Fatalf("expected status 400 error, got %v", err)
	}
	if n := ts.calls.Load(); n != 1 {
		t.Fatalf("expected a single call, got %d", n)
	}
}

func TestReport_GivesUpAfterRetries(t *testing.T) {
	ts := newTestServer(t, 500)
	err := ts.client(WithRetry(2)).Report(context.Background(), Payload{})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 500 {
		t.Fatalf("expected status 500 error, got %v", err)
	}
	if n := ts.calls.Load(); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestReport_ContextCancelled(t *testing.T) {
	ts := newTestServer(t, 200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ts.client().Report(ctx, Payload{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ts.calls.Load() != 0 {
		t.Fatalf("no request should be sent")
	}
}

func TestReport_NoURL(t *testing.T) {
	if err := NewClient("").Report(context.Background(), Payload{}); err == nil {
		t.Fatalf("expected error without url")
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(0) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond || backoffDuration(10) != 3200*time.Millisecond {
		t.Fatalf("unexpected backoff values")
	}
}
