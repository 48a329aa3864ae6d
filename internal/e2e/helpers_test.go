package e2e

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"imgclass/internal/apiclient"
	"imgclass/internal/mockapi"
	"imgclass/internal/session"
)

type harness struct {
	mock   *mockapi.Server
	srv    *httptest.Server
	client *apiclient.Client
	sess   *session.Session
	view   *session.MemoryView
	events *session.MemoryPublisher
}

// newHarness wires a session to a mock service over real HTTP.
func newHarness(t *testing.T, opts mockapi.Options, clientCfg apiclient.Config) *harness {
	t.Helper()
	mock := mockapi.New(opts)
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	clientCfg.BaseURL = srv.URL
	clientCfg.Logger = zerolog.Nop()
	c, err := apiclient.New(clientCfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	view := session.NewMemoryView()
	events := session.NewMemoryPublisher()
	sess := session.New(c, session.Options{
		View:         view,
		Events:       events,
		Logger:       zerolog.Nop(),
		PollInterval: 5 * time.Millisecond,
	})
	return &harness{mock: mock, srv: srv, client: c, sess: sess, view: view, events: events}
}

func (h *harness) waitRetrain(t *testing.T) session.MonitorState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := h.sess.Retrain.Wait(ctx)
	if err != nil {
		t.Fatalf("retrain monitor did not finish: %v", err)
	}
	return st
}

func zipBytes(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		w.Write([]byte("x"))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
