// Package testutil builds a ready sidecar stack for handler and integration tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/api"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/auth"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/evaluator"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/logqueue"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/sdk"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

const (
	TestSecret    = "secret-test"
	TestClientKey = "client-test"
	TestAdminKey  = "admin-test"
)

// Stack is an initialized SDK client served by an api.Server, backed by an
// in-memory store and a log queue writing to a SQLite file in t.TempDir().
type Stack struct {
	Server    *api.Server
	Store     *store.MemoryStore
	Evaluator *evaluator.Evaluator
	Client    *sdk.Client
	Queue     *logqueue.Queue
	Sink      *logqueue.SQLiteSink
}

// NewTestStack seeds specs into env and initializes the client. Everything
// is shut down when the test ends.
func NewTestStack(t *testing.T, env string, specs ...store.UpsertParams) *Stack {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	if err := SeedSpecs(ctx, st, env, specs); err != nil {
		t.Fatalf("SeedSpecs failed: %v", err)
	}

	sink, err := logqueue.NewSQLiteSink(t.TempDir() + "/events.db")
	if err != nil {
		t.Fatalf("NewSQLiteSink failed: %v", err)
	}
	queue := logqueue.New(sink, logqueue.SystemClock{}, zerolog.Nop(), 0)

	ev := evaluator.New(st, env, zerolog.Nop())
	client := sdk.New(TestSecret, ev, nil, queue, sdk.Options{Logger: zerolog.Nop()})
	if err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Shutdown() })

	srv := api.NewServer(api.Deps{
		SDK:      client,
		Store:    st,
		Reloader: ev,
		Env:      env,
		Auth:     auth.NewAuthenticator(TestClientKey, TestAdminKey, ""),
		Logger:   zerolog.Nop(),
	})

	return &Stack{Server: srv, Store: st, Evaluator: ev, Client: client, Queue: queue, Sink: sink}
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// ClientAuth returns headers authenticating with the test client key.
func ClientAuth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + TestClientKey}
}

// AdminAuth returns headers authenticating with the test admin key.
func AdminAuth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + TestAdminKey}
}

// SeedSpecs populates the store. Specs without an env are placed in env.
func SeedSpecs(ctx context.Context, st store.Store, env string, specs []store.UpsertParams) error {
	for _, s := range specs {
		if s.Env == "" {
			s.Env = env
		}
		if err := st.UpsertSpec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
