package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

func TestNewTestStack(t *testing.T) {
	stack := NewTestStack(t, "test", store.UpsertParams{Name: "g", Kind: store.KindGate, Enabled: true, Rollout: 100})

	if stack.Server == nil || stack.Client == nil {
		t.Fatal("Expected non-nil server and client")
	}
	if !stack.Client.IsReady() {
		t.Error("Expected client to be ready")
	}
	if _, ok := stack.Evaluator.Ruleset().Specs["g"]; !ok {
		t.Error("Expected seeded spec in the ruleset")
	}
}

func TestHTTPRequest_Do(t *testing.T) {
	stack := NewTestStack(t, "test")

	req := &HTTPRequest{Method: "GET", Path: "/healthz"}
	rr := req.Do(t, stack.Server.Router())

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got '%s'", rr.Body.String())
	}
}

func TestHTTPRequest_DoWithBody(t *testing.T) {
	stack := NewTestStack(t, "test", store.UpsertParams{Name: "g", Kind: store.KindGate, Enabled: true, Rollout: 100})

	req := &HTTPRequest{
		Method:  "POST",
		Path:    "/v1/check_gate",
		Body:    `{"user":{"userID":"u1"},"gateName":"g"}`,
		Headers: ClientAuth(),
	}
	rr := req.Do(t, stack.Server.Router())

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHTTPRequest_AdminHeaders(t *testing.T) {
	stack := NewTestStack(t, "test")
	handler := stack.Server.Router()

	req := &HTTPRequest{Method: "GET", Path: "/v1/admin/specs", Headers: ClientAuth()}
	if rr := req.Do(t, handler); rr.Code != http.StatusForbidden {
		t.Errorf("Expected client key to be forbidden, got %d", rr.Code)
	}

	req.Headers = AdminAuth()
	if rr := req.Do(t, handler); rr.Code != http.StatusOK {
		t.Errorf("Expected admin key to be accepted, got %d", rr.Code)
	}
}

func TestStack_ExposuresReachSink(t *testing.T) {
	stack := NewTestStack(t, "test", store.UpsertParams{Name: "g", Kind: store.KindGate, Enabled: true, Rollout: 100})
	ctx := context.Background()

	if _, err := stack.Client.CheckGate(ctx, model.User{UserID: "u1"}, "g"); err != nil {
		t.Fatalf("CheckGate failed: %v", err)
	}
	if err := stack.Client.LogEvent(model.User{UserID: "u1"}, "purchase", model.NoValue, nil); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	if err := stack.Client.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	n, err := stack.Sink.Count(ctx, model.GateExposureEvent)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 gate exposure row, got %d", n)
	}
	if n, _ := stack.Sink.Count(ctx, "purchase"); n != 1 {
		t.Errorf("Expected 1 purchase row, got %d", n)
	}
}

func TestSeedSpecs_DifferentEnvironments(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	specs := []store.UpsertParams{
		{Name: "a", Kind: store.KindGate, Env: "prod"},
		{Name: "b", Kind: store.KindGate, Env: "dev"},
		{Name: "c", Kind: store.KindGate},
	}
	if err := SeedSpecs(ctx, st, "prod", specs); err != nil {
		t.Fatalf("SeedSpecs failed: %v", err)
	}

	prod, err := st.GetAllSpecs(ctx, "prod")
	if err != nil {
		t.Fatalf("GetAllSpecs failed: %v", err)
	}
	if len(prod) != 2 {
		t.Errorf("Expected 2 prod specs, got %d", len(prod))
	}
	dev, _ := st.GetAllSpecs(ctx, "dev")
	if len(dev) != 1 {
		t.Errorf("Expected 1 dev spec, got %d", len(dev))
	}
}
