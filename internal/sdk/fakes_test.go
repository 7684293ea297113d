package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/transport"
)

const testSecret = "secret-test"

// fakeEvaluator returns canned verdicts keyed by name.
type fakeEvaluator struct {
	mu       sync.Mutex
	gates    map[string]*model.Verdict
	configs  map[string]*model.Verdict
	layers   map[string]*model.Verdict
	lastUser model.User

	initFn    func(ctx context.Context) error
	initCalls atomic.Int32
	closeFn   func() error
	closed    atomic.Bool

	gateOverrides   map[string]bool
	configOverrides map[string]map[string]any
	initResponse    map[string]any
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{
		gates:           map[string]*model.Verdict{},
		configs:         map[string]*model.Verdict{},
		layers:          map[string]*model.Verdict{},
		gateOverrides:   map[string]bool{},
		configOverrides: map[string]map[string]any{},
	}
}

func (f *fakeEvaluator) Init(ctx context.Context) error {
	f.initCalls.Add(1)
	if f.initFn != nil {
		return f.initFn(ctx)
	}
	return nil
}

func (f *fakeEvaluator) lookup(m map[string]*model.Verdict, user model.User, name string) *model.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = user
	return m[name]
}

func (f *fakeEvaluator) CheckGate(user model.User, name string) *model.Verdict {
	return f.lookup(f.gates, user, name)
}

func (f *fakeEvaluator) GetConfig(user model.User, name string) *model.Verdict {
	return f.lookup(f.configs, user, name)
}

func (f *fakeEvaluator) GetLayer(user model.User, name string) *model.Verdict {
	return f.lookup(f.layers, user, name)
}

func (f *fakeEvaluator) OverrideGate(name string, value bool, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateOverrides[name+"/"+userID] = value
}

func (f *fakeEvaluator) OverrideConfig(name string, value map[string]any, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configOverrides[name+"/"+userID] = value
}

func (f *fakeEvaluator) GetClientInitializeResponse(user model.User) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = user
	return f.initResponse
}

func (f *fakeEvaluator) Close() error {
	f.closed.Store(true)
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func (f *fakeEvaluator) user() model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUser
}

// fakeTransport answers every dispatch with response or err and records the calls.
type fakeTransport struct {
	mu       sync.Mutex
	urls     []string
	bodies   []map[string]any
	response string
	err      error
	closed   atomic.Bool
}

func (f *fakeTransport) Dispatch(ctx context.Context, url string, body any, timeout time.Duration) (*transport.Response, error) {
	raw, _ := json.Marshal(body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)

	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.bodies = append(f.bodies, decoded)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return transport.NewResponse(200, []byte(f.response)), nil
}

func (f *fakeTransport) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

// fakeQueue records everything it is given.
type fakeQueue struct {
	mu        sync.Mutex
	events    []model.Event
	exposures []model.Exposure
	closeFn   func() error
	closed    atomic.Bool
	flushed   atomic.Int32
}

func (f *fakeQueue) Log(event model.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeQueue) LogExposure(x model.Exposure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exposures = append(f.exposures, x)
}

func (f *fakeQueue) Flush(ctx context.Context) error {
	f.flushed.Add(1)
	return nil
}

func (f *fakeQueue) Close() error {
	f.closed.Store(true)
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func (f *fakeQueue) loggedEvents() []model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Event(nil), f.events...)
}

func (f *fakeQueue) loggedExposures() []model.Exposure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Exposure(nil), f.exposures...)
}

var errBoom = errors.New("boom")
