// Package sdk is the server-side core: it initializes the local evaluator,
// dispatches gate, config and layer checks locally or to the remote
// service, emits exposures and forwards logged events to the log queue.
package sdk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/exposure"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/fallback"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

const (
	SDKType    = "go-server"
	SDKVersion = "0.4.0"

	// DefaultAPI is the remote evaluation service used when Options.API is empty.
	DefaultAPI = "https://api.flagship.dev/v1"

	secretPrefix = "secret-"
)

var (
	ErrInvalidSecret      = errors.New("invalid server secret: must be a non-empty key starting with \"secret-\"")
	ErrNotInitialized     = errors.New("must call Initialize() first")
	ErrInvalidName        = errors.New("lookup key must be a non-empty string")
	ErrUnidentifiableUser = errors.New("must pass a valid user with a userID or customID")
	ErrRemoteEvaluation   = errors.New("remote evaluation failed")
	ErrNoTransport        = errors.New("no transport configured")
	ErrShutdown           = errors.New("client is shut down")
)

// Evaluator decides gates, configs and layers from a local ruleset.
// A nil verdict means the entity is unknown.
type Evaluator interface {
	Init(ctx context.Context) error
	CheckGate(user model.User, name string) *model.Verdict
	GetConfig(user model.User, name string) *model.Verdict
	GetLayer(user model.User, name string) *model.Verdict
	OverrideGate(name string, value bool, userID string)
	OverrideConfig(name string, value map[string]any, userID string)
	GetClientInitializeResponse(user model.User) map[string]any
	Close() error
}

// Transport carries remote evaluation requests.
type Transport interface {
	fallback.Dispatcher
	Close() error
}

// LogQueue receives events and exposures without blocking.
type LogQueue interface {
	Log(event model.Event)
	LogExposure(x model.Exposure)
	Flush(ctx context.Context) error
	Close() error
}

// Options configures a Client.
type Options struct {
	// API is the base URL of the remote evaluation service.
	API string
	// Environment is stamped onto every user, e.g. {"tier": "production"}.
	Environment map[string]string
	// InitTimeout bounds Initialize. Zero waits for the ruleset load.
	InitTimeout time.Duration
	Logger      zerolog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	secret    string
	evaluator Evaluator
	transport Transport
	queue     LogQueue
	remote    *fallback.Client
	emitter   *exposure.Emitter
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time

	state       atomic.Int32
	shutdown    atomic.Bool
	initGroup   singleflight.Group
	warnOnce    sync.Once
	constructed bool
}

// New creates a client. transport and queue may be nil: without a transport
// every remote evaluation fails, without a queue exposures and events are
// discarded.
func New(secret string, evaluator Evaluator, transport Transport, queue LogQueue, opts Options) *Client {
	if opts.API == "" {
		opts.API = DefaultAPI
	}
	c := &Client{
		secret:    secret,
		evaluator: evaluator,
		transport: transport,
		queue:     queue,
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "sdk").Logger(),
		now:       time.Now,
	}
	if transport != nil {
		c.remote = fallback.New(transport, opts.API, fallback.NewMetadata(SDKType, SDKVersion))
	}
	c.emitter = exposure.New(queue)
	c.constructed = true
	return c
}

// ValidateSecret checks the shape of a server secret without contacting the server.
func ValidateSecret(secret string) error {
	if secret == "" || !strings.HasPrefix(secret, secretPrefix) {
		return ErrInvalidSecret
	}
	return nil
}

func (c *Client) warnUnidentifiable() {
	c.warnOnce.Do(func() {
		c.logger.Warn().Msg("a user without userID or customIDs was passed; events for such users are logged but cannot be attributed")
	})
}
