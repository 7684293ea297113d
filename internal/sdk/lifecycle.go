package sdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// State is the lifecycle state of a Client.
type State int32

const (
	StateNotReady State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "not_ready"
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// IsReady reports whether checks and event logging are accepted.
func (c *Client) IsReady() bool {
	return c.State() == StateReady
}

// Initialize loads the local ruleset. Concurrent callers share one attempt.
//
// With a positive InitTimeout the client becomes ready when the timeout
// fires even if the load is still running; the load is not cancelled and
// its late result is ignored. A load that fails before the timeout leaves
// the client NotReady and returns the error. ctx only bounds how long the
// caller waits.
//
// Shutdown is terminal: it closes the log queue and the transport for good,
// so Initialize on a shut down client returns ErrShutdown.
func (c *Client) Initialize(ctx context.Context) error {
	if err := ValidateSecret(c.secret); err != nil {
		return err
	}
	if c.shutdown.Load() {
		return ErrShutdown
	}
	if c.IsReady() {
		return nil
	}

	ch := c.initGroup.DoChan("initialize", func() (any, error) {
		return nil, c.initialize()
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) initialize() error {
	if c.IsReady() {
		return nil
	}
	c.state.CompareAndSwap(int32(StateNotReady), int32(StateInitializing))
	if c.shutdown.Load() {
		c.state.Store(int32(StateNotReady))
		return ErrShutdown
	}

	start := c.now()
	loaded := make(chan error, 1)
	go func() {
		loaded <- c.evaluator.Init(context.Background())
	}()

	var timeout <-chan time.Time
	if c.opts.InitTimeout > 0 {
		timer := time.NewTimer(c.opts.InitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-loaded:
		if err != nil {
			c.state.CompareAndSwap(int32(StateInitializing), int32(StateNotReady))
			c.logger.Error().Err(err).Msg("initialize failed")
			return fmt.Errorf("initialize: %w", err)
		}
		if c.state.CompareAndSwap(int32(StateInitializing), int32(StateReady)) {
			c.logger.Info().Dur("took", c.now().Sub(start)).Msg("initialized")
		}
	case <-timeout:
		if c.state.CompareAndSwap(int32(StateInitializing), int32(StateReady)) {
			c.logger.Warn().Dur("timeout", c.opts.InitTimeout).Msg("initialize timed out, serving before the ruleset finished loading")
		}
	}

	// Shutdown may have run while the load was in flight.
	if !c.IsReady() {
		if c.shutdown.Load() {
			return ErrShutdown
		}
		return ErrNotInitialized
	}
	return nil
}

// Shutdown marks the client NotReady and closes the log queue, the transport
// and the evaluator, in that order. Every close is attempted even if an
// earlier one fails or panics; the failures are joined. Only the first call
// closes anything.
func (c *Client) Shutdown() error {
	if c == nil || !c.constructed {
		return nil
	}
	if !c.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	c.state.Store(int32(StateNotReady))

	type closer struct {
		name string
		fn   func() error
	}
	var closers []closer
	if c.queue != nil {
		closers = append(closers, closer{"log queue", c.queue.Close})
	}
	if c.transport != nil {
		closers = append(closers, closer{"transport", c.transport.Close})
	}
	if c.evaluator != nil {
		closers = append(closers, closer{"evaluator", c.evaluator.Close})
	}

	var errs []error
	for _, cl := range closers {
		var (
			pc  panics.Catcher
			err error
		)
		pc.Try(func() { err = cl.fn() })
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}
		if err != nil {
			c.logger.Error().Err(err).Str("collaborator", cl.name).Msg("shutdown failed")
			errs = append(errs, fmt.Errorf("%s: %w", cl.name, err))
		}
	}
	return errors.Join(errs...)
}

// Flush blocks until queued events reach the sink. Without a log queue it is a no-op.
func (c *Client) Flush(ctx context.Context) error {
	if c.queue == nil {
		return nil
	}
	return c.queue.Flush(ctx)
}
