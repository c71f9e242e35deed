// Connection supervisor for the document database.
//
// The supervisor owns the MongoDB client lifecycle and the process-wide
// usability flag the adapters read on every call. Its state machine is
// Disconnected → Connecting → Connected; a heartbeat failure after a
// successful connection flips the flag and schedules exactly one reconnect
// attempt, which re-enters the bounded initial-connect retry loop. A failed
// initial connect gives up after the configured retries and waits for the
// next triggering event rather than polling forever.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/lkataba/community-backend/internal/config"
)

// Supervisor connection states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// ErrNotConnected is returned by database backends when no live client is
// available; adapters translate it into a file-backend fallback.
var ErrNotConnected = errors.New("store: mongodb not connected")

// Supervisor manages the MongoDB connection and exposes the usability flag
// consumed by the store adapters. All methods are safe for concurrent use.
type Supervisor struct {
	cfg    config.MongoConfig
	dialFn func(context.Context) (*mongo.Client, error)

	usable atomic.Bool

	mu           sync.Mutex
	client       *mongo.Client
	state        string
	connected    bool // a connection succeeded at least once
	reconnecting bool // a reconnect is already scheduled
	lastErr      error
}

// NewSupervisor builds a supervisor in the Disconnected state.
func NewSupervisor(cfg config.MongoConfig) *Supervisor {
	s := &Supervisor{cfg: cfg, state: StateDisconnected}
	s.dialFn = s.dial
	return s
}

// Usable reports whether the database is currently considered live. Adapters
// read this synchronously on every operation; there is no per-call probe.
func (s *Supervisor) Usable() bool { return s.usable.Load() }

// State returns the current connection state name.
func (s *Supervisor) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent connection error, if any.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Client returns the live client, or nil when disconnected.
func (s *Supervisor) Client() *mongo.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Collection resolves a collection handle on the configured database, or
// ErrNotConnected when no client is live.
func (s *Supervisor) Collection(name string) (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client.Database(s.cfg.Database).Collection(name), nil
}

// MarkDown flips the usability flag off after an operation-level failure.
// Reconnection is left to the heartbeat monitor; a transient write error must
// not spawn its own reconnect storm.
func (s *Supervisor) MarkDown(reason error) {
	if s.usable.CompareAndSwap(true, false) {
		log.Warn().Err(reason).Msg("mongodb marked unusable, falling back to json storage")
	}
}

// Connect runs the bounded initial-connect sequence: one attempt plus up to
// MaxRetries retries with a fixed delay. On success the usability flag is set
// before Connect returns. On final failure the supervisor stays Disconnected
// until a later disconnect event triggers a reconnect, or the process
// restarts.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	attempts := s.cfg.MaxRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-ctx.Done():
				s.setDisconnected(ctx.Err())
				return ctx.Err()
			}
		}
		log.Info().Int("attempt", i+1).Int("max", attempts).Msg("connecting to mongodb")

		client, err := s.dialFn(ctx)
		if err == nil {
			s.mu.Lock()
			prev := s.client
			s.client = client
			s.state = StateConnected
			s.connected = true
			s.lastErr = nil
			s.mu.Unlock()
			s.usable.Store(true)
			if prev != nil {
				// Release the stale pool from before the reconnect so its
				// heartbeat monitor stops firing.
				if derr := prev.Disconnect(context.Background()); derr != nil {
					log.Warn().Err(derr).Msg("stale mongodb client disconnect failed")
				}
			}
			log.Info().Msg("mongodb connection established")
			return nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i+1).Msg("mongodb connection attempt failed")
	}

	s.setDisconnected(lastErr)
	log.Warn().Err(lastErr).Msg("mongodb unreachable, serving from json storage")
	return lastErr
}

func (s *Supervisor) setDisconnected(err error) {
	s.mu.Lock()
	s.state = StateDisconnected
	s.lastErr = err
	s.mu.Unlock()
	s.usable.Store(false)
}

// dial performs a single connection attempt and verifies it with a ping.
func (s *Supervisor) dial(ctx context.Context) (*mongo.Client, error) {
	monitor := &event.ServerMonitor{
		ServerHeartbeatSucceeded: func(*event.ServerHeartbeatSucceededEvent) {
			s.onHeartbeatSucceeded()
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			s.onHeartbeatFailed(e.Failure)
		},
	}
	opts := options.Client().
		ApplyURI(s.cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(s.cfg.ConnectTimeout).
		SetMaxPoolSize(10).
		SetServerMonitor(monitor)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// onHeartbeatSucceeded restores the usability flag when the driver recovers
// on its own (e.g. a replica-set election settles).
func (s *Supervisor) onHeartbeatSucceeded() {
	s.mu.Lock()
	restored := s.client != nil && s.state == StateConnected
	if s.client != nil && s.state == StateDisconnected && s.connected {
		s.state = StateConnected
		restored = true
	}
	s.mu.Unlock()
	if restored && s.usable.CompareAndSwap(false, true) {
		log.Info().Msg("mongodb heartbeat recovered, resuming database writes")
	}
}

// onHeartbeatFailed flips the flag and schedules exactly one reconnect after
// the configured delay. Only fires reconnect logic for connections that were
// live at least once; initial-connect failures are handled by Connect itself.
func (s *Supervisor) onHeartbeatFailed(cause error) {
	s.usable.Store(false)

	s.mu.Lock()
	if !s.connected || s.reconnecting {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.state = StateDisconnected
	s.lastErr = cause
	s.mu.Unlock()

	log.Warn().Err(cause).Msg("mongodb heartbeat failed, scheduling reconnect")
	time.AfterFunc(s.cfg.RetryDelay, func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
		if err := s.Connect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb reconnect failed")
		}
	})
}

// Close disconnects the client gracefully. Called on process shutdown.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.state = StateDisconnected
	s.mu.Unlock()
	s.usable.Store(false)

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// Status is a point-in-time snapshot for the health endpoint.
type Status struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
	Database  string `json:"database"`
	LastError string `json:"lastError,omitempty"`
}

// StatusSnapshot reports the supervisor's current view of the connection.
func (s *Supervisor) StatusSnapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Connected: s.usable.Load(),
		State:     s.state,
		Database:  s.cfg.Database,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
