package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/lkataba/community-backend/internal/config"
)

func testMongoConfig() config.MongoConfig {
	return config.MongoConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "survey_db",
		ConnectTimeout: 50 * time.Millisecond,
		MaxRetries:     0,
		RetryDelay:     time.Second,
	}
}

func TestSupervisorStartsDisconnected(t *testing.T) {
	s := NewSupervisor(testMongoConfig())

	if s.Usable() {
		t.Fatal("fresh supervisor must not be usable")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %q", s.State())
	}
	if s.Client() != nil {
		t.Fatal("fresh supervisor must have no client")
	}
	if _, err := s.Collection("responses"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Collection err = %v, want ErrNotConnected", err)
	}
}

func TestSupervisorMarkDown(t *testing.T) {
	s := NewSupervisor(testMongoConfig())
	s.usable.Store(true)

	s.MarkDown(errors.New("write timeout"))
	if s.Usable() {
		t.Fatal("MarkDown must clear the usability flag")
	}
	// Repeated calls are harmless.
	s.MarkDown(errors.New("again"))
	if s.Usable() {
		t.Fatal("flag must stay down")
	}
}

func TestSupervisorHeartbeatRecovery(t *testing.T) {
	s := NewSupervisor(testMongoConfig())

	// A heartbeat before any successful connect must not flip the flag.
	s.onHeartbeatSucceeded()
	if s.Usable() {
		t.Fatal("heartbeat without a client must not mark usable")
	}

	// Simulate a connection that was live once, then dropped.
	s.mu.Lock()
	s.connected = true
	s.client = nil
	s.state = StateDisconnected
	s.mu.Unlock()
	s.onHeartbeatSucceeded()
	if s.Usable() {
		t.Fatal("recovery requires a live client")
	}
}

func TestSupervisorStatusSnapshot(t *testing.T) {
	s := NewSupervisor(testMongoConfig())
	s.setDisconnected(errors.New("connection refused"))

	st := s.StatusSnapshot()
	if st.Connected {
		t.Fatal("snapshot must report disconnected")
	}
	if st.State != StateDisconnected || st.Database != "survey_db" {
		t.Fatalf("snapshot = %+v", st)
	}
	if st.LastError != "connection refused" {
		t.Fatalf("LastError = %q", st.LastError)
	}
}

// lazyClient builds a real driver client without touching the network; the
// driver only dials on first operation.
func lazyClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(options.Client().
		ApplyURI("mongodb://localhost:27017").
		SetServerSelectionTimeout(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return client
}

func TestSupervisorReconnectReleasesPreviousClient(t *testing.T) {
	s := NewSupervisor(testMongoConfig())

	prev := lazyClient(t)
	s.mu.Lock()
	s.client = prev
	s.connected = true
	s.mu.Unlock()

	next := lazyClient(t)
	s.dialFn = func(context.Context) (*mongo.Client, error) { return next, nil }

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if s.Client() != next {
		t.Fatal("new client must be installed")
	}
	if !s.Usable() || s.State() != StateConnected {
		t.Fatalf("state = %q usable = %v", s.State(), s.Usable())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := prev.Ping(ctx, readpref.Primary()); !errors.Is(err, mongo.ErrClientDisconnected) {
		t.Fatalf("previous client err = %v, want ErrClientDisconnected", err)
	}
}

func TestSupervisorCloseWithoutClient(t *testing.T) {
	s := NewSupervisor(testMongoConfig())
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Usable() || s.State() != StateDisconnected {
		t.Fatal("closed supervisor must be down")
	}
}
