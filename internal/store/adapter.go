// Dual-backend adapters.
//
// Each entity kind exposes a small capability interface with two
// implementations (MongoDB and JSON file); the adapter composes them with
// the failover policy:
//
//   - usability flag true → try the database first
//   - any database error on a WRITE → flip the flag off, log, re-execute the
//     identical logical operation against the file backend and return that
//     result (the request does not fail)
//   - a failed READ tries the file fallback directly without touching the
//     process-wide flag
//   - usability flag false → go straight to the file backend
//
// Only a simultaneous failure of both backends surfaces to the caller.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lkataba/community-backend/internal/domain"
)

// Storage identifiers reported back to API clients.
const (
	StorageMongo = "mongodb"
	StorageJSON  = "json"
)

// ErrNotFound is returned when a requested record does not exist in the
// active backend.
var ErrNotFound = errors.New("store: not found")

// ErrAllBackends is returned when both the database and the file backend
// failed for the same logical operation. This is the only fatal storage
// outcome; everything else is recovered transparently.
var ErrAllBackends = errors.New("store: all storage backends failed")

// Health is the adapter's view of the connection supervisor: a synchronous
// usability flag plus the ability to mark the database down after a failed
// write.
type Health interface {
	Usable() bool
	MarkDown(reason error)
}

// SurveyBackend is the capability interface implemented by MongoSurveys and
// FileSurveys.
type SurveyBackend interface {
	Insert(ctx context.Context, r *domain.SurveyResponse) (string, error)
	All(ctx context.Context) ([]domain.SurveyResponse, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, t time.Time) (int, error)
	Clear(ctx context.Context) (int, error)
}

// PostBackend is the capability interface implemented by MongoPosts and
// FilePosts.
type PostBackend interface {
	Insert(ctx context.Context, p *domain.Post) (*domain.Post, error)
	All(ctx context.Context) ([]domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	Update(ctx context.Context, id, status string, approved bool) (*domain.Post, error)
	Delete(ctx context.Context, id string) (bool, error)
}

//
// Surveys
//

// Surveys is the failover adapter over the two survey backends.
type Surveys struct {
	health Health
	db     SurveyBackend
	file   SurveyBackend
}

// NewSurveys composes the survey adapter.
func NewSurveys(health Health, db, file SurveyBackend) *Surveys {
	return &Surveys{health: health, db: db, file: file}
}

// Insert stores a response, reporting which backend took the write.
func (s *Surveys) Insert(ctx context.Context, r *domain.SurveyResponse) (id, storage string, err error) {
	if s.health.Usable() {
		if id, err = s.db.Insert(ctx, r); err == nil {
			return id, StorageMongo, nil
		}
		s.health.MarkDown(err)
		log.Warn().Err(err).Msg("survey insert failed on mongodb, retrying on json")
	}
	if id, err = s.file.Insert(ctx, r); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrAllBackends, err)
	}
	return id, StorageJSON, nil
}

// All lists every response from the active backend, newest first.
func (s *Surveys) All(ctx context.Context) ([]domain.SurveyResponse, string, error) {
	if s.health.Usable() {
		if out, err := s.db.All(ctx); err == nil {
			return out, StorageMongo, nil
		} else {
			log.Warn().Err(err).Msg("survey read failed on mongodb, trying json")
		}
	}
	out, err := s.file.All(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrAllBackends, err)
	}
	return out, StorageJSON, nil
}

// Count returns the submission total from the active backend. Unlike the
// other reads it does NOT fall back on error: the counter cache owns its own
// layered fallback (stale cache first, file second) and needs the raw
// failure to drive it.
func (s *Surveys) Count(ctx context.Context) (int, string, error) {
	if s.health.Usable() {
		n, err := s.db.Count(ctx)
		if err != nil {
			return 0, StorageMongo, err
		}
		return n, StorageMongo, nil
	}
	n, err := s.file.Count(ctx)
	return n, StorageJSON, err
}

// FileCount counts submissions directly in the file backend, bypassing the
// usability flag. Used as the counter cache's last fallback layer.
func (s *Surveys) FileCount(ctx context.Context) (int, error) {
	return s.file.Count(ctx)
}

// CountSince counts submissions at or after t on the active backend, falling
// back to the file on a database error.
func (s *Surveys) CountSince(ctx context.Context, t time.Time) (int, error) {
	if s.health.Usable() {
		if n, err := s.db.CountSince(ctx, t); err == nil {
			return n, nil
		} else {
			log.Warn().Err(err).Msg("windowed survey count failed on mongodb, trying json")
		}
	}
	return s.file.CountSince(ctx, t)
}

// Storage names the backend the next operation would use.
func (s *Surveys) Storage() string {
	if s.health.Usable() {
		return StorageMongo
	}
	return StorageJSON
}

// Clear wipes BOTH backends regardless of the usability flag and returns the
// combined number of removed responses. Partial failures are collected so the
// caller can report them without losing the successful half.
func (s *Surveys) Clear(ctx context.Context) (cleared int, errs []error) {
	if s.health.Usable() {
		if n, err := s.db.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: %w", err))
		} else {
			cleared += n
		}
	}
	if n, err := s.file.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("json: %w", err))
	} else {
		cleared += n
	}
	return cleared, errs
}

//
// Posts
//

// Posts is the failover adapter over the two post backends.
type Posts struct {
	health Health
	db     PostBackend
	file   PostBackend
}

// NewPosts composes the posts adapter.
func NewPosts(health Health, db, file PostBackend) *Posts {
	return &Posts{health: health, db: db, file: file}
}

// Insert stores a post, reporting which backend took the write.
func (p *Posts) Insert(ctx context.Context, post *domain.Post) (*domain.Post, string, error) {
	if p.health.Usable() {
		if out, err := p.db.Insert(ctx, post); err == nil {
			return out, StorageMongo, nil
		} else {
			p.health.MarkDown(err)
			log.Warn().Err(err).Msg("post insert failed on mongodb, retrying on json")
		}
	}
	out, err := p.file.Insert(ctx, post)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrAllBackends, err)
	}
	return out, StorageJSON, nil
}

// All lists every post from the active backend, newest first.
func (p *Posts) All(ctx context.Context) ([]domain.Post, error) {
	if p.health.Usable() {
		if out, err := p.db.All(ctx); err == nil {
			return out, nil
		} else {
			log.Warn().Err(err).Msg("post read failed on mongodb, trying json")
		}
	}
	out, err := p.file.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllBackends, err)
	}
	return out, nil
}

// Get fetches one post by id. A not-found on the database is authoritative
// and does not fall through to the file; cross-backend ids never match and a
// phantom fallback hit would resurrect deleted posts.
func (p *Posts) Get(ctx context.Context, id string) (*domain.Post, error) {
	if p.health.Usable() {
		out, err := p.db.Get(ctx, id)
		if err == nil || errors.Is(err, ErrNotFound) {
			return out, err
		}
		log.Warn().Err(err).Msg("post get failed on mongodb, trying json")
	}
	return p.file.Get(ctx, id)
}

// Update applies a moderation transition on the active backend.
func (p *Posts) Update(ctx context.Context, id, status string, approved bool) (*domain.Post, error) {
	if p.health.Usable() {
		out, err := p.db.Update(ctx, id, status, approved)
		if err == nil || errors.Is(err, ErrNotFound) {
			return out, err
		}
		p.health.MarkDown(err)
		log.Warn().Err(err).Msg("post update failed on mongodb, retrying on json")
	}
	return p.file.Update(ctx, id, status, approved)
}

// Delete removes a post on the active backend.
func (p *Posts) Delete(ctx context.Context, id string) (bool, error) {
	if p.health.Usable() {
		ok, err := p.db.Delete(ctx, id)
		if err == nil {
			return ok, nil
		}
		p.health.MarkDown(err)
		log.Warn().Err(err).Msg("post delete failed on mongodb, retrying on json")
	}
	return p.file.Delete(ctx, id)
}
