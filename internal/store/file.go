// Package store implements the dual-backend persistence layer: every entity
// has a MongoDB implementation and a flat-JSON-file implementation of the
// same small capability interface, composed by an adapter that fails over
// from the database to the files whenever the connection supervisor reports
// the database unusable.
//
// This file contains the JSON backends. Writes are whole-file rewrites
// (read full document, mutate, serialize, replace via temp file + rename),
// which bounds throughput but keeps the on-disk file valid JSON at all
// times. Each file is guarded by its own mutex; the deployment model is
// single-process, so no cross-process locking is attempted.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lkataba/community-backend/internal/domain"
)

// Default fallback-store file names, one JSON document per collection.
const (
	SurveyFileName       = "survey_responses.json"
	PostsFileName        = "posts.json"
	ChatFileName         = "chat.json"
	InteractionsFileName = "interactions.json"
	CommentsFileName     = "comments.json"
)

// jsonFile is a mutex-guarded JSON document on disk. A missing file reads as
// the zero value of the target; writes go through a temp file and rename so
// readers never observe a partially written document.
type jsonFile struct {
	mu   sync.Mutex
	path string
}

// read decodes the file into v. A missing file leaves v untouched.
func (f *jsonFile) read(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// write replaces the file content with the JSON encoding of v.
func (f *jsonFile) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

//
// Survey responses
//

// FileSurveys is the JSON-file implementation of SurveyBackend.
type FileSurveys struct {
	f jsonFile
}

// NewFileSurveys opens the survey-response store rooted at dir.
func NewFileSurveys(dir string) *FileSurveys {
	return &FileSurveys{f: jsonFile{path: filepath.Join(dir, SurveyFileName)}}
}

// Insert appends the response and returns its generated id.
func (s *FileSurveys) Insert(ctx context.Context, r *domain.SurveyResponse) (string, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.SurveyResponse
	if err := s.f.read(&all); err != nil {
		return "", err
	}
	r.ID = uuid.NewString()
	all = append(all, *r)
	if err := s.f.write(all); err != nil {
		return "", err
	}
	return r.ID, nil
}

// All returns every stored response, newest first.
func (s *FileSurveys) All(ctx context.Context) ([]domain.SurveyResponse, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.SurveyResponse
	if err := s.f.read(&all); err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SubmittedAt.After(all[j].SubmittedAt) })
	return all, nil
}

// Count returns the number of stored responses.
func (s *FileSurveys) Count(ctx context.Context) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.SurveyResponse
	if err := s.f.read(&all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// CountSince returns the number of responses submitted at or after t.
func (s *FileSurveys) CountSince(ctx context.Context, t time.Time) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.SurveyResponse
	if err := s.f.read(&all); err != nil {
		return 0, err
	}
	n := 0
	for i := range all {
		if !all[i].SubmittedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

// Clear removes all responses and returns how many were deleted.
func (s *FileSurveys) Clear(ctx context.Context) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.SurveyResponse
	if err := s.f.read(&all); err != nil {
		return 0, err
	}
	if err := s.f.write([]domain.SurveyResponse{}); err != nil {
		return 0, err
	}
	return len(all), nil
}

//
// Posts
//

// FilePosts is the JSON-file implementation of PostBackend.
type FilePosts struct {
	f jsonFile
}

// NewFilePosts opens the posts store rooted at dir.
func NewFilePosts(dir string) *FilePosts {
	return &FilePosts{f: jsonFile{path: filepath.Join(dir, PostsFileName)}}
}

// Insert prepends the post (newest first on disk, matching read order).
func (s *FilePosts) Insert(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.Post
	if err := s.f.read(&all); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	p.Date = p.CreatedAt.Format("2006-01-02")
	all = append([]domain.Post{*p}, all...)
	if err := s.f.write(all); err != nil {
		return nil, err
	}
	return p, nil
}

// All returns every post, newest first.
func (s *FilePosts) All(ctx context.Context) ([]domain.Post, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.Post
	if err := s.f.read(&all); err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

// Get returns the post with the given id, or ErrNotFound.
func (s *FilePosts) Get(ctx context.Context, id string) (*domain.Post, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.Post
	if err := s.f.read(&all); err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			p := all[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// Update applies a moderation transition to the post with the given id.
func (s *FilePosts) Update(ctx context.Context, id, status string, approved bool) (*domain.Post, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.Post
	if err := s.f.read(&all); err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			all[i].Status = status
			all[i].Approved = approved
			all[i].UpdatedAt = time.Now().UTC()
			if err := s.f.write(all); err != nil {
				return nil, err
			}
			p := all[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes the post with the given id. It reports whether a post was
// actually removed.
func (s *FilePosts) Delete(ctx context.Context, id string) (bool, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	var all []domain.Post
	if err := s.f.read(&all); err != nil {
		return false, err
	}
	for i := range all {
		if all[i].ID == id {
			all = append(all[:i], all[i+1:]...)
			if err := s.f.write(all); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

//
// Chat log (file-only: the chat subsystem never uses the database)
//

// ChatFile persists the chat document: capped message log plus the audit
// mirror of presence records.
type ChatFile struct {
	f jsonFile
}

// NewChatFile opens the chat store rooted at dir, creating the initial
// document if it does not exist.
func NewChatFile(dir string) *ChatFile {
	c := &ChatFile{f: jsonFile{path: filepath.Join(dir, ChatFileName)}}
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if _, err := os.Stat(c.f.path); errors.Is(err, os.ErrNotExist) {
		_ = c.f.write(domain.ChatLog{
			Messages: []domain.ChatMessage{},
			Users:    []domain.ChatUser{},
			Created:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c
}

// Load reads the chat document. A missing or empty file yields an empty log.
func (c *ChatFile) Load() (domain.ChatLog, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	var log domain.ChatLog
	err := c.f.read(&log)
	return log, err
}

// Save replaces the chat document.
func (c *ChatFile) Save(log domain.ChatLog) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	return c.f.write(log)
}

// Mutate applies fn to the chat document under the file lock and persists the
// result when fn reports a change.
func (c *ChatFile) Mutate(fn func(*domain.ChatLog) (changed bool, err error)) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	var log domain.ChatLog
	if err := c.f.read(&log); err != nil {
		return err
	}
	changed, err := fn(&log)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return c.f.write(log)
}

//
// Interactions and comments (file-only, keyed maps)
//

// InteractionsFile persists the per-post like/dislike ledger.
type InteractionsFile struct {
	f jsonFile
}

// NewInteractionsFile opens the interactions store rooted at dir.
func NewInteractionsFile(dir string) *InteractionsFile {
	return &InteractionsFile{f: jsonFile{path: filepath.Join(dir, InteractionsFileName)}}
}

// Get returns the ledger for a post; a missing entry reads as empty.
func (s *InteractionsFile) Get(postID string) (domain.Interactions, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m := map[string]domain.Interactions{}
	if err := s.f.read(&m); err != nil {
		return domain.Interactions{}, err
	}
	in := m[postID]
	if in.Likes == nil {
		in.Likes = []string{}
	}
	if in.Dislikes == nil {
		in.Dislikes = []string{}
	}
	return in, nil
}

// Mutate applies fn to a post's ledger under the file lock and persists the
// whole map.
func (s *InteractionsFile) Mutate(postID string, fn func(*domain.Interactions)) (domain.Interactions, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m := map[string]domain.Interactions{}
	if err := s.f.read(&m); err != nil {
		return domain.Interactions{}, err
	}
	in := m[postID]
	if in.Likes == nil {
		in.Likes = []string{}
	}
	if in.Dislikes == nil {
		in.Dislikes = []string{}
	}
	fn(&in)
	m[postID] = in
	if err := s.f.write(m); err != nil {
		return domain.Interactions{}, err
	}
	return in, nil
}

// CommentsFile persists per-post reader comments.
type CommentsFile struct {
	f jsonFile
}

// NewCommentsFile opens the comments store rooted at dir.
func NewCommentsFile(dir string) *CommentsFile {
	return &CommentsFile{f: jsonFile{path: filepath.Join(dir, CommentsFileName)}}
}

// List returns a post's comments, newest first.
func (s *CommentsFile) List(postID string) ([]domain.Comment, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m := map[string][]domain.Comment{}
	if err := s.f.read(&m); err != nil {
		return nil, err
	}
	out := m[postID]
	if out == nil {
		out = []domain.Comment{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// Add appends a comment to a post and returns it with the total count.
func (s *CommentsFile) Add(postID string, c domain.Comment) (domain.Comment, int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m := map[string][]domain.Comment{}
	if err := s.f.read(&m); err != nil {
		return domain.Comment{}, 0, err
	}
	m[postID] = append(m[postID], c)
	if err := s.f.write(m); err != nil {
		return domain.Comment{}, 0, err
	}
	return c, len(m[postID]), nil
}
