// Package services – PostService
//
// Implements the moderated publishing board: password-gated submission,
// category and length validation, the moderation state machine, and the
// public/admin listing views. Rejection is destructive: a rejected or deleted
// post is removed outright, never archived.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/store"
)

// Input length limits, enforced before anything reaches storage.
const (
	MaxTitleLen   = 200
	MaxExcerptLen = 500
	MaxContentLen = 10000
	MaxAuthorLen  = 100
)

// Moderation decisions accepted by Moderate. "deleted" behaves exactly like
// "rejected"; both remove the post.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
	DecisionDeleted  = "deleted"
)

// SubmitPostInput is the password-gated submission payload.
type SubmitPostInput struct {
	Title    string
	Category string
	Excerpt  string
	Content  string
	Author   string
	Password string
}

// PostService implements the use-cases around board posts.
type PostService struct {
	Posts          *store.Posts
	SubmitPassword string
	now            func() time.Time
}

// NewPostService wires the board use-cases over the posts adapter.
func NewPostService(posts *store.Posts, submitPassword string) *PostService {
	return &PostService{Posts: posts, SubmitPassword: submitPassword, now: time.Now}
}

// Submit validates and stores a new post in the pending state.
func (s *PostService) Submit(ctx context.Context, in SubmitPostInput) (*domain.Post, string, error) {
	if in.Password != s.SubmitPassword || s.SubmitPassword == "" {
		return nil, "", ErrBadPassword
	}
	if in.Title == "" || in.Category == "" || in.Excerpt == "" || in.Content == "" || in.Author == "" {
		return nil, "", validationf("جميع الحقول مطلوبة")
	}
	if !domain.ValidCategory(in.Category) {
		return nil, "", validationf("فئة غير صحيحة")
	}
	if err := s.checkLengths(in.Title, in.Excerpt, in.Content, in.Author); err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	post := &domain.Post{
		Title:     strings.TrimSpace(in.Title),
		Category:  in.Category,
		Excerpt:   strings.TrimSpace(in.Excerpt),
		Content:   strings.TrimSpace(in.Content),
		Author:    strings.TrimSpace(in.Author),
		Status:    domain.StatusPending,
		Approved:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.Posts.Insert(ctx, post)
}

// Create stores a post through the legacy endpoint: no password gate and no
// category. The post still lands in the pending queue.
func (s *PostService) Create(ctx context.Context, title, content, author string) (*domain.Post, error) {
	if title == "" || content == "" || author == "" {
		return nil, validationf("جميع الحقول مطلوبة")
	}
	if err := s.checkLengths(title, "", content, author); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	post := &domain.Post{
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		Author:    strings.TrimSpace(author),
		Status:    domain.StatusPending,
		Approved:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	out, _, err := s.Posts.Insert(ctx, post)
	return out, err
}

func (s *PostService) checkLengths(title, excerpt, content, author string) error {
	if len([]rune(title)) > MaxTitleLen {
		return validationf("العنوان طويل جداً (الحد الأقصى %d حرف)", MaxTitleLen)
	}
	if len([]rune(excerpt)) > MaxExcerptLen {
		return validationf("المقتطف طويل جداً (الحد الأقصى %d حرف)", MaxExcerptLen)
	}
	if len([]rune(content)) > MaxContentLen {
		return validationf("المحتوى طويل جداً (الحد الأقصى %d حرف)", MaxContentLen)
	}
	if len([]rune(author)) > MaxAuthorLen {
		return validationf("اسم الكاتب طويل جداً (الحد الأقصى %d حرف)", MaxAuthorLen)
	}
	return nil
}

// ListPublished returns the approved posts, optionally filtered by category,
// newest first. An empty or "all" category means no filter.
func (s *PostService) ListPublished(ctx context.Context, category string) ([]domain.Post, error) {
	all, err := s.Posts.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(all))
	for i := range all {
		if !all[i].Published() {
			continue
		}
		if category != "" && category != "all" && all[i].Category != category {
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

// ListAll returns every post regardless of state, newest first.
func (s *PostService) ListAll(ctx context.Context) ([]domain.Post, error) {
	return s.Posts.All(ctx)
}

// ListPending returns the moderation queue, newest first.
func (s *PostService) ListPending(ctx context.Context) ([]domain.Post, error) {
	all, err := s.Posts.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(all))
	for i := range all {
		if !all[i].Approved {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// GetPublished returns one approved post by id. Pending posts are reported
// as not found so the moderation queue cannot be probed through the public
// endpoint.
func (s *PostService) GetPublished(ctx context.Context, id string) (*domain.Post, error) {
	p, err := s.Posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !p.Published() {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// Moderate applies a moderation decision. Approval persists the transition
// and returns the updated post; rejection and deletion remove the post and
// return nil. Decisions on a missing post yield ErrPostNotFound.
func (s *PostService) Moderate(ctx context.Context, id, decision string) (*domain.Post, error) {
	switch decision {
	case DecisionApproved:
		p, err := s.Posts.Update(ctx, id, domain.StatusApproved, true)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return p, err
	case DecisionRejected, DecisionDeleted:
		ok, err := s.Posts.Delete(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPostNotFound
		}
		return nil, nil
	default:
		return nil, ErrInvalidStatus
	}
}

// Delete removes a post directly, outside the moderation flow.
func (s *PostService) Delete(ctx context.Context, id string) error {
	ok, err := s.Posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPostNotFound
	}
	return nil
}

// Search returns approved posts matching q in title, content, or author.
// Title matches rank before body matches; within a rank, newest first.
func (s *PostService) Search(ctx context.Context, q string) ([]domain.Post, error) {
	term := strings.ToLower(strings.TrimSpace(q))
	if term == "" {
		return nil, validationf("نص البحث مطلوب")
	}
	all, err := s.Posts.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0)
	for i := range all {
		p := &all[i]
		if !p.Approved {
			continue
		}
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Content), term) ||
			strings.Contains(strings.ToLower(p.Author), term) {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		it := strings.Contains(strings.ToLower(out[i].Title), term)
		jt := strings.Contains(strings.ToLower(out[j].Title), term)
		if it != jt {
			return it
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
