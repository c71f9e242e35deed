// Package services – InteractionService
//
// Reader engagement on board posts: like/dislike toggles keyed by caller
// identity and flat comment threads. Both ledgers are file-only; engagement
// data was never migrated to the database and survives database outages
// untouched.
package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/store"
)

// Interaction kinds accepted by Toggle.
const (
	InteractionLike    = "like"
	InteractionDislike = "dislike"
)

// MaxCommentLen bounds a single comment.
const MaxCommentLen = 500

// InteractionCounts is the public view of a post's like/dislike ledger. Only
// aggregates leave the service; the identity lists stay on disk.
type InteractionCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// PostStats aggregates a post's engagement.
type PostStats struct {
	Likes      int `json:"likes"`
	Dislikes   int `json:"dislikes"`
	Comments   int `json:"comments"`
	Engagement int `json:"engagement"`
}

// InteractionService implements the engagement use-cases.
type InteractionService struct {
	Interactions *store.InteractionsFile
	Comments     *store.CommentsFile
	now          func() time.Time
}

// NewInteractionService wires the engagement use-cases over the file stores.
func NewInteractionService(in *store.InteractionsFile, c *store.CommentsFile) *InteractionService {
	return &InteractionService{Interactions: in, Comments: c, now: time.Now}
}

// Counts returns the aggregate like/dislike tallies for a post. Unknown post
// ids read as an empty ledger; the board and the engagement files are not
// cross-validated.
func (s *InteractionService) Counts(postID string) (InteractionCounts, error) {
	in, err := s.Interactions.Get(postID)
	if err != nil {
		return InteractionCounts{}, err
	}
	return InteractionCounts{Likes: len(in.Likes), Dislikes: len(in.Dislikes)}, nil
}

// Toggle records or retracts an interaction for userID. Registering one kind
// first removes the caller from the opposite list, so an identity is never in
// both; repeating the same kind retracts it. The returned active flag reports
// whether the interaction is present after the call.
func (s *InteractionService) Toggle(postID, kind, userID string) (InteractionCounts, bool, error) {
	if userID == "" || (kind != InteractionLike && kind != InteractionDislike) {
		return InteractionCounts{}, false, ErrInvalidInteraction
	}

	var active bool
	in, err := s.Interactions.Mutate(postID, func(in *domain.Interactions) {
		mine, other := &in.Likes, &in.Dislikes
		if kind == InteractionDislike {
			mine, other = other, mine
		}
		*other = remove(*other, userID)
		if contains(*mine, userID) {
			*mine = remove(*mine, userID)
			active = false
		} else {
			*mine = append(*mine, userID)
			active = true
		}
	})
	if err != nil {
		return InteractionCounts{}, false, err
	}
	return InteractionCounts{Likes: len(in.Likes), Dislikes: len(in.Dislikes)}, active, nil
}

// ListComments returns a post's comments, newest first.
func (s *InteractionService) ListComments(postID string) ([]domain.Comment, error) {
	return s.Comments.List(postID)
}

// AddComment validates and appends a comment, returning it with the post's
// new comment total.
func (s *InteractionService) AddComment(postID, author, text string) (domain.Comment, int, error) {
	author = strings.TrimSpace(author)
	text = strings.TrimSpace(text)
	if author == "" || text == "" {
		return domain.Comment{}, 0, validationf("يرجى ملء جميع الحقول")
	}
	if len([]rune(text)) > MaxCommentLen {
		return domain.Comment{}, 0, validationf("التعليق طويل جداً (الحد الأقصى %d حرف)", MaxCommentLen)
	}

	now := s.now().UTC()
	c := domain.Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Timestamp: now.UnixMilli(),
		CreatedAt: now.Format(time.RFC3339),
	}
	return s.Comments.Add(postID, c)
}

// Stats aggregates a post's full engagement picture.
func (s *InteractionService) Stats(postID string) (PostStats, error) {
	in, err := s.Interactions.Get(postID)
	if err != nil {
		return PostStats{}, err
	}
	comments, err := s.Comments.List(postID)
	if err != nil {
		return PostStats{}, err
	}
	st := PostStats{
		Likes:    len(in.Likes),
		Dislikes: len(in.Dislikes),
		Comments: len(comments),
	}
	st.Engagement = st.Likes + st.Dislikes + st.Comments
	return st, nil
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func remove(s []string, v string) []string {
	out := s[:0]
	for _, e := range s {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
