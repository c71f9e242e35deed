// Package domain defines the persisted entities shared by both storage
// backends: survey responses, publishing-board posts, and the ephemeral chat
// records. The same structs are serialized to MongoDB (bson) and to the flat
// JSON files, so the field tags of both codecs live here.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Language codes accepted on survey submissions.
const (
	LangArabic  = "ar"
	LangEnglish = "en"
)

// Post moderation states. Approved is terminal and persisted; Rejected is
// terminal and destructive (the post row is deleted, never archived).
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// PostCategories is the fixed category enum for board posts.
var PostCategories = []string{
	"news", "articles", "tech", "culture", "sports", "economy", "art", "rap-religion",
}

// ValidCategory reports whether c is one of the allowed post categories.
func ValidCategory(c string) bool {
	for _, v := range PostCategories {
		if v == c {
			return true
		}
	}
	return false
}

// AnswerValue is a tagged survey answer: either a single free-form string or
// a set of strings (multi-select questions). Exactly one of the two shapes is
// populated. It round-trips through JSON as a bare string or a string array.
type AnswerValue struct {
	One  string
	Many []string
}

// IsSet reports whether the value carries the multi-select shape.
func (a AnswerValue) IsSet() bool { return a.Many != nil }

// String returns the single value, or the first set entry as a fallback.
func (a AnswerValue) String() string {
	if a.Many != nil {
		if len(a.Many) == 0 {
			return ""
		}
		return a.Many[0]
	}
	return a.One
}

// MarshalJSON writes either a bare string or a string array.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.Many != nil {
		return json.Marshal(a.Many)
	}
	return json.Marshal(a.One)
}

// UnmarshalJSON accepts a bare string or a string array; anything else is an
// edge-level validation failure, not trusted deeper into the pipeline.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		a.One, a.Many = one, nil
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		a.One, a.Many = "", many
		return nil
	}
	return fmt.Errorf("answer must be a string or an array of strings")
}

// SurveyResponse is a single anonymous survey submission. Responses are
// immutable after creation and only removed by the admin bulk clear.
type SurveyResponse struct {
	ID          string                 `json:"id" bson:"-"`
	Language    string                 `json:"language" bson:"language"`
	Answers     map[string]AnswerValue `json:"answers" bson:"-"`
	SubmittedAt time.Time              `json:"submittedAt" bson:"submittedAt"`
}

// Post is a publishing-board article. The legacy Approved boolean is kept in
// lockstep with Status for backward compatibility: approved == true iff
// status == "approved". Both fields are written on every transition.
type Post struct {
	ID        string    `json:"id" bson:"-"`
	Title     string    `json:"title" bson:"title"`
	Category  string    `json:"category" bson:"category"`
	Excerpt   string    `json:"excerpt" bson:"excerpt"`
	Content   string    `json:"content" bson:"content"`
	Author    string    `json:"author" bson:"author"`
	Status    string    `json:"status" bson:"status"`
	Date      string    `json:"date" bson:"-"` // yyyy-mm-dd, derived from CreatedAt
	Approved  bool      `json:"approved" bson:"approved"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Published reports whether the post is publicly visible. Both legacy and
// current fields must agree.
func (p *Post) Published() bool { return p.Approved && p.Status == StatusApproved }

// ChatUser is a presence record for a joined chat participant. Presence lives
// in process memory only; the copy mirrored into the persisted users list is
// an audit artifact, not a source of truth.
type ChatUser struct {
	Nickname string `json:"nickname"`
	Gender   string `json:"gender"`
	JoinTime string `json:"joinTime"`
	Avatar   string `json:"avatar"`
	LastSeen string `json:"lastSeen"`
}

// ChatUserRef is the author snapshot embedded in a chat message. System
// messages carry no author.
type ChatUserRef struct {
	Nickname string `json:"nickname"`
	Gender   string `json:"gender,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Chat message types.
const (
	MessageTypeText   = "text"
	MessageTypeUser   = "user" // legacy alias for text
	MessageTypeSystem = "system"
)

// ChatMessage is one entry in the persisted chat log. User-typed messages
// expire three days after creation; system messages never expire.
type ChatMessage struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	User      *ChatUserRef `json:"user,omitempty"`
	Text      string       `json:"text"`
	Timestamp string       `json:"timestamp"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// Expired reports whether the message has outlived its ExpiresAt stamp.
// Messages without a stamp (system messages) never expire.
func (m *ChatMessage) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// ChatLog is the persisted chat document: the capped message log plus the
// audit mirror of presence records.
type ChatLog struct {
	Messages []ChatMessage `json:"messages"`
	Users    []ChatUser    `json:"users"`
	Created  string        `json:"created,omitempty"`
}

// Interactions is the per-post like/dislike ledger, keyed by caller identity.
type Interactions struct {
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
}

// Comment is a reader comment attached to a post.
type Comment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	CreatedAt string `json:"createdAt"`
}
