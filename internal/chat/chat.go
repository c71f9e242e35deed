// Package chat implements the ephemeral chat room: in-memory presence keyed
// by normalized nickname, plus a file-persisted message log with a hard cap
// and three-day message expiry. The chat subsystem never touches the
// database; its only persistence is the JSON chat document.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/store"
)

// upper uppercases the first rune for default avatars. Locale-neutral casing
// keeps Arabic and Latin nicknames both working.
var upper = cases.Upper(language.Und)

const (
	messageTTL   = 3 * 24 * time.Hour
	maxMessages  = 1000
	recentWindow = 100

	idleTimeout   = 5 * time.Minute
	idleSweepTick = 5 * time.Minute
	expirySweep   = time.Hour
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrNicknameTaken   = errors.New("chat: nickname already taken")
	ErrInvalidMessage  = errors.New("chat: message must carry id and timestamp")
	ErrMessageNotFound = errors.New("chat: message not found")
	ErrForbidden       = errors.New("chat: cannot delete another user's message")
)

// Service is the chat room. All methods are safe for concurrent use.
type Service struct {
	file *store.ChatFile
	now  func() time.Time

	mu     sync.Mutex
	active map[string]domain.ChatUser // keyed by lowercased nickname
}

// NewService builds a chat room persisting into file.
func NewService(file *store.ChatFile) *Service {
	return &Service{file: file, now: time.Now, active: map[string]domain.ChatUser{}}
}

func normalize(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

// Online returns the current presence count.
func (s *Service) Online() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// NicknameAvailable reports whether a nickname is free. The comparison is
// case-insensitive so visually colliding names cannot coexist.
func (s *Service) NicknameAvailable(nickname string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.active[normalize(nickname)]
	return !taken
}

// Join registers a participant. The stored nickname keeps its original
// casing; only the presence key is normalized. The audit copy in the chat
// file replaces any stale record under the same key.
func (s *Service) Join(nickname, gender, joinTime, avatar string) (domain.ChatUser, int, error) {
	key := normalize(nickname)
	trimmed := strings.TrimSpace(nickname)
	now := s.now().UTC().Format(time.RFC3339)

	if joinTime == "" {
		joinTime = now
	}
	if avatar == "" && trimmed != "" {
		r, _ := utf8.DecodeRuneInString(trimmed)
		avatar = upper.String(string(r))
	}
	user := domain.ChatUser{
		Nickname: trimmed,
		Gender:   gender,
		JoinTime: joinTime,
		Avatar:   avatar,
		LastSeen: now,
	}

	s.mu.Lock()
	if _, taken := s.active[key]; taken {
		online := len(s.active)
		s.mu.Unlock()
		return domain.ChatUser{}, online, ErrNicknameTaken
	}
	s.active[key] = user
	online := len(s.active)
	s.mu.Unlock()

	err := s.file.Mutate(func(c *domain.ChatLog) (bool, error) {
		kept := c.Users[:0]
		for _, u := range c.Users {
			if normalize(u.Nickname) != key {
				kept = append(kept, u)
			}
		}
		c.Users = append(kept, user)
		return true, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("nickname", trimmed).Msg("failed to persist chat join")
	}
	return user, online, nil
}

// Leave drops the participant and returns the remaining presence count.
// Leaving twice is a no-op.
func (s *Service) Leave(nickname string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, normalize(nickname))
	return len(s.active)
}

// Ping refreshes the participant's last-seen stamp. Unknown nicknames are
// ignored: the idle sweep may have already evicted them.
func (s *Service) Ping(nickname string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(nickname)
	if u, ok := s.active[key]; ok {
		u.LastSeen = s.now().UTC().Format(time.RFC3339)
		s.active[key] = u
	}
	return len(s.active)
}

// Post appends a message to the log. User-typed messages get a three-day
// expiry stamp; system messages persist until the cap evicts them. Posting
// also counts as activity for the author's presence record.
func (s *Service) Post(msg domain.ChatMessage) (domain.ChatMessage, int, error) {
	if msg.ID == "" || msg.Timestamp == "" {
		return domain.ChatMessage{}, s.Online(), ErrInvalidMessage
	}
	if msg.Type == domain.MessageTypeUser || msg.Type == domain.MessageTypeText {
		exp := s.now().Add(messageTTL)
		msg.ExpiresAt = &exp
	}

	s.mu.Lock()
	if msg.Type != domain.MessageTypeSystem && msg.User != nil {
		key := normalize(msg.User.Nickname)
		if u, ok := s.active[key]; ok {
			u.LastSeen = s.now().UTC().Format(time.RFC3339)
			s.active[key] = u
		}
	}
	online := len(s.active)
	s.mu.Unlock()

	err := s.file.Mutate(func(c *domain.ChatLog) (bool, error) {
		c.Messages = append(c.Messages, msg)
		if len(c.Messages) > maxMessages {
			c.Messages = c.Messages[len(c.Messages)-maxMessages:]
		}
		return true, nil
	})
	if err != nil {
		return domain.ChatMessage{}, online, err
	}
	return msg, online, nil
}

// Recent returns the last messages, dropping expired entries. The expiry
// filter heals the persisted log in place so the hourly sweep and the read
// path agree on what exists.
func (s *Service) Recent() ([]domain.ChatMessage, int, error) {
	now := s.now()
	var out []domain.ChatMessage

	err := s.file.Mutate(func(c *domain.ChatLog) (bool, error) {
		kept := make([]domain.ChatMessage, 0, len(c.Messages))
		for i := range c.Messages {
			if !c.Messages[i].Expired(now) {
				kept = append(kept, c.Messages[i])
			}
		}
		changed := len(kept) != len(c.Messages)
		c.Messages = kept

		if len(kept) > recentWindow {
			kept = kept[len(kept)-recentWindow:]
		}
		out = append([]domain.ChatMessage{}, kept...)
		return changed, nil
	})
	if err != nil {
		return nil, s.Online(), err
	}
	return out, s.Online(), nil
}

// Delete removes a message if the caller authored it. System messages (no
// author) are deletable by anyone who knows the id, matching the moderation
// tooling's expectations.
func (s *Service) Delete(messageID, nickname string) error {
	return s.file.Mutate(func(c *domain.ChatLog) (bool, error) {
		for i := range c.Messages {
			if c.Messages[i].ID != messageID {
				continue
			}
			if u := c.Messages[i].User; u != nil && u.Nickname != nickname {
				return false, ErrForbidden
			}
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return true, nil
		}
		return false, ErrMessageNotFound
	})
}

// Start launches the background sweeps: expired messages hourly, idle
// participants every five minutes. Both stop when ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	go s.runSweep(ctx, expirySweep, s.sweepExpired)
	go s.runSweep(ctx, idleSweepTick, s.sweepIdle)
}

func (s *Service) runSweep(ctx context.Context, every time.Duration, fn func()) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// sweepExpired drops expired messages from the persisted log.
func (s *Service) sweepExpired() {
	now := s.now()
	removed := 0
	err := s.file.Mutate(func(c *domain.ChatLog) (bool, error) {
		kept := c.Messages[:0]
		for i := range c.Messages {
			if !c.Messages[i].Expired(now) {
				kept = append(kept, c.Messages[i])
			}
		}
		removed = len(c.Messages) - len(kept)
		c.Messages = kept
		return removed > 0, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("chat expiry sweep failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("expired chat messages cleaned up")
	}
}

// sweepIdle evicts participants whose last ping is older than the idle
// timeout. Clients that crash or lose connectivity disappear within one tick.
func (s *Service) sweepIdle() {
	cutoff := s.now().Add(-idleTimeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, u := range s.active {
		last, err := time.Parse(time.RFC3339, u.LastSeen)
		if err != nil || last.Before(cutoff) {
			delete(s.active, key)
		}
	}
}
