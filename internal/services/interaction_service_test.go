package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/lkataba/community-backend/internal/store"
)

func newInteractionService(t *testing.T) *InteractionService {
	t.Helper()
	dir := t.TempDir()
	return NewInteractionService(store.NewInteractionsFile(dir), store.NewCommentsFile(dir))
}

func TestToggleLikeAndRetract(t *testing.T) {
	svc := newInteractionService(t)

	counts, active, err := svc.Toggle("p1", InteractionLike, "user-a")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !active || counts.Likes != 1 || counts.Dislikes != 0 {
		t.Fatalf("first like = %+v active=%v", counts, active)
	}

	counts, active, err = svc.Toggle("p1", InteractionLike, "user-a")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if active || counts.Likes != 0 {
		t.Fatalf("retracted like = %+v active=%v", counts, active)
	}
}

func TestToggleSwitchesSides(t *testing.T) {
	svc := newInteractionService(t)

	if _, _, err := svc.Toggle("p1", InteractionLike, "user-a"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	counts, active, err := svc.Toggle("p1", InteractionDislike, "user-a")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !active || counts.Likes != 0 || counts.Dislikes != 1 {
		t.Fatalf("switch = %+v active=%v", counts, active)
	}
}

func TestToggleValidation(t *testing.T) {
	svc := newInteractionService(t)
	if _, _, err := svc.Toggle("p1", "love", "u"); !errors.Is(err, ErrInvalidInteraction) {
		t.Fatalf("bad kind err = %v", err)
	}
	if _, _, err := svc.Toggle("p1", InteractionLike, ""); !errors.Is(err, ErrInvalidInteraction) {
		t.Fatalf("missing identity err = %v", err)
	}
}

func TestCountsForUnknownPost(t *testing.T) {
	svc := newInteractionService(t)
	counts, err := svc.Counts("ghost")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Likes != 0 || counts.Dislikes != 0 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestAddCommentAndStats(t *testing.T) {
	svc := newInteractionService(t)

	c, total, err := svc.AddComment("p1", " قارئ ", " تعليق جيد ")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if total != 1 || c.Author != "قارئ" || c.Text != "تعليق جيد" {
		t.Fatalf("comment = %+v total=%d", c, total)
	}
	if c.ID == "" || c.CreatedAt == "" {
		t.Fatalf("derived fields missing: %+v", c)
	}

	if _, _, err := svc.Toggle("p1", InteractionLike, "u1"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, _, err := svc.Toggle("p1", InteractionDislike, "u2"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	st, err := svc.Stats("p1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Likes != 1 || st.Dislikes != 1 || st.Comments != 1 || st.Engagement != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestAddCommentValidation(t *testing.T) {
	svc := newInteractionService(t)
	var verr *ValidationError

	if _, _, err := svc.AddComment("p1", "", "text"); !errors.As(err, &verr) {
		t.Fatalf("missing author err = %v", err)
	}
	if _, _, err := svc.AddComment("p1", "a", "   "); !errors.As(err, &verr) {
		t.Fatalf("blank text err = %v", err)
	}
	if _, _, err := svc.AddComment("p1", "a", strings.Repeat("ع", MaxCommentLen+1)); !errors.As(err, &verr) {
		t.Fatalf("long comment err = %v", err)
	}
	if _, _, err := svc.AddComment("p1", "a", strings.Repeat("ع", MaxCommentLen)); err != nil {
		t.Fatalf("comment at limit: %v", err)
	}
}
