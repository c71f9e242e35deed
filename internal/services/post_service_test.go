package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lkataba/community-backend/internal/domain"
)

const testSubmitPassword = "writer-secret"

func submitInput() SubmitPostInput {
	return SubmitPostInput{
		Title:    "عنوان تجريبي",
		Category: "tech",
		Excerpt:  "مقتطف",
		Content:  "محتوى المقال",
		Author:   "كاتب",
		Password: testSubmitPassword,
	}
}

func newPostService(t *testing.T) *PostService {
	t.Helper()
	_, posts, _ := newFileOnlyStores(t)
	return NewPostService(posts, testSubmitPassword)
}

func TestPostSubmitPasswordGate(t *testing.T) {
	svc := newPostService(t)
	ctx := context.Background()

	in := submitInput()
	in.Password = "wrong"
	if _, _, err := svc.Submit(ctx, in); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("err = %v, want ErrBadPassword", err)
	}

	// An unset password must reject everything, including empty input.
	unguarded := NewPostService(svc.Posts, "")
	in.Password = ""
	if _, _, err := unguarded.Submit(ctx, in); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("unset secret err = %v, want ErrBadPassword", err)
	}
}

func TestPostSubmitValidation(t *testing.T) {
	svc := newPostService(t)
	ctx := context.Background()
	var verr *ValidationError

	in := submitInput()
	in.Category = "gossip"
	if _, _, err := svc.Submit(ctx, in); !errors.As(err, &verr) {
		t.Fatalf("bad category err = %v", err)
	}

	in = submitInput()
	in.Title = strings.Repeat("ع", MaxTitleLen+1)
	if _, _, err := svc.Submit(ctx, in); !errors.As(err, &verr) {
		t.Fatalf("long title err = %v", err)
	}

	// Exactly at the limit passes: the limits count runes, not bytes.
	in = submitInput()
	in.Title = strings.Repeat("ع", MaxTitleLen)
	if _, _, err := svc.Submit(ctx, in); err != nil {
		t.Fatalf("title at limit: %v", err)
	}

	in = submitInput()
	in.Author = ""
	if _, _, err := svc.Submit(ctx, in); !errors.As(err, &verr) {
		t.Fatalf("missing author err = %v", err)
	}
}

func TestPostSubmitLandsPending(t *testing.T) {
	svc := newPostService(t)
	p, _, err := svc.Submit(context.Background(), submitInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Status != domain.StatusPending || p.Approved {
		t.Fatalf("fresh post = %+v, want pending", p)
	}
	if p.ID == "" || p.Date == "" {
		t.Fatalf("derived fields missing: %+v", p)
	}
}

func TestModerationApprove(t *testing.T) {
	svc := newPostService(t)
	ctx := context.Background()
	p, _, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Invisible while pending.
	if _, err := svc.GetPublished(ctx, p.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("pending visible: %v", err)
	}

	upd, err := svc.Moderate(ctx, p.ID, DecisionApproved)
	if err != nil {
		t.Fatalf("Moderate: %v", err)
	}
	if !upd.Published() {
		t.Fatalf("approved post = %+v", upd)
	}

	got, err := svc.GetPublished(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPublished: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("got %+v", got)
	}

	// Approval is idempotent.
	if _, err := svc.Moderate(ctx, p.ID, DecisionApproved); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
}

func TestModerationRejectDeletes(t *testing.T) {
	svc := newPostService(t)
	ctx := context.Background()
	p, _, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	out, err := svc.Moderate(ctx, p.ID, DecisionRejected)
	if err != nil || out != nil {
		t.Fatalf("Moderate reject = %v, %v", out, err)
	}
	if all, _ := svc.ListAll(ctx); len(all) != 0 {
		t.Fatalf("rejected post still stored: %+v", all)
	}
	// A second rejection finds nothing.
	if _, err := svc.Moderate(ctx, p.ID, DecisionRejected); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("repeat reject err = %v", err)
	}
}

func TestModerationInvalidDecision(t *testing.T) {
	svc := newPostService(t)
	if _, err := svc.Moderate(context.Background(), "x", "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestListPublishedFiltersByCategory(t *testing.T) {
	svc := newPostService(t)
	ctx := context.Background()

	for _, cat := range []string{"tech", "news", "tech"} {
		in := submitInput()
		in.Category = cat
		p, _, err := svc.Submit(ctx, in)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if _, err := svc.Moderate(ctx, p.ID, DecisionApproved); err != nil {
			t.Fatalf("Moderate: %v", err)
		}
	}
	// One pending post that must never appear.
	if _, _, err := svc.Submit(ctx, submitInput()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	tech, err := svc.ListPublished(ctx, "tech")
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(tech) != 2 {
		t.Fatalf("tech = %d, want 2", len(tech))
	}
	all, err := svc.ListPublished(ctx, "all")
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d, %v; want 3", len(all), err)
	}
	pending, err := svc.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %d, %v; want 1", len(pending), err)
	}
}

func TestSearchRanksTitleMatchesFirst(t *testing.T) {
	svc := newPostService(t)
	ctx := context.Background()

	mk := func(title, content string) {
		in := submitInput()
		in.Title = title
		in.Content = content
		p, _, err := svc.Submit(ctx, in)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if _, err := svc.Moderate(ctx, p.ID, DecisionApproved); err != nil {
			t.Fatalf("Moderate: %v", err)
		}
	}
	mk("about go routines", "nothing relevant")
	mk("unrelated title", "go is mentioned in the body")
	mk("also unrelated", "no match at all")

	out, err := svc.Search(ctx, "GO")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if !strings.Contains(strings.ToLower(out[0].Title), "go") {
		t.Fatalf("title match not first: %+v", out)
	}

	var verr *ValidationError
	if _, err := svc.Search(ctx, "   "); !errors.As(err, &verr) {
		t.Fatalf("empty query err = %v", err)
	}
}

func TestLegacyCreate(t *testing.T) {
	svc := newPostService(t)
	p, err := svc.Create(context.Background(), "t", "c", "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != domain.StatusPending || p.Approved || p.Category != "" {
		t.Fatalf("legacy post = %+v", p)
	}
}
