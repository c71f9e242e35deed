package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lkataba/community-backend/internal/config"
	"github.com/lkataba/community-backend/internal/counter"
	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/store"
)

// newFileOnlyStores builds the survey and post adapters over a fresh temp
// directory with the database permanently unusable, so every operation runs
// on the JSON backend.
func newFileOnlyStores(t *testing.T) (*store.Surveys, *store.Posts, string) {
	t.Helper()
	dir := t.TempDir()
	sup := store.NewSupervisor(config.MongoConfig{
		URI: "mongodb://localhost:27017", Database: "test",
		MaxRetries: 0, RetryDelay: time.Second,
	})
	surveys := store.NewSurveys(sup, store.NewMongoSurveys(sup), store.NewFileSurveys(dir))
	posts := store.NewPosts(sup, store.NewMongoPosts(sup), store.NewFilePosts(dir))
	return surveys, posts, dir
}

func answers(kv ...string) map[string]domain.AnswerValue {
	m := map[string]domain.AnswerValue{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = domain.AnswerValue{One: kv[i+1]}
	}
	return m
}

func TestSurveySubmitAndStats(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	svc := NewSurveyService(surveys, counter.New(surveys))
	ctx := context.Background()

	id, storage, err := svc.Submit(ctx, "ar", answers("age", "26-35"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" || storage != store.StorageJSON {
		t.Fatalf("Submit = %q, %q", id, storage)
	}
	if _, _, err := svc.Submit(ctx, "en", answers("age", "18-25")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	st, storage, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 2 || st.Arabic != 1 || st.English != 1 || storage != store.StorageJSON {
		t.Fatalf("Stats = %+v, %q", st, storage)
	}
}

func TestSurveySubmitValidation(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	svc := NewSurveyService(surveys, counter.New(surveys))
	ctx := context.Background()

	var verr *ValidationError
	if _, _, err := svc.Submit(ctx, "", answers("age", "18-25")); !errors.As(err, &verr) {
		t.Fatalf("missing language err = %v", err)
	}
	if _, _, err := svc.Submit(ctx, "ar", nil); !errors.As(err, &verr) {
		t.Fatalf("missing answers err = %v", err)
	}
}

func TestSurveySubmitSeedsCounter(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	c := counter.New(surveys)
	svc := NewSurveyService(surveys, c)
	ctx := context.Background()

	if _, _, err := svc.Submit(ctx, "ar", answers("age", "26-35")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := c.Get(ctx, "session")
	if err != nil {
		t.Fatalf("counter Get: %v", err)
	}
	if res.Count != 1 || !res.Cached {
		t.Fatalf("counter after submit = %+v, want cached 1", res)
	}
}

func TestSurveyListNewestFirst(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	svc := NewSurveyService(surveys, counter.New(surveys))
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0).UTC()
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return ts }
		if _, _, err := svc.Submit(ctx, "ar", answers("age", "26-35")); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	all, _, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d", len(all))
	}
	if !all[0].SubmittedAt.After(all[2].SubmittedAt) {
		t.Fatalf("not newest first: %v, %v", all[0].SubmittedAt, all[2].SubmittedAt)
	}
}
