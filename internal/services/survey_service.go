// Package services – SurveyService
//
// Governs anonymous survey submissions: validation at the edge, write-through
// to the dual-backend store, and the immediate counter-cache refresh that
// keeps the public counter in lockstep with successful writes.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lkataba/community-backend/internal/counter"
	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/store"
)

// SurveyService implements the use-cases around survey responses.
type SurveyService struct {
	Surveys *store.Surveys
	Counter *counter.Cache
	now     func() time.Time
}

// NewSurveyService wires the survey use-cases over the store adapter and the
// public counter cache.
func NewSurveyService(surveys *store.Surveys, c *counter.Cache) *SurveyService {
	return &SurveyService{Surveys: surveys, Counter: c, now: time.Now}
}

// Submit validates and stores one response, returning the generated id and
// the backend that took the write.
//
// No identity is attached and no duplicate detection is performed; the survey
// is anonymous. After a successful write the counter cache is
// seeded with the authoritative total from the same backend, so the public
// counter reflects the submission immediately instead of after the next TTL
// expiry. A failure there is logged and swallowed: the submission itself
// already succeeded.
func (s *SurveyService) Submit(ctx context.Context, language string, answers map[string]domain.AnswerValue) (id, storage string, err error) {
	if language == "" || len(answers) == 0 {
		return "", "", validationf("اللغة والإجابات مطلوبة")
	}

	resp := &domain.SurveyResponse{
		Language:    language,
		Answers:     answers,
		SubmittedAt: s.now().UTC(),
	}
	id, storage, err = s.Surveys.Insert(ctx, resp)
	if err != nil {
		return "", "", err
	}

	if n, cerr := s.countOn(ctx, storage); cerr == nil {
		s.Counter.SetKnown(n)
	} else {
		log.Warn().Err(cerr).Msg("counter cache refresh after submit failed")
	}
	return id, storage, nil
}

// countOn counts submissions on the backend that just took the write.
func (s *SurveyService) countOn(ctx context.Context, storage string) (int, error) {
	if storage == store.StorageJSON {
		return s.Surveys.FileCount(ctx)
	}
	n, _, err := s.Surveys.Count(ctx)
	return n, err
}

// List returns every stored response, newest first, with the serving backend.
func (s *SurveyService) List(ctx context.Context) ([]domain.SurveyResponse, string, error) {
	return s.Surveys.All(ctx)
}

// LanguageStats is the public per-language submission breakdown.
type LanguageStats struct {
	Total   int `json:"total"`
	Arabic  int `json:"arabic"`
	English int `json:"english"`
}

// Stats computes the public submission breakdown by language.
func (s *SurveyService) Stats(ctx context.Context) (LanguageStats, string, error) {
	all, storage, err := s.Surveys.All(ctx)
	if err != nil {
		return LanguageStats{}, "", err
	}
	out := LanguageStats{Total: len(all)}
	for i := range all {
		switch all[i].Language {
		case domain.LangArabic:
			out.Arabic++
		case domain.LangEnglish:
			out.English++
		}
	}
	return out, storage, nil
}
