package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lkataba/community-backend/internal/counter"
	"github.com/lkataba/community-backend/internal/domain"
)

func seedResponses(t *testing.T, svc *SurveyService) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC) // a Monday

	entries := []struct {
		lang string
		ans  map[string]domain.AnswerValue
		at   time.Time
	}{
		{"ar", answers("age", "26-35", "gender", "ذكر", "location", "مصر", "belief", "لاديني", "additional-thoughts", "شكراً"), base},
		{"ar", answers("age", "26-35", "gender", "أنثى", "location", "مصر"), base.Add(time.Hour)},
		{"en", answers("age", "90+", "gender", "ذكر"), base.Add(26 * time.Hour)},
	}
	for _, e := range entries {
		at := e.at
		svc.now = func() time.Time { return at }
		if _, _, err := svc.Submit(ctx, e.lang, e.ans); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestStatisticsAggregation(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	c := counter.New(surveys)
	seedResponses(t, NewSurveyService(surveys, c))
	svc := NewStatsService(surveys, c)

	st, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}

	if st.TotalSubmissions != 3 {
		t.Fatalf("total = %d", st.TotalSubmissions)
	}
	if st.LanguageStats["العربية"] != 2 || st.LanguageStats["English"] != 1 {
		t.Fatalf("languageStats = %+v", st.LanguageStats)
	}
	if st.AgeGroupsDetail["26-35"] != 2 {
		t.Fatalf("ageGroupsDetailed = %+v", st.AgeGroupsDetail)
	}
	// Out-of-enum ages land in the unspecified bucket.
	if st.AgeGroupsDetail[unspecified] != 1 {
		t.Fatalf("unspecified bucket = %d", st.AgeGroupsDetail[unspecified])
	}
	if st.CrossAnalysis.AgeByGender["26-35 - ذكر"] != 1 {
		t.Fatalf("ageByGender = %+v", st.CrossAnalysis.AgeByGender)
	}
	if st.RegionStats["مصر"] != 2 {
		t.Fatalf("regionStats = %+v", st.RegionStats)
	}
	if len(st.AdditionalThoughts) != 1 || st.AdditionalThoughts[0] != "شكراً" {
		t.Fatalf("additionalThoughts = %+v", st.AdditionalThoughts)
	}
	if st.SubmissionsByHour["14"] != 1 || st.SubmissionsByHour["15"] != 1 || st.SubmissionsByHour["16"] != 1 {
		t.Fatalf("submissionsByHour = %+v", st.SubmissionsByHour)
	}
	// 2025-03-10 is a Monday.
	if st.SubmissionsByWeekday["الاثنين"] != 2 {
		t.Fatalf("submissionsByWeekday = %+v", st.SubmissionsByWeekday)
	}
	if st.SubmissionsByMonth["مارس 2025"] != 3 {
		t.Fatalf("submissionsByMonth = %+v", st.SubmissionsByMonth)
	}
	if st.KeyMetrics.TotalDaysActive != 2 || st.KeyMetrics.AvgSubmissionsPerDay != "1.50" {
		t.Fatalf("keyMetrics = %+v", st.KeyMetrics)
	}
	if st.KeyMetrics.TopRegion != "مصر" {
		t.Fatalf("topRegion = %q", st.KeyMetrics.TopRegion)
	}
	if st.StorageType != "JSON File" {
		t.Fatalf("storageType = %q", st.StorageType)
	}
	if len(st.RecentSubmissions) != 3 {
		t.Fatalf("recent = %d", len(st.RecentSubmissions))
	}
	// Newest first.
	if !st.RecentSubmissions[0].SubmittedAt.After(st.RecentSubmissions[2].SubmittedAt) {
		t.Fatalf("recent not newest first: %+v", st.RecentSubmissions)
	}
}

func TestStatisticsEmptyDataset(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	svc := NewStatsService(surveys, counter.New(surveys))

	st, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.TotalSubmissions != 0 {
		t.Fatalf("total = %d", st.TotalSubmissions)
	}
	if st.KeyMetrics.PeakHour != unspecified || st.KeyMetrics.AvgSubmissionsPerDay != "0" {
		t.Fatalf("keyMetrics = %+v", st.KeyMetrics)
	}
}

func TestExportJSON(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	c := counter.New(surveys)
	seedResponses(t, NewSurveyService(surveys, c))
	svc := NewStatsService(surveys, c)

	name, ct, body, err := svc.Export(context.Background(), "json")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(name, "survey_data_") || !strings.HasSuffix(name, ".json") {
		t.Fatalf("filename = %q", name)
	}
	if !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	var payload struct {
		TotalRecords int                     `json:"totalRecords"`
		Data         []domain.SurveyResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if payload.TotalRecords != 3 || len(payload.Data) != 3 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestExportCSVHasBOMAndRows(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	c := counter.New(surveys)
	seedResponses(t, NewSurveyService(surveys, c))
	svc := NewStatsService(surveys, c)

	name, ct, body, err := svc.Export(context.Background(), "csv")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasSuffix(name, ".csv") || !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("name=%q ct=%q", name, ct)
	}
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("CSV export missing UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(string(body[3:])), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID,Language,Age") {
		t.Fatalf("header = %q", lines[0])
	}
}

func TestClearResetsCounter(t *testing.T) {
	surveys, _, _ := newFileOnlyStores(t)
	c := counter.New(surveys)
	seedResponses(t, NewSurveyService(surveys, c))
	svc := NewStatsService(surveys, c)
	ctx := context.Background()

	cleared, errs := svc.Clear(ctx)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if cleared != 3 {
		t.Fatalf("cleared = %d, want 3", cleared)
	}

	res, err := c.Get(ctx, "session")
	if err != nil {
		t.Fatalf("counter Get: %v", err)
	}
	if res.Count != 0 {
		t.Fatalf("counter after clear = %+v", res)
	}
}
