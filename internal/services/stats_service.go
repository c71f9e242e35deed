// Package services – StatsService
//
// The admin console's reporting backend: the full statistics aggregation over
// all survey responses, dataset export in JSON and CSV shapes, and the
// destructive bulk clear. Aggregation is a single pass over the dataset; the
// survey is small enough that precomputed rollups would be premature.
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lkataba/community-backend/internal/counter"
	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/store"
)

// ageBuckets are the fixed detailed age groups, in display order. Answers
// outside the enum land in the unspecified bucket.
var ageBuckets = []string{"18-25", "26-35", "36-45", "46-55", "56-65", "65+"}

const unspecified = "غير محدد"

// arabicWeekdays maps time.Weekday to its Arabic name.
var arabicWeekdays = [7]string{"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"}

// arabicMonths maps time.Month-1 to its Arabic name.
var arabicMonths = [12]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// CrossAnalysis holds the two-dimensional answer breakdowns.
type CrossAnalysis struct {
	AgeByGender      map[string]int `json:"ageByGender"`
	EducationByAge   map[string]int `json:"educationByAge"`
	BeliefByAge      map[string]int `json:"beliefByAge"`
	RegionByBelief   map[string]int `json:"regionByBelief"`
	FamilySupportAge map[string]int `json:"familySupportByAge"`
}

// RecentSubmission is one entry of the console's recent-activity feed.
type RecentSubmission struct {
	ID          string    `json:"id"`
	Language    string    `json:"language"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// KeyMetrics are the console's headline numbers.
type KeyMetrics struct {
	AvgSubmissionsPerDay string `json:"avgSubmissionsPerDay"`
	PeakHour             string `json:"peakHour"`
	MostActiveDay        string `json:"mostActiveDay"`
	TopRegion            string `json:"topRegion"`
	TotalDaysActive      int    `json:"totalDaysActive"`
	ResponseRate         string `json:"responseRate"`
}

// DataQuality summarizes dataset integrity. Every stored response is complete
// by construction, so the degenerate counters stay zero.
type DataQuality struct {
	CompletedResponses  int `json:"completedResponses"`
	IncompleteResponses int `json:"incompleteResponses"`
	DuplicateResponses  int `json:"duplicateResponses"`
}

// AdminStatistics is the full console aggregation.
type AdminStatistics struct {
	TotalSubmissions int            `json:"totalSubmissions"`
	LanguageStats    map[string]int `json:"languageStats"`
	AgeStats         map[string]int `json:"ageStats"`
	AgeGroupsDetail  map[string]int `json:"ageGroupsDetailed"`
	GenderStats      map[string]int `json:"genderStats"`
	EducationStats   map[string]int `json:"educationStats"`
	EmploymentStats  map[string]int `json:"employmentStats"`
	IncomeStats      map[string]int `json:"incomeStats"`
	RegionStats      map[string]int `json:"regionStats"`

	BeliefStats              map[string]int `json:"beliefStats"`
	ReligiousBackgroundStats map[string]int `json:"religiousBackgroundStats"`
	ReligiousCommitmentStats map[string]int `json:"religiousCommitmentStats"`
	FamilySupportStats       map[string]int `json:"familySupportStats"`
	ReasonForLeavingStats    map[string]int `json:"reasonForLeavingStats"`

	SubmissionsByDate    map[string]int `json:"submissionsByDate"`
	SubmissionsByHour    map[string]int `json:"submissionsByHour"`
	SubmissionsByWeekday map[string]int `json:"submissionsByWeekday"`
	SubmissionsByMonth   map[string]int `json:"submissionsByMonth"`

	DemographicCombinations map[string]int     `json:"demographicCombinations"`
	CrossAnalysis           CrossAnalysis      `json:"crossAnalysis"`
	RecentSubmissions       []RecentSubmission `json:"recentSubmissions"`
	AdditionalThoughts      []string           `json:"additionalThoughts"`

	KeyMetrics  KeyMetrics  `json:"keyMetrics"`
	StorageType string      `json:"storageType"`
	LastUpdated time.Time   `json:"lastUpdated"`
	DataQuality DataQuality `json:"dataQuality"`
}

// StatsService implements the admin reporting use-cases.
type StatsService struct {
	Surveys *store.Surveys
	Counter *counter.Cache
	now     func() time.Time
}

// NewStatsService wires the reporting use-cases over the survey adapter.
func NewStatsService(surveys *store.Surveys, c *counter.Cache) *StatsService {
	return &StatsService{Surveys: surveys, Counter: c, now: time.Now}
}

// Statistics computes the full console aggregation in one pass.
func (s *StatsService) Statistics(ctx context.Context) (*AdminStatistics, error) {
	responses, storage, err := s.Surveys.All(ctx)
	if err != nil {
		return nil, err
	}

	st := &AdminStatistics{
		TotalSubmissions: len(responses),
		LanguageStats:    map[string]int{},
		AgeStats:         map[string]int{},
		AgeGroupsDetail:  map[string]int{},
		GenderStats:      map[string]int{},
		EducationStats:   map[string]int{},
		EmploymentStats:  map[string]int{},
		IncomeStats:      map[string]int{},
		RegionStats:      map[string]int{},

		BeliefStats:              map[string]int{},
		ReligiousBackgroundStats: map[string]int{},
		ReligiousCommitmentStats: map[string]int{},
		FamilySupportStats:       map[string]int{},
		ReasonForLeavingStats:    map[string]int{},

		SubmissionsByDate:    map[string]int{},
		SubmissionsByHour:    map[string]int{},
		SubmissionsByWeekday: map[string]int{},
		SubmissionsByMonth:   map[string]int{},

		DemographicCombinations: map[string]int{},
		CrossAnalysis: CrossAnalysis{
			AgeByGender:      map[string]int{},
			EducationByAge:   map[string]int{},
			BeliefByAge:      map[string]int{},
			RegionByBelief:   map[string]int{},
			FamilySupportAge: map[string]int{},
		},
		RecentSubmissions:  []RecentSubmission{},
		AdditionalThoughts: []string{},

		LastUpdated: s.now().UTC(),
		DataQuality: DataQuality{CompletedResponses: len(responses)},
	}
	if storage == store.StorageMongo {
		st.StorageType = "MongoDB"
	} else {
		st.StorageType = "JSON File"
	}
	for _, b := range ageBuckets {
		st.AgeGroupsDetail[b] = 0
	}
	st.AgeGroupsDetail[unspecified] = 0

	for i := range responses {
		r := &responses[i]

		switch r.Language {
		case domain.LangArabic:
			st.LanguageStats["العربية"]++
		case domain.LangEnglish:
			st.LanguageStats["English"]++
		default:
			st.LanguageStats[unspecified]++
		}

		a := answerLookup(r.Answers)
		tally(st.AgeStats, a("age"))
		if age := a("age"); age != "" {
			bucketed := false
			for _, b := range ageBuckets {
				if age == b {
					st.AgeGroupsDetail[b]++
					bucketed = true
					break
				}
			}
			if !bucketed {
				st.AgeGroupsDetail[unspecified]++
			}
		}
		tally(st.GenderStats, a("gender"))
		tally(st.EducationStats, a("education"))
		tally(st.EmploymentStats, a("employment"))
		tally(st.IncomeStats, a("income"))
		tally(st.RegionStats, a("location"))

		tally(st.BeliefStats, a("belief"))
		tally(st.ReligiousBackgroundStats, a("religious-background"))
		tally(st.ReligiousCommitmentStats, a("religious-commitment"))
		tally(st.FamilySupportStats, a("family-support"))
		tally(st.ReasonForLeavingStats, a("reason-for-leaving"))

		crossTally(st.CrossAnalysis.AgeByGender, a("age"), a("gender"))
		crossTally(st.CrossAnalysis.EducationByAge, a("education"), a("age"))
		crossTally(st.CrossAnalysis.BeliefByAge, a("belief"), a("age"))
		crossTally(st.CrossAnalysis.RegionByBelief, a("location"), a("belief"))
		crossTally(st.CrossAnalysis.FamilySupportAge, a("family-support"), a("age"))
		crossTally(st.DemographicCombinations, a("age"), a("gender"))

		if thought := strings.TrimSpace(a("additional-thoughts")); thought != "" {
			st.AdditionalThoughts = append(st.AdditionalThoughts, thought)
		}

		ts := r.SubmittedAt.UTC()
		st.SubmissionsByDate[ts.Format("2006-01-02")]++
		st.SubmissionsByHour[strconv.Itoa(ts.Hour())]++
		st.SubmissionsByWeekday[arabicWeekdays[int(ts.Weekday())]]++
		st.SubmissionsByMonth[fmt.Sprintf("%s %d", arabicMonths[int(ts.Month())-1], ts.Year())]++
	}

	// Recent activity: responses come back newest first from the adapter.
	recent := responses
	if len(recent) > 10 {
		recent = recent[:10]
	}
	for i := range recent {
		st.RecentSubmissions = append(st.RecentSubmissions, RecentSubmission{
			ID:          recent[i].ID,
			Language:    recent[i].Language,
			SubmittedAt: recent[i].SubmittedAt,
		})
	}

	st.KeyMetrics = s.keyMetrics(st)
	return st, nil
}

func (s *StatsService) keyMetrics(st *AdminStatistics) KeyMetrics {
	km := KeyMetrics{
		PeakHour:        unspecified,
		MostActiveDay:   unspecified,
		TopRegion:       unspecified,
		TotalDaysActive: len(st.SubmissionsByDate),
		ResponseRate:    "100%",
	}
	if days := len(st.SubmissionsByDate); days > 0 && st.TotalSubmissions > 0 {
		km.AvgSubmissionsPerDay = strconv.FormatFloat(float64(st.TotalSubmissions)/float64(days), 'f', 2, 64)
	} else {
		km.AvgSubmissionsPerDay = "0"
	}
	if hour, ok := topKey(st.SubmissionsByHour); ok {
		km.PeakHour = hour + ":00"
	}
	if day, ok := topKey(st.SubmissionsByWeekday); ok {
		km.MostActiveDay = day
	}
	if region, ok := topKey(st.RegionStats); ok {
		km.TopRegion = region
	}
	return km
}

// Export serializes the full dataset. Supported formats are "json" (default),
// "csv", and "excel" (CSV bytes with the spreadsheet content type; real xlsx
// was never produced). CSV output is prefixed with a UTF-8 BOM so Arabic text
// survives spreadsheet imports.
func (s *StatsService) Export(ctx context.Context, format string) (filename, contentType string, body []byte, err error) {
	responses, _, err := s.Surveys.All(ctx)
	if err != nil {
		return "", "", nil, err
	}
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(s.now().UTC().Format(time.RFC3339))

	switch format {
	case "csv", "excel":
		body, err = s.exportCSV(responses)
		if err != nil {
			return "", "", nil, err
		}
		if format == "excel" {
			return fmt.Sprintf("survey_data_%s.xlsx", stamp), "application/vnd.ms-excel; charset=utf-8", body, nil
		}
		return fmt.Sprintf("survey_data_%s.csv", stamp), "text/csv; charset=utf-8", body, nil
	default:
		payload := struct {
			ExportDate   time.Time               `json:"exportDate"`
			TotalRecords int                     `json:"totalRecords"`
			Data         []domain.SurveyResponse `json:"data"`
		}{s.now().UTC(), len(responses), responses}
		body, err = json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", "", nil, err
		}
		return fmt.Sprintf("survey_data_%s.json", stamp), "application/json; charset=utf-8", body, nil
	}
}

func (s *StatsService) exportCSV(responses []domain.SurveyResponse) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\uFEFF")
	w := csv.NewWriter(&buf)

	header := []string{"ID", "Language", "Age", "Gender", "Education", "Employment", "Income", "Region", "Submitted At"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := range responses {
		r := &responses[i]
		a := answerLookup(r.Answers)
		row := []string{
			r.ID, r.Language,
			a("age"), a("gender"), a("education"), a("employment"), a("income"), a("location"),
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Clear removes every submission from both backends and resets the public
// counter. Partial failures are reported alongside the count of what was
// removed.
func (s *StatsService) Clear(ctx context.Context) (cleared int, errs []error) {
	cleared, errs = s.Surveys.Clear(ctx)
	s.Counter.Reset()
	return cleared, errs
}

// answerLookup returns an accessor over a response's answers that flattens
// multi-select values to their first entry.
func answerLookup(answers map[string]domain.AnswerValue) func(string) string {
	return func(key string) string {
		return answers[key].String()
	}
}

func tally(m map[string]int, v string) {
	if v != "" {
		m[v]++
	}
}

func crossTally(m map[string]int, a, b string) {
	if a != "" && b != "" {
		m[a+" - "+b]++
	}
}

// topKey returns the key with the highest count. Ties break lexicographically
// so the result is deterministic.
func topKey(m map[string]int) (string, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if m[k] > m[best] {
			best = k
		}
	}
	return best, true
}
