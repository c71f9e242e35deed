package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/domain"
	"github.com/lkataba/community-backend/internal/http/middleware"
	"github.com/lkataba/community-backend/internal/services"
	"github.com/lkataba/community-backend/internal/store"
	"github.com/lkataba/community-backend/internal/utils"
)

// SurveyHandler serves the anonymous survey endpoints.
type SurveyHandler struct {
	Surveys *services.SurveyService
}

// NewSurveyHandler constructs a SurveyHandler.
func NewSurveyHandler(s *services.SurveyService) *SurveyHandler {
	return &SurveyHandler{Surveys: s}
}

type submitSurveyRequest struct {
	Language string                        `json:"language"`
	Answers  map[string]domain.AnswerValue `json:"answers"`
}

// Submit handles POST /api/submit-survey. The success message names the
// backend that took the write; the frontend surfaces it verbatim.
func (h *SurveyHandler) Submit(c *gin.Context) {
	var req submitSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "اللغة والإجابات مطلوبة")
		return
	}

	id, storage, err := h.Surveys.Submit(c.Request.Context(), req.Language, req.Answers)
	if err != nil {
		failErr(c, err)
		return
	}

	msg := "تم حفظ الإجابات بنجاح في ملف JSON"
	if storage == store.StorageMongo {
		msg = "تم حفظ الإجابات بنجاح في MongoDB"
	} else {
		middleware.CountStorageFallback("survey")
	}
	ok(c, gin.H{
		"success": true,
		"message": msg,
		"id":      id,
		"storage": storage,
	})
}

// List handles GET /api/responses, the admin dump of every stored response,
// newest first. Optional page/limit query parameters window the result; the
// default returns everything, which is what the console expects.
func (h *SurveyHandler) List(c *gin.Context) {
	data, storage, err := h.Surveys.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}

	total := len(data)
	if limit := utils.AtoiDefault(c.Query("limit"), 0); limit > 0 {
		page := utils.AtoiDefault(c.Query("page"), 1)
		if page < 1 {
			page = 1
		}
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		data = data[start:end]
	}

	ok(c, gin.H{
		"success": true,
		"data":    data,
		"total":   total,
		"storage": storage,
	})
}

// Stats handles GET /api/stats, the public per-language breakdown.
func (h *SurveyHandler) Stats(c *gin.Context) {
	stats, storage, err := h.Surveys.Stats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"success": true,
		"data":    stats,
		"storage": storage,
	})
}
