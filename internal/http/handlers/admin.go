package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/http/middleware"
	"github.com/lkataba/community-backend/internal/services"
)

// AdminHandler serves the admin console: the password gate, the full
// statistics aggregation, dataset export, the destructive bulk clear, and the
// statistics-page login.
type AdminHandler struct {
	Auth  *services.AuthService
	Stats *services.StatsService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(auth *services.AuthService, stats *services.StatsService) *AdminHandler {
	return &AdminHandler{Auth: auth, Stats: stats}
}

type verifyRequest struct {
	Password string `json:"password"`
}

// Verify handles POST /api/admin/verify, the console password gate. A missing
// server-side secret is reported as a server fault, not a bad password.
func (h *AdminHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		fail(c, http.StatusBadRequest, codeBadRequest, "كلمة المرور مطلوبة")
		return
	}

	switch err := h.Auth.VerifyConsole(req.Password); {
	case err == nil:
		ok(c, gin.H{"success": true, "message": "تم التحقق بنجاح"})
	case errors.Is(err, services.ErrSecretUnset):
		middleware.LoggerFrom(c).Error().Msg("admin console password not configured")
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في إعدادات الخادم")
	default:
		fail(c, http.StatusUnauthorized, codeUnauthorized, "كلمة المرور غير صحيحة")
	}
}

// Statistics handles POST /api/admin/statistics, the full console
// aggregation.
func (h *AdminHandler) Statistics(c *gin.Context) {
	stats, err := h.Stats.Statistics(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"success": true, "statistics": stats})
}

type exportRequest struct {
	Format string `json:"format"`
}

// Export handles POST /api/admin/export. The dataset is streamed back as an
// attachment in the requested format; an unknown or missing format means
// JSON.
func (h *AdminHandler) Export(c *gin.Context) {
	var req exportRequest
	_ = c.ShouldBindJSON(&req)

	filename, contentType, body, err := h.Stats.Export(c.Request.Context(), req.Format)
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, body)
}

// ClearSubmissions handles POST /api/admin/clear-submissions: wipe both
// backends and reset the public counter. Partial failures report what was
// removed alongside the errors.
func (h *AdminHandler) ClearSubmissions(c *gin.Context) {
	cleared, errs := h.Stats.Clear(c.Request.Context())
	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":      false,
			"message":      "تم حذف بعض البيانات مع وجود أخطاء",
			"clearedCount": cleared,
			"errors":       msgs,
		})
		return
	}
	ok(c, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("تم حذف جميع الاستجابات بنجاح (%d استجابة)", cleared),
		"clearedCount": cleared,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/statistics, the statistics-page login. On
// success the frontend holds the returned token for the session; the server
// keeps no session state.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, codeBadRequest, "اسم المستخدم وكلمة المرور مطلوبان")
		return
	}

	token, err := h.Auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrSecretUnset) {
			middleware.LoggerFrom(c).Error().Msg("statistics credentials not configured")
			fail(c, http.StatusInternalServerError, codeInternal, "خطأ في إعدادات الخادم")
			return
		}
		fail(c, http.StatusUnauthorized, codeUnauthorized, "اسم المستخدم أو كلمة المرور غير صحيحة")
		return
	}
	ok(c, gin.H{
		"success": true,
		"message": "تم تسجيل الدخول بنجاح",
		"token":   token,
	})
}
