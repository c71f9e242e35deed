package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/services"
)

// InteractionsHandler serves reader engagement on board posts: like/dislike
// toggles, comments, and the per-post stats rollup.
//
// Two identity schemes coexist. The interact endpoint takes an explicit
// userId from the frontend; the bare like/dislike endpoints key by client IP,
// which is how the pre-JS-identity pages called them.
type InteractionsHandler struct {
	Interactions *services.InteractionService
}

// NewInteractionsHandler constructs an InteractionsHandler.
func NewInteractionsHandler(s *services.InteractionService) *InteractionsHandler {
	return &InteractionsHandler{Interactions: s}
}

func ipIdentity(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "anonymous"
}

// Get handles GET /api/posts/:postId/interactions. Only aggregate counts
// leave the server.
func (h *InteractionsHandler) Get(c *gin.Context) {
	counts, err := h.Interactions.Counts(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{"success": true, "interactions": counts})
}

type interactRequest struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Interact handles POST /api/posts/:postId/interact with an explicit caller
// identity in the body.
func (h *InteractionsHandler) Interact(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "بيانات غير صحيحة")
		return
	}

	counts, _, err := h.Interactions.Toggle(c.Param("id"), req.Type, req.UserID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInteraction) {
			fail(c, http.StatusBadRequest, codeBadRequest, "بيانات غير صحيحة")
			return
		}
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{"success": true, "interactions": counts})
}

// Like handles POST /api/posts/:postId/like, keyed by client IP.
func (h *InteractionsHandler) Like(c *gin.Context) {
	counts, active, err := h.Interactions.Toggle(c.Param("id"), services.InteractionLike, ipIdentity(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{"success": true, "liked": active, "interactions": counts})
}

// Dislike handles POST /api/posts/:postId/dislike, keyed by client IP.
func (h *InteractionsHandler) Dislike(c *gin.Context) {
	counts, active, err := h.Interactions.Toggle(c.Param("id"), services.InteractionDislike, ipIdentity(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{"success": true, "disliked": active, "interactions": counts})
}

// ListComments handles GET /api/posts/:postId/comments, newest first.
func (h *InteractionsHandler) ListComments(c *gin.Context) {
	comments, err := h.Interactions.ListComments(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{"success": true, "comments": comments})
}

type addCommentRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// AddComment handles POST /api/posts/:postId/comments.
func (h *InteractionsHandler) AddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "يرجى ملء جميع الحقول")
		return
	}

	comment, total, err := h.Interactions.AddComment(c.Param("id"), req.Author, req.Text)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			fail(c, http.StatusBadRequest, codeBadRequest, ve.Message)
			return
		}
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{
		"success":       true,
		"comment":       comment,
		"totalComments": total,
	})
}

// Stats handles GET /api/posts/:postId/stats.
func (h *InteractionsHandler) Stats(c *gin.Context) {
	stats, err := h.Interactions.Stats(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, codeInternal, "خطأ في الخادم")
		return
	}
	ok(c, gin.H{"success": true, "stats": stats})
}
