package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/services"
)

// PostsHandler serves the publishing board: public listings, the gated
// submission form, the legacy creation endpoint, and the moderation surface.
//
// Listing endpoints return bare arrays rather than an envelope; the board
// frontend consumes them that way.
type PostsHandler struct {
	Posts *services.PostService
}

// NewPostsHandler constructs a PostsHandler.
func NewPostsHandler(p *services.PostService) *PostsHandler {
	return &PostsHandler{Posts: p}
}

// ListPublished handles GET /api/posts?category=. "all" or a missing category
// means no filter.
func (h *PostsHandler) ListPublished(c *gin.Context) {
	posts, err := h.Posts.ListPublished(c.Request.Context(), c.Query("category"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, posts)
}

// ListAll handles GET /api/posts/all, the admin view of every post.
func (h *PostsHandler) ListAll(c *gin.Context) {
	posts, err := h.Posts.ListAll(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, posts)
}

// ListPending handles GET /api/posts/pending, the moderation queue.
func (h *PostsHandler) ListPending(c *gin.Context) {
	posts, err := h.Posts.ListPending(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, posts)
}

type submitPostRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Author   string `json:"author"`
	Password string `json:"password"`
}

// Submit handles POST /api/posts/submit, the password-gated submission form.
func (h *PostsHandler) Submit(c *gin.Context) {
	var req submitPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "جميع الحقول مطلوبة")
		return
	}

	post, _, err := h.Posts.Submit(c.Request.Context(), services.SubmitPostInput{
		Title:    req.Title,
		Category: req.Category,
		Excerpt:  req.Excerpt,
		Content:  req.Content,
		Author:   req.Author,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrBadPassword) {
			fail(c, http.StatusUnauthorized, codeUnauthorized, "كلمة السر غير صحيحة")
			return
		}
		failErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "تم إرسال المقال بنجاح! سيتم مراجعته من قبل الإدارة قبل النشر.",
		"post":    post,
	})
}

type legacyPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

// CreateLegacy handles POST /api/posts, the pre-category creation endpoint.
// It predates the localized frontend, so its validation messages are English.
func (h *PostsHandler) CreateLegacy(c *gin.Context) {
	var req legacyPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "Title, content, and author are required")
		return
	}
	if req.Title == "" || req.Content == "" || req.Author == "" {
		fail(c, http.StatusBadRequest, codeBadRequest, "Title, content, and author are required")
		return
	}
	if len([]rune(req.Title)) > services.MaxTitleLen {
		fail(c, http.StatusBadRequest, codeBadRequest,
			fmt.Sprintf("Title is too long (max %d characters)", services.MaxTitleLen))
		return
	}
	if len([]rune(req.Content)) > services.MaxContentLen {
		fail(c, http.StatusBadRequest, codeBadRequest,
			fmt.Sprintf("Content is too long (max %d characters)", services.MaxContentLen))
		return
	}
	if len([]rune(req.Author)) > services.MaxAuthorLen {
		fail(c, http.StatusBadRequest, codeBadRequest,
			fmt.Sprintf("Author name is too long (max %d characters)", services.MaxAuthorLen))
		return
	}

	post, err := h.Posts.Create(c.Request.Context(), req.Title, req.Content, req.Author)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully and is pending approval",
		"post":    post,
	})
}

type moderateRequest struct {
	Status string `json:"status"`
}

// Moderate handles PATCH /api/posts/:id. Approval returns the updated post;
// rejection and deletion remove it and return only the id.
func (h *PostsHandler) Moderate(c *gin.Context) {
	id := c.Param("id")
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "Invalid status")
		return
	}

	post, err := h.Posts.Moderate(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			fail(c, http.StatusBadRequest, codeBadRequest, "Invalid status")
			return
		}
		failErr(c, err)
		return
	}

	if post != nil {
		ok(c, gin.H{
			"message": "Post approved successfully",
			"postId":  id,
			"post":    post,
		})
		return
	}
	ok(c, gin.H{
		"message": fmt.Sprintf("Post %s successfully", req.Status),
		"postId":  id,
	})
}

// Get handles GET /api/posts/:id. Only published posts are visible here;
// pending ones read as not found.
func (h *PostsHandler) Get(c *gin.Context) {
	post, err := h.Posts.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, post)
}

// Delete handles DELETE /api/posts/:id.
func (h *PostsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Posts.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"message": "Post deleted successfully",
		"postId":  id,
	})
}

// Search handles GET /api/posts/search?q=.
func (h *PostsHandler) Search(c *gin.Context) {
	posts, err := h.Posts.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			fail(c, http.StatusBadRequest, codeBadRequest, "Search query is required")
			return
		}
		failErr(c, err)
		return
	}
	ok(c, posts)
}
