package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/chat"
	"github.com/lkataba/community-backend/internal/domain"
)

// ChatHandler serves the ephemeral chat room. The room is HTTP-polled, not
// socket-based: clients post messages, poll /messages, and ping to stay in
// the presence set.
type ChatHandler struct {
	Chat *chat.Service
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(s *chat.Service) *ChatHandler {
	return &ChatHandler{Chat: s}
}

type nicknameRequest struct {
	Nickname string `json:"nickname"`
}

// CheckNickname handles POST /api/chat/check-nickname.
func (h *ChatHandler) CheckNickname(c *gin.Context) {
	var req nicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nickname is required"})
		return
	}
	ok(c, gin.H{"available": h.Chat.NicknameAvailable(req.Nickname)})
}

type joinRequest struct {
	Nickname string `json:"nickname"`
	Gender   string `json:"gender"`
	JoinTime string `json:"joinTime"`
	Avatar   string `json:"avatar"`
}

// Join handles POST /api/chat/join. Nickname collisions are case-insensitive
// and answered with 409.
func (h *ChatHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Nickname == "" || req.Gender == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nickname and gender are required"})
		return
	}

	user, online, err := h.Chat.Join(req.Nickname, req.Gender, req.JoinTime, req.Avatar)
	if err != nil {
		if errors.Is(err, chat.ErrNicknameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Nickname already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	ok(c, gin.H{
		"success":     true,
		"onlineUsers": online,
		"user":        user,
	})
}

// Leave handles POST /api/chat/leave. Leaving twice is harmless.
func (h *ChatHandler) Leave(c *gin.Context) {
	var req nicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nickname is required"})
		return
	}
	ok(c, gin.H{
		"success":     true,
		"onlineUsers": h.Chat.Leave(req.Nickname),
	})
}

// Message handles POST /api/chat/message. The client supplies the message id
// and timestamp; the server stamps the expiry.
func (h *ChatHandler) Message(c *gin.Context) {
	var msg domain.ChatMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message format"})
		return
	}

	saved, online, err := h.Chat.Post(msg)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message format"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	ok(c, gin.H{
		"success":     true,
		"messageId":   saved.ID,
		"onlineUsers": online,
	})
}

// Messages handles GET /api/chat/messages: the last hundred live messages
// plus the presence count.
func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, online, err := h.Chat.Recent()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	ok(c, gin.H{
		"messages":      msgs,
		"onlineUsers":   online,
		"totalMessages": len(msgs),
	})
}

type deleteMessageRequest struct {
	MessageID    string `json:"messageId"`
	UserNickname string `json:"userNickname"`
}

// DeleteMessage handles DELETE /api/chat/delete-message. Only the author may
// delete an authored message.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	var req deleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" || req.UserNickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "معرف الرسالة واسم المستخدم مطلوبان",
		})
		return
	}

	switch err := h.Chat.Delete(req.MessageID, req.UserNickname); {
	case err == nil:
		ok(c, gin.H{
			"success":   true,
			"message":   "تم حذف الرسالة بنجاح",
			"messageId": req.MessageID,
		})
	case errors.Is(err, chat.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "الرسالة غير موجودة",
		})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "لا يمكنك حذف رسائل المستخدمين الآخرين",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "خطأ في الخادم",
		})
	}
}

// Ping handles POST /api/chat/ping, the keep-alive that holds a participant
// in the presence set between messages.
func (h *ChatHandler) Ping(c *gin.Context) {
	var req nicknameRequest
	_ = c.ShouldBindJSON(&req)

	online := h.Chat.Online()
	if req.Nickname != "" {
		online = h.Chat.Ping(req.Nickname)
	}
	ok(c, gin.H{
		"success":     true,
		"onlineUsers": online,
	})
}
