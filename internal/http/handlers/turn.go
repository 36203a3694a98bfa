package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	"github.com/yungbote/relocation-backend/internal/http/response"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/services"
)

// TurnSubmitter queues a turn for background extraction without blocking.
type TurnSubmitter interface {
	Submit(turn services.Turn) bool
}

type TurnHandler struct {
	submitter TurnSubmitter
}

func NewTurnHandler(submitter TurnSubmitter) *TurnHandler {
	return &TurnHandler{submitter: submitter}
}

// POST /api/turns
// body: { "user_message": "...", "assistant_reply": "...", "channel": "text" | "voice" }
// Extraction never delays the conversation, so the response is always 202.
func (h *TurnHandler) SubmitTurn(c *gin.Context) {
	var req struct {
		UserMessage    string `json:"user_message"`
		AssistantReply string `json:"assistant_reply"`
		Channel        string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" && strings.TrimSpace(req.AssistantReply) == "" {
		response.Error(c, facterr.Validation("turn.submit", "user_message or assistant_reply is required"))
		return
	}
	ext := ctxutil.ExternalUserID(c.Request.Context())
	if ext == "" {
		c.JSON(http.StatusAccepted, gin.H{"accepted": false, "reason": "anonymous"})
		return
	}
	if !h.submitter.Submit(services.Turn{
		ExternalUserID: ext,
		UserMessage:    req.UserMessage,
		AssistantReply: req.AssistantReply,
		Channel:        req.Channel,
	}) {
		c.JSON(http.StatusAccepted, gin.H{"accepted": false, "reason": "queue_full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
