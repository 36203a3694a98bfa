package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/http/response"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/services"
)

type ContextHandler struct {
	assembler services.ContextAssembler
}

func NewContextHandler(assembler services.ContextAssembler) *ContextHandler {
	return &ContextHandler{assembler: assembler}
}

// POST /api/context
// body: { "query": "..." }
func (h *ContextHandler) Assemble(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	ext := ctxutil.ExternalUserID(ctx)
	if ext == "" {
		ext = ctxutil.AnonymousUserID
	}
	text, err := h.assembler.Assemble(ctx, ext, req.Query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"context": text})
}
