package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/http/response"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/services"
)

type ProfileHandler struct {
	facts services.FactStore
	queue services.ConfirmationQueue
	graph services.GraphSyncService
}

func NewProfileHandler(facts services.FactStore, queue services.ConfirmationQueue, graph services.GraphSyncService) *ProfileHandler {
	return &ProfileHandler{facts: facts, queue: queue, graph: graph}
}

// GET /api/profile/facts
func (h *ProfileHandler) ListFacts(c *gin.Context) {
	facts, err := h.facts.ListFactsForUser(c.Request.Context(), ctxutil.ExternalUserID(c.Request.Context()))
	if err != nil {
		response.Error(c, err)
		return
	}
	if facts == nil {
		facts = []*types.Fact{}
	}
	response.OK(c, gin.H{"facts": facts})
}

// POST /api/profile/facts
// body: { "fact_type": "destination", "fact_value": "Cyprus" }
func (h *ProfileHandler) UpsertFact(c *gin.Context) {
	var req struct {
		FactType  string `json:"fact_type"`
		FactValue string `json:"fact_value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	ft, ok := types.ParseFactType(req.FactType)
	if !ok {
		response.Error(c, facterr.Validation("profile.upsert_fact", "unknown fact_type "+req.FactType))
		return
	}
	if strings.TrimSpace(req.FactValue) == "" {
		response.Error(c, facterr.Validation("profile.upsert_fact", "fact_value is required"))
		return
	}
	fact, err := h.facts.UpsertUserFact(c.Request.Context(), ctxutil.ExternalUserID(c.Request.Context()), ft, req.FactValue)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"fact": fact})
}

// POST /api/profile/facts/:id/verify
func (h *ProfileHandler) VerifyFact(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	fact, err := h.facts.VerifyFact(c.Request.Context(), ctxutil.ExternalUserID(c.Request.Context()), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"fact": fact})
}

// DELETE /api/profile/facts/:id
func (h *ProfileHandler) DeactivateFact(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.facts.DeactivateFact(c.Request.Context(), ctxutil.ExternalUserID(c.Request.Context()), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// GET /api/profile/pending-confirmations
func (h *ProfileHandler) ListPending(c *gin.Context) {
	pending, err := h.queue.ListPendingForUser(c.Request.Context(), ctxutil.ExternalUserID(c.Request.Context()))
	if err != nil {
		response.Error(c, err)
		return
	}
	if pending == nil {
		pending = []*types.PendingConfirmation{}
	}
	response.OK(c, gin.H{"confirmations": pending})
}

// POST /api/profile/confirm-fact
// body: { "confirmation_id": "...", "action": "approve" | "reject" }
func (h *ProfileHandler) ConfirmFact(c *gin.Context) {
	var req struct {
		ConfirmationID string `json:"confirmation_id"`
		Action         string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.ConfirmationID))
	if err != nil {
		response.Error(c, facterr.Validation("profile.confirm_fact", "invalid confirmation_id"))
		return
	}
	decision, ok := types.ParseDecision(req.Action)
	if !ok {
		response.Error(c, facterr.Validation("profile.confirm_fact", "action must be approve or reject"))
		return
	}
	out, err := h.queue.ResolveForUser(c.Request.Context(), ctxutil.ExternalUserID(c.Request.Context()), id, decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	body := gin.H{"status": out.Status, "confirmation": out.Confirmation}
	if out.Fact != nil {
		body["fact"] = out.Fact
	}
	response.OK(c, body)
}

// POST /api/profile/sync-graph
func (h *ProfileHandler) SyncGraph(c *gin.Context) {
	if h.graph == nil || !h.graph.Enabled() {
		response.Error(c, facterr.NewError(facterr.CodeStoreUnavailable, "profile.sync_graph", "graph sync not configured", nil))
		return
	}
	ctx := c.Request.Context()
	p, err := h.facts.LookupProfile(ctx, ctxutil.ExternalUserID(ctx))
	if err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.graph.SyncProfile(ctx, p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"synced": n})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.Error(c, facterr.Validation("path", "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
