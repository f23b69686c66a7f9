package httpadapter

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

const (
	defaultDecisionLimit = 50
	maxDecisionLimit     = 500
)

var ErrInvalidAgentID = errors.New("invalid agent id")

// AgentRegistry is the slice of the agent manager the ops surface needs.
type AgentRegistry interface {
	All() []ports.Agent
	Get(id uuid.UUID) (ports.Agent, bool)
	IsActive(id uuid.UUID) bool
	Activate(id uuid.UUID) bool
	Deactivate(id uuid.UUID) bool
}

type Handler struct {
	Agents    AgentRegistry
	Decisions ports.DecisionLogRepository
	KPI       kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	agents := s.Group("/api/agents")
	agents.GET("", h.listAgents)
	agents.POST("/:id/activate", h.activate)
	agents.POST("/:id/deactivate", h.deactivate)
	agents.GET("/:id/stats", h.stats)
	agents.GET("/:id/decisions", h.decisions)

	s.GET("/ops/kpi", h.kpi)
}

type agentView struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Kind   string      `json:"kind"`
	Team   combat.Team `json:"team,omitempty"`
	Active bool        `json:"active"`
}

type agentsResponse struct {
	Agents []agentView `json:"agents"`
}

type decisionsResponse struct {
	AgentID   uuid.UUID              `json:"agent_id"`
	Decisions []ports.DecisionRecord `json:"decisions"`
}

func (h Handler) listAgents(_ context.Context, ctx *app.RequestContext) {
	if h.Agents == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "agent registry not configured")
		return
	}
	all := h.Agents.All()
	resp := agentsResponse{Agents: make([]agentView, 0, len(all))}
	for _, a := range all {
		resp.Agents = append(resp.Agents, agentView{
			ID:     a.ID(),
			Name:   a.Name(),
			Kind:   a.Kind(),
			Team:   a.Team(),
			Active: h.Agents.IsActive(a.ID()),
		})
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) activate(c context.Context, ctx *app.RequestContext) {
	h.setActive(c, ctx, true)
}

func (h Handler) deactivate(c context.Context, ctx *app.RequestContext) {
	h.setActive(c, ctx, false)
}

func (h Handler) setActive(_ context.Context, ctx *app.RequestContext, active bool) {
	a, err := h.requireAgent(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if active {
		h.Agents.Activate(a.ID())
	} else {
		h.Agents.Deactivate(a.ID())
	}
	ctx.JSON(consts.StatusOK, agentView{
		ID:     a.ID(),
		Name:   a.Name(),
		Kind:   a.Kind(),
		Team:   a.Team(),
		Active: h.Agents.IsActive(a.ID()),
	})
}

func (h Handler) stats(_ context.Context, ctx *app.RequestContext) {
	a, err := h.requireAgent(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	reporter, ok := a.(ports.StatsReporter)
	if !ok {
		writeErrorBody(ctx, consts.StatusNotFound, "stats_unavailable", "agent kind "+a.Kind()+" reports no stats")
		return
	}
	ctx.JSON(consts.StatusOK, reporter.StatsSnapshot())
}

func (h Handler) decisions(c context.Context, ctx *app.RequestContext) {
	if h.Decisions == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "decision log not configured")
		return
	}
	id, err := agentIDParam(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	limit := defaultDecisionLimit
	if raw := strings.TrimSpace(string(ctx.Query("limit"))); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxDecisionLimit)
	}

	records, err := h.Decisions.ListByAgentID(c, id, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, decisionsResponse{AgentID: id, Decisions: records})
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) requireAgent(ctx *app.RequestContext) (ports.Agent, error) {
	if h.Agents == nil {
		return nil, ports.ErrNotFound
	}
	id, err := agentIDParam(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := h.Agents.Get(id)
	if !ok {
		return nil, ports.ErrNotFound
	}
	return a, nil
}

func agentIDParam(ctx *app.RequestContext) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(ctx.Param("id")))
	if err != nil {
		return uuid.Nil, ErrInvalidAgentID
	}
	return id, nil
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ErrInvalidAgentID):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_agent_id", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
