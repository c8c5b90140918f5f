package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/orchestrator"
	"github.com/retrace-dev/retrace/pkg/persistence"
	"github.com/retrace-dev/retrace/pkg/registry"
	"github.com/retrace-dev/retrace/pkg/runstate"
)

const defaultRunsLimit = 20

// FlowRunner launches replays. The orchestrator satisfies it.
type FlowRunner interface {
	Run(ctx context.Context, flow *models.Flow, opts orchestrator.RunOptions) (*models.RunResult, error)
}

type APIHandlers struct {
	store     persistence.Persistence
	runner    FlowRunner
	states    runstate.Registry
	validator *validator.Validate
	registry  *registry.Registry
	logger    *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	runner FlowRunner,
	states runstate.Registry,
	validator *validator.Validate,
	registry *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		store:     store,
		runner:    runner,
		states:    states,
		validator: validator,
		registry:  registry,
		logger:    logger,
	}
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.store.FlowRepository().Flows(c.Context())
	if err != nil {
		return handleStoreError(c, err)
	}

	summaries := make([]FlowSummary, 0, len(flows))
	for _, flow := range flows {
		summaries = append(summaries, SummarizeFlow(flow))
	}

	return c.JSON(fiber.Map{
		"flows":       summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.store.FlowRepository().FlowByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.store.FlowRepository().FlowByID(c.Context(), req.ID); err == nil {
		return conflict(c, "flow "+req.ID+" already exists")
	} else if !persistence.IsNotFound(err) {
		return internalError(c, err)
	}

	flow := &models.Flow{
		ID:        req.ID,
		Name:      req.Name,
		Version:   req.Version,
		Metadata:  req.Metadata,
		Variables: req.Variables,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		Subflows:  req.Subflows,
	}
	if flow.Version == 0 {
		flow.Version = 1
	}

	flow.Metadata.CreatedAt = time.Now()
	flow.Metadata.UpdatedAt = flow.Metadata.CreatedAt

	if err := flow.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.FlowRepository().SaveFlow(c.Context(), flow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.store.FlowRepository().FlowByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Metadata != nil {
		createdAt := existing.Metadata.CreatedAt
		existing.Metadata = *req.Metadata
		existing.Metadata.CreatedAt = createdAt
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Edges != nil {
		existing.Edges = req.Edges
	}

	if req.Subflows != nil {
		existing.Subflows = req.Subflows
	}

	existing.Version++
	existing.Metadata.UpdatedAt = time.Now()

	if err := existing.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.FlowRepository().SaveFlow(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.store.FlowRepository().DeleteFlow(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunFlow replays a registered flow synchronously and returns the run
// result, including its structured log.
func (h *APIHandlers) RunFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req RunFlowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	flow, err := h.store.FlowRepository().FlowByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	opts := orchestrator.RunOptions{
		Args:     req.Args,
		StartURL: req.StartURL,
		TabID:    req.TabID,
	}
	if req.TimeoutMs > 0 {
		opts.Deadline = time.Now().Add(time.Duration(req.TimeoutMs) * time.Millisecond)
	}

	result, err := h.runner.Run(c.Context(), flow, opts)
	if err != nil {
		if errors.Is(err, orchestrator.ErrDomainBinding) || errors.Is(err, orchestrator.ErrNoStartNode) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	record, err := h.store.RunRepository().RunByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetFlowRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	limit := defaultRunsLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	records, err := h.store.RunRepository().RunsByFlow(c.Context(), id, limit)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":  records,
		"count": len(records),
	})
}

// GetActiveRuns lists runs currently tracked by the state registry, which
// covers running and paused runs.
func (h *APIHandlers) GetActiveRuns(c fiber.Ctx) error {
	states, err := h.states.Active(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":  states,
		"count": len(states),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeErr := h.store.HealthCheck(c.Context())
	actionTypes := h.registry.ActionTypes()

	status := "healthy"
	httpStatus := http.StatusOK

	if storeErr != nil || len(actionTypes) == 0 {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	storeStatus := "ok"
	if storeErr != nil {
		storeStatus = storeErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"persistence":  storeStatus,
			"action_types": len(actionTypes),
		},
		"timestamp": time.Now().UTC(),
	})
}
