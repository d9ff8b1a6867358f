// Package web provides the HTTP handlers for the leadflow REST API.
package web

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/execution"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/recovery"
	"github.com/leadflowhq/leadflow/pkg/translation"
)

type APIHandlers struct {
	logger       *slog.Logger
	enrichments  *enrichment.Service
	translations *translation.Service
	executions   *execution.Tracker
	recovery     *recovery.Engine
	registry     *providers.Registry
	validator    *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	enrichments *enrichment.Service,
	translations *translation.Service,
	executions *execution.Tracker,
	recoveryEngine *recovery.Engine,
	registry *providers.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:       logger.With("module", "web"),
		enrichments:  enrichments,
		translations: translations,
		executions:   executions,
		recovery:     recoveryEngine,
		registry:     registry,
		validator:    validator,
	}
}

// RequireAPIKey guards provider callback endpoints with a static key
// compared in constant time against the X-API-Key header.
func RequireAPIKey(key string) fiber.Handler {
	return func(c fiber.Ctx) error {
		presented := c.Get("X-API-Key")
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			return unauthorized(c, "invalid or missing API key")
		}

		return c.Next()
	}
}

func (h *APIHandlers) TriggerEnrichment(c fiber.Ctx) error {
	var req TriggerEnrichmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.enrichments.Trigger(c.Context(), enrichment.TriggerRequest{
		CompanyID:   req.CompanyID,
		LeadID:      req.LeadID,
		Provider:    req.Provider,
		RequestData: req.RequestData,
		Actor:       req.RequestedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(request)
}

func (h *APIHandlers) RetryEnrichment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Enrichment request ID is required")
	}

	var req RetryEnrichmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.enrichments.Retry(c.Context(), enrichment.RetryRequest{
		CompanyID:            req.CompanyID,
		RequestID:            id,
		RequestDataOverrides: req.RequestDataOverrides,
		Provider:             req.Provider,
		Actor:                req.RequestedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(request)
}

func (h *APIHandlers) GetEnrichment(c fiber.Ctx) error {
	id := c.Params("id")
	companyID := c.Query("company_id")

	if id == "" || companyID == "" {
		return badRequest(c, "Enrichment request ID and company_id are required")
	}

	request, err := h.enrichments.Get(c.Context(), companyID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) ListEnrichments(c fiber.Ctx) error {
	opts, err := h.parseListEnrichmentsOptions(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if opts.CompanyID == "" {
		return badRequest(c, "company_id is required")
	}

	page, err := h.enrichments.List(c.Context(), *opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) parseListEnrichmentsOptions(c fiber.Ctx) (*persistence.ListEnrichmentsOptions, error) {
	opts := &persistence.ListEnrichmentsOptions{
		CompanyID: c.Query("company_id"),
		LeadID:    c.Query("lead_id"),
		Provider:  c.Query("provider"),
		Cursor:    c.Query("cursor"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.EnrichmentStatus(statusStr)
		opts.Status = &status
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		opts.Limit = limit
	}

	return opts, nil
}

func (h *APIHandlers) EnrichmentStats(c fiber.Ctx) error {
	companyID := c.Query("company_id")
	if companyID == "" {
		return badRequest(c, "company_id is required")
	}

	stats, err := h.enrichments.Stats(c.Context(), companyID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) EnrichmentWebhook(c fiber.Ctx) error {
	var payload enrichment.WebhookPayload
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(payload); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.enrichments.CompleteViaWebhook(c.Context(), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	exec, err := h.executions.Start(c.Context(), req.WorkflowID, req.WorkflowType, req.CompanyID, req.InputData)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(exec)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	exec, err := h.executions.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(exec)
}

func (h *APIHandlers) ExecutionWebhook(c fiber.Ctx) error {
	var payload execution.WebhookPayload
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(payload); err != nil {
		return badRequest(c, err.Error())
	}

	exec, err := h.executions.CompleteViaWebhook(c.Context(), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(exec)
}

func (h *APIHandlers) CreateTranslation(c fiber.Ctx) error {
	var req CreateTranslationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.translations.Create(c.Context(), translation.CreateRequest{
		CompanyID:      req.CompanyID,
		CreatedBy:      req.CreatedBy,
		InputFormat:    models.InputFormat(req.InputFormat),
		RawInput:       req.RawInput,
		StructuredData: req.StructuredData,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(request)
}

func (h *APIHandlers) GetTranslation(c fiber.Ctx) error {
	id := c.Params("id")
	companyID := c.Query("company_id")

	if id == "" || companyID == "" {
		return badRequest(c, "Translation request ID and company_id are required")
	}

	request, err := h.translations.Get(c.Context(), companyID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) RetryTranslation(c fiber.Ctx) error {
	id := c.Params("id")
	companyID := c.Query("company_id")

	if id == "" || companyID == "" {
		return badRequest(c, "Translation request ID and company_id are required")
	}

	request, err := h.translations.Retry(c.Context(), companyID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(request)
}

func (h *APIHandlers) CreateRecoveryStrategy(c fiber.Ctx) error {
	var strategy models.RecoveryStrategy
	if err := c.Bind().JSON(&strategy); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.recovery.AddStrategy(strategy); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(strategy)
}

func (h *APIHandlers) ListRecoveryStrategies(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"strategies": h.recovery.Strategies(),
	})
}

func (h *APIHandlers) RecoveryAnalytics(c fiber.Ctx) error {
	workflowID := c.Params("workflowId")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	analytics, err := h.recovery.ErrorAnalytics(c.Context(), workflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(analytics)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	providerIDs := h.registry.IDs()

	status := "healthy"
	message := "Leadflow API is healthy"
	httpStatus := http.StatusOK

	if len(providerIDs) == 0 {
		status = "unhealthy"
		message = "No enrichment providers registered"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"providers": providerIDs,
		},
		"timestamp": time.Now().UTC(),
	})
}
