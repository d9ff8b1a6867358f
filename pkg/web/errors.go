package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/leadflowhq/leadflow/pkg/enrichment"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/providers"
	"github.com/leadflowhq/leadflow/pkg/recovery"
	"github.com/leadflowhq/leadflow/pkg/translation"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service layer errors onto RFC 7807 responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, enrichment.ErrProviderCannotHandle),
		errors.Is(err, providers.ErrProviderNotSupported):
		return badRequest(c, err.Error())

	case errors.Is(err, recovery.ErrInvalidStrategy):
		return badRequest(c, err.Error())

	case errors.Is(err, persistence.ErrInvalidCursor):
		return badRequest(c, err.Error())

	case errors.Is(err, recovery.ErrDuplicateStrategyID):
		return conflict(c, err.Error())

	case enrichment.IsConflictError(err),
		errors.Is(err, translation.ErrRetryNotAllowed),
		errors.Is(err, translation.ErrRequestNotProcessable):
		return conflict(c, err.Error())

	case enrichment.IsNotFoundError(err),
		persistence.IsTranslationNotFound(err),
		persistence.IsExecutionNotFound(err):
		return notFound(c, err.Error())

	default:
		return internalError(c, err)
	}
}
