package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/leadflowhq/leadflow/pkg/translation"
)

// NewFreeTextInterpreter returns the Gemini interpreter when a key is
// configured and the keyword fallback otherwise.
func NewFreeTextInterpreter(ctx context.Context, logger *slog.Logger) translation.Interpreter {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.InfoContext(ctx, "GEMINI_API_KEY not set, using keyword interpreter for free text")

		return translation.NewKeywordInterpreter()
	}

	interpreter, err := translation.NewGeminiInterpreter(ctx, translation.GeminiConfig{
		APIKey: apiKey,
		Model:  os.Getenv("GEMINI_MODEL"),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create Gemini interpreter, falling back to keywords", "error", err)

		return translation.NewKeywordInterpreter()
	}

	return interpreter
}
