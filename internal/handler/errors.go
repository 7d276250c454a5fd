package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// errorKinds maps pipeline failures to HTTP status and a stable error code.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{port.ErrInvalidURL, fiber.StatusBadRequest, "invalid_url"},
	{port.ErrEmptyQuestion, fiber.StatusBadRequest, "empty_question"},
	{port.ErrNoActiveIndex, fiber.StatusConflict, "no_active_index"},
	{port.ErrNoCaptions, fiber.StatusNotFound, "no_captions"},
	{port.ErrEmptyTranscript, fiber.StatusUnprocessableEntity, "empty_transcript"},
	{port.ErrTranslationFailed, fiber.StatusBadGateway, "translation_failed"},
	{port.ErrEmbeddingService, fiber.StatusBadGateway, "embedding_service"},
	{port.ErrCompletionService, fiber.StatusBadGateway, "completion_service"},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, "timeout"},
}

// classify returns the HTTP status and error code for err.
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return fiber.StatusInternalServerError, "internal"
}

func writeError(c fiber.Ctx, err error) error {
	status, code := classify(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "code", code, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": code})
}
