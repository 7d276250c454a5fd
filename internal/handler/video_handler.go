package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

// Session is the pipeline the HTTP shell drives.
type Session interface {
	ProcessVideo(ctx context.Context, rawURL string) (domain.VideoStatus, error)
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	Status() domain.VideoStatus
}

// VideoHandler handles ingestion and question endpoints.
type VideoHandler struct {
	baseCtx    context.Context // server lifetime; cancels background jobs on shutdown
	session    Session
	tracker    *JobTracker
	jobTimeout time.Duration
}

// NewVideoHandler creates a new video handler. Background ingestions run
// under baseCtx and are bounded by jobTimeout when it is positive.
func NewVideoHandler(baseCtx context.Context, session Session, tracker *JobTracker, jobTimeout time.Duration) *VideoHandler {
	return &VideoHandler{baseCtx: baseCtx, session: session, tracker: tracker, jobTimeout: jobTimeout}
}

// Register sets up video routes.
func (h *VideoHandler) Register(router fiber.Router) {
	router.Post("/videos", h.Process)
	router.Get("/video", h.Status)
	router.Post("/questions", h.Ask)
}

// Process ingests a video. With ?async=true it returns 202 and a job id
// instead of holding the connection.
func (h *VideoHandler) Process(c fiber.Ctx) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	if c.Query("async") == "true" {
		jobID := uuid.New().String()
		h.tracker.CreateJob(jobID, body.URL)
		go h.runIngestJob(jobID, body.URL)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id":  jobID,
			"message": "ingestion started",
		})
	}

	status, err := h.session.ProcessVideo(c.Context(), body.URL)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}

func (h *VideoHandler) runIngestJob(jobID, url string) {
	ctx := h.baseCtx
	if h.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.jobTimeout)
		defer cancel()
	}

	status, err := h.session.ProcessVideo(ctx, url)
	if err != nil {
		slog.Error("ingestion job failed", "job_id", jobID, "url", url, "error", err)
		h.tracker.Fail(jobID, err)
		return
	}
	h.tracker.Complete(jobID, status)
}

// Status reports whether a video is ready for questions.
func (h *VideoHandler) Status(c fiber.Ctx) error {
	return c.JSON(h.session.Status())
}

// Ask answers a question about the active video.
func (h *VideoHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Question string `json:"question"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	answer, err := h.session.Ask(c.Context(), body.Question)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(answer)
}
