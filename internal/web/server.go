package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"storyteller/internal/domain/completion"
	"storyteller/internal/domain/story"
	"storyteller/internal/story/speech"
	"storyteller/internal/story/studio"
	"storyteller/internal/story/tts"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/sirupsen/logrus"
)

//go:embed views
var viewsFS embed.FS

const shutdownTimeout = 5 * time.Second

// NewApp builds the fiber application serving the page and the JSON API.
func NewApp(h *Handler) *fiber.App {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "storyteller",
		Views:                 html.NewFileSystem(http.FS(views), ".html"),
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestLogger())

	h.Register(app)
	return app
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logrus.WithError(err).Warn("server shutdown")
		}
	}()

	logrus.WithField("addr", addr).Info("server starting")
	return app.Listen(addr)
}

func errorHandler(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, completion.ErrGenerationFailure):
		return fiber.StatusInternalServerError, "Failed to generate story"
	case errors.Is(err, studio.ErrBlankPrompt):
		return fiber.StatusBadRequest, "Prompt is required"
	case errors.Is(err, speech.ErrParagraphOutOfRange):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, story.ErrNotFound), errors.Is(err, tts.ErrUnknownVoice):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, studio.ErrGenerating),
		errors.Is(err, studio.ErrNoSelection),
		errors.Is(err, studio.ErrNoPendingDelete),
		errors.Is(err, speech.ErrInvalidTransition),
		errors.Is(err, speech.ErrNoVoice):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, speech.ErrNothingToSpeak):
		return fiber.StatusUnprocessableEntity, err.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}

// requestLogger logs one line per request once the error handler has set
// the final status.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logrus.WithFields(logrus.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"elapsed": time.Since(start).String(),
		}).Debug("request")
		return nil
	}
}
