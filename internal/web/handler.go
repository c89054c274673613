package web

import (
	"strings"

	"storyteller/internal/domain/completion"
	"storyteller/internal/story/speech"
	"storyteller/internal/story/studio"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// rate step of the +/- buttons
const rateStep = 0.1

type Handler struct {
	studio    *studio.Studio
	generator completion.Generator
}

func NewHandler(s *studio.Studio, generator completion.Generator) *Handler {
	return &Handler{studio: s, generator: generator}
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

type voiceRequest struct {
	Name string `json:"name"`
}

// speechStatus is what the page polls: the speech snapshot plus whether a
// story is still being written.
type speechStatus struct {
	speech.Snapshot
	Generating bool `json:"generating"`
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.Index)
	app.Get("/healthz", h.Health)

	api := app.Group("/api")
	api.Post("/generate", h.Generate)

	api.Get("/stories", h.ListStories)
	api.Post("/stories", h.CreateStory)
	api.Get("/stories/:id", h.GetStory)
	api.Patch("/stories/:id", h.RenameStory)
	api.Delete("/stories/:id", h.DeleteStory)
	api.Post("/stories/:id/select", h.SelectStory)
	api.Post("/stories/:id/edit", h.EditStory)
	api.Post("/stories/:id/delete-request", h.RequestDelete)
	api.Post("/delete/confirm", h.ConfirmDelete)
	api.Post("/delete/cancel", h.CancelDelete)

	api.Get("/speech", h.SpeechState)
	api.Post("/speech/toggle", h.ToggleSpeech)
	api.Post("/speech/stop", h.StopSpeech)
	api.Post("/speech/paragraphs/:index", h.PlayParagraph)
	api.Put("/speech/rate", h.SetRate)
	api.Post("/speech/rate/:direction", h.NudgeRate)

	api.Get("/voices", h.ListVoices)
	api.Put("/voices/current", h.SelectVoice)

	api.Post("/theme", h.ToggleTheme)
}

func (h *Handler) Index(c *fiber.Ctx) error {
	return c.Render("index", h.studio.View())
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Generate only runs the completion and returns the text; nothing is stored.
func (h *Handler) Generate(c *fiber.Ctx) error {
	req := new(promptRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return studio.ErrBlankPrompt
	}

	text, err := h.generator.Generate(c.UserContext(), req.Prompt)
	if err != nil {
		logrus.WithError(err).Error("Error generating story")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate story",
		})
	}
	return c.JSON(fiber.Map{"story": text})
}

func (h *Handler) ListStories(c *fiber.Ctx) error {
	return c.JSON(h.studio.Stories())
}

// CreateStory runs the full flow: completion, image lookup, store, select.
func (h *Handler) CreateStory(c *fiber.Ctx) error {
	req := new(promptRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}

	st, err := h.studio.Generate(c.UserContext(), req.Prompt)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

func (h *Handler) GetStory(c *fiber.Ctx) error {
	st, err := h.studio.Story(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) RenameStory(c *fiber.Ctx) error {
	req := new(titleRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}

	st, err := h.studio.CommitEdit(c.Params("id"), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) DeleteStory(c *fiber.Ctx) error {
	if err := h.studio.Delete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) SelectStory(c *fiber.Ctx) error {
	st, err := h.studio.Select(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) EditStory(c *fiber.Ctx) error {
	if err := h.studio.BeginEdit(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) RequestDelete(c *fiber.Ctx) error {
	if err := h.studio.RequestDelete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ConfirmDelete(c *fiber.Ctx) error {
	id, err := h.studio.ConfirmDelete()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": id})
}

func (h *Handler) CancelDelete(c *fiber.Ctx) error {
	h.studio.CancelDelete()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) SpeechState(c *fiber.Ctx) error {
	return c.JSON(speechStatus{Snapshot: h.studio.Speech(), Generating: h.studio.Generating()})
}

func (h *Handler) ToggleSpeech(c *fiber.Ctx) error {
	snap, err := h.studio.ToggleSpeech()
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (h *Handler) StopSpeech(c *fiber.Ctx) error {
	snap, err := h.studio.StopSpeech()
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (h *Handler) PlayParagraph(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "paragraph index must be a number")
	}

	snap, err := h.studio.PlayParagraph(index)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (h *Handler) SetRate(c *fiber.Ctx) error {
	req := new(rateRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}

	rate, err := h.studio.SetRate(req.Rate)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rate": rate})
}

func (h *Handler) NudgeRate(c *fiber.Ctx) error {
	var delta float64
	switch c.Params("direction") {
	case "up":
		delta = rateStep
	case "down":
		delta = -rateStep
	default:
		return fiber.NewError(fiber.StatusBadRequest, "direction must be up or down")
	}

	rate, err := h.studio.ChangeRate(delta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rate": rate})
}

func (h *Handler) ListVoices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"voices":  h.studio.Voices(),
		"current": h.studio.Speech().Voice,
	})
}

func (h *Handler) SelectVoice(c *fiber.Ctx) error {
	req := new(voiceRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}

	voice, err := h.studio.SelectVoice(req.Name)
	if err != nil {
		return err
	}
	return c.JSON(voice)
}

func (h *Handler) ToggleTheme(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"theme": h.studio.ToggleTheme()})
}
