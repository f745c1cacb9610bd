package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wbl65535/Data-Engineering-1/qa"
	"github.com/wbl65535/Data-Engineering-1/retriever"
	"github.com/wbl65535/Data-Engineering-1/types"
)

// AskHandler answers one question per request: one retrieval call, then
// one completion call. Completion failures surface inside the answer.
type AskHandler struct {
	retriever *retriever.Retriever
	composer  *qa.Composer
	topK      int
}

func NewAskHandler(r *retriever.Retriever, c *qa.Composer, topK int) *AskHandler {
	if topK < 1 {
		topK = 5
	}
	return &AskHandler{retriever: r, composer: c, topK: topK}
}

func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	k := params.TopK
	if k == 0 {
		k = h.topK
	}

	docs, err := h.retriever.Search(c.Context(), params.Question, k)
	if err != nil {
		return err
	}

	resp := h.composer.Answer(c.Context(), params.Question, docs)
	return c.JSON(resp)
}
