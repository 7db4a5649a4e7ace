package api

import (
	"time"

	"surveyrag/app/agent"
	"surveyrag/config"
	"surveyrag/model"
	"surveyrag/store"
	"surveyrag/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SurveyHandler serves POST /survey: embed the question, search the vector
// side for the nearest summaries, resolve raw content from the content side,
// and generate an answer over the assembled multi-modal context.
type SurveyHandler struct {
	contextStore store.DBStorer
	embedder     model.Embedder
	chat         model.ChatModel
	cfg          config.QueryConfig
}

func NewSurveyHandler(contextStore store.DBStorer, embedder model.Embedder, chat model.ChatModel, cfg config.QueryConfig) *SurveyHandler {
	return &SurveyHandler{
		contextStore: contextStore,
		embedder:     embedder,
		chat:         chat,
		cfg:          cfg,
	}
}

func (h *SurveyHandler) HandleSurvey(c *fiber.Ctx) error {
	var params types.SurveyParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	ctx := c.Context()

	queryVec, err := h.embedder.Embed(ctx, params.Query)
	if err != nil {
		return ErrServiceUnavailable("embedding service unavailable: " + err.Error())
	}

	hits, err := h.contextStore.Search(ctx, queryVec, h.cfg.TopK)
	if err != nil {
		return ErrServiceUnavailable("vector search failed: " + err.Error())
	}

	hits = h.filterHits(hits)

	ids := make([]uuid.UUID, len(hits))
	for i, hit := range hits {
		ids[i] = hit.DocID
	}

	resolved, err := h.contextStore.GetContents(ctx, ids)
	if err != nil {
		return ErrServiceUnavailable("content resolution failed: " + err.Error())
	}

	contextText, images := agent.SplitContext(resolved)

	// Zero hits still generate: the refusal policy in the prompt governs
	// the answer, an empty corpus is not a server fault.
	answer, err := agent.GenerateAnswer(ctx, h.chat, contextText, params.Query, images)
	if err != nil {
		return ErrServiceUnavailable("answer generation failed: " + err.Error())
	}

	resp := &types.SurveyResponse{
		Answer:    answer,
		Sources:   formatSources(hits, resolved),
		Timestamp: time.Now(),
	}
	return c.JSON(resp)
}

func (h *SurveyHandler) filterHits(hits []types.Hit) []types.Hit {
	if h.cfg.MinScore == 0 {
		return hits
	}
	result := make([]types.Hit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= h.cfg.MinScore {
			result = append(result, hit)
		}
	}
	return result
}

func formatSources(hits []types.Hit, resolved []types.ResolvedContent) []types.Source {
	sources := make([]types.Source, 0, len(hits))
	for i, hit := range hits {
		src := types.Source{
			DocID:   hit.DocID.String(),
			Summary: hit.Summary,
		}
		if i < len(resolved) {
			src.Kind = string(resolved[i].Kind)
			src.Source = resolved[i].Source
			src.Page = resolved[i].Page
		}
		sources = append(sources, src)
	}
	return sources
}
