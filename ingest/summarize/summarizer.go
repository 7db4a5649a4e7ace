package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"surveyrag/config"
	"surveyrag/model"
	"surveyrag/types"

	"golang.org/x/sync/errgroup"
)

const textTablePrompt = `You are an assistant tasked with summarizing tables and text.
Give a brief summary of the table or text.

Respond only with the summary, no additional comment.
Do not start your sentence by saying "Here is a summary" or anything like that.
Just give the summary as it is.

%s

Table or text chunk: %s`

const imagePrompt = `Describe the image in detail.

%s

Instructions:
- Provide a detailed description of the image.
- If the image contains graphs (bar charts, line graphs, pie charts), describe
  the type of chart, key trends, labels and numerical values, and significant
  comparisons in the data.
- If the image contains tables or figures, summarize their key takeaways.

Focus on clarity, accuracy, and relevance.`

// Summarizer maps elements to short natural-language summaries. Text and
// table elements go through the completion model, images through the vision
// model. All batches share one concurrency bound.
type Summarizer struct {
	llm     model.Completer
	vision  model.ChatModel
	cfg     config.SummarizeConfig
	backoff time.Duration
	logger  *slog.Logger
}

func New(llm model.Completer, vision model.ChatModel, cfg config.SummarizeConfig) *Summarizer {
	return &Summarizer{
		llm:     llm,
		vision:  vision,
		cfg:     cfg,
		backoff: 300 * time.Millisecond,
		logger:  slog.Default(),
	}
}

// Batch summarizes elements with at most cfg.Concurrency calls in flight.
// An element whose call fails after all attempts is dropped with a warning;
// the rest of the batch continues. Surviving pairs keep element order.
func (s *Summarizer) Batch(ctx context.Context, elements []types.Element) ([]types.Summarized, error) {
	results := make([]*types.Summarized, len(elements))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, el := range elements {
		g.Go(func() error {
			summary, err := s.summarizeWithRetry(gctx, el)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("element dropped from indexing",
					"kind", el.Kind,
					"source", el.Source,
					"page", el.Page,
					"error", err.Error())
				return nil
			}
			mu.Lock()
			results[i] = &types.Summarized{Element: el, Summary: summary}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	pairs := make([]types.Summarized, 0, len(elements))
	for _, r := range results {
		if r != nil {
			pairs = append(pairs, *r)
		}
	}
	return pairs, nil
}

func (s *Summarizer) summarizeWithRetry(ctx context.Context, el types.Element) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		summary, err := s.summarizeOne(ctx, el)
		if err == nil {
			return summary, nil
		}
		lastErr = err

		if attempt < s.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}
	}
	return "", fmt.Errorf("summarization failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

func (s *Summarizer) summarizeOne(ctx context.Context, el types.Element) (string, error) {
	switch el.Kind {
	case types.KindImage:
		parts := []model.ContentPart{
			model.TextPart(fmt.Sprintf(imagePrompt, s.cfg.CorpusDescription)),
			model.ImagePart(el.Content),
		}
		return s.vision.Chat(ctx, parts)
	default:
		prompt := fmt.Sprintf(textTablePrompt, s.cfg.CorpusDescription, el.Content)
		return s.llm.Complete(ctx, prompt)
	}
}
