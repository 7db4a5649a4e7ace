package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"surveyrag/model"
	"surveyrag/store"
	"surveyrag/types"

	"github.com/google/uuid"
)

// Indexer writes summarized elements into the dual store: the summary
// embedding into the vector side, the original content into the content
// side, both under one fresh identifier.
type Indexer struct {
	store    store.DBStorer
	embedder model.Embedder
	logger   *slog.Logger
}

func New(st store.DBStorer, embedder model.Embedder) *Indexer {
	return &Indexer{
		store:    st,
		embedder: embedder,
		logger:   slog.Default(),
	}
}

// Index embeds and stores every pair. Any embedding or store failure aborts
// the run: a partially written corpus is not a valid corpus.
func (x *Indexer) Index(ctx context.Context, pairs []types.Summarized) error {
	for _, pair := range pairs {
		embedding, err := x.embedder.Embed(ctx, pair.Summary)
		if err != nil {
			return fmt.Errorf("embed summary (%s, %s p.%d): %w", pair.Element.Kind, pair.Element.Source, pair.Element.Page, err)
		}

		rec := types.IndexedRecord{
			DocID:     uuid.New(),
			Summary:   pair.Summary,
			Embedding: embedding,
			Kind:      pair.Element.Kind,
			Content:   pair.Element.Content,
			Source:    pair.Element.Source,
			Page:      pair.Element.Page,
		}

		if err := x.store.IndexDocument(ctx, rec); err != nil {
			return fmt.Errorf("index document %s: %w", rec.DocID, err)
		}
	}

	x.logger.Info("indexed batch", "count", len(pairs))
	return nil
}
