package store

import (
	"context"
	"fmt"
	"log"

	"surveyrag/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type DBStorer interface {
	IndexDocument(context.Context, types.IndexedRecord) error
	Search(context.Context, []float32, int) ([]types.Hit, error)
	GetContents(context.Context, []uuid.UUID) ([]types.ResolvedContent, error)
	Verify(context.Context) (int, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// IndexDocument writes the summary embedding and the raw content in one
// transaction. Either both rows land or the identifier is not part of the
// corpus.
func (p *PostgresStore) IndexDocument(ctx context.Context, rec types.IndexedRecord) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO summaries (doc_id, summary, embedding) VALUES ($1, $2, $3)`,
		rec.DocID, rec.Summary, pgvector.NewVector(rec.Embedding),
	)
	if err != nil {
		return fmt.Errorf("insert summary %s: %w", rec.DocID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO contents (doc_id, kind, content, source, page) VALUES ($1, $2, $3, $4, $5)`,
		rec.DocID, string(rec.Kind), rec.Content, rec.Source, rec.Page,
	)
	if err != nil {
		return fmt.Errorf("insert content %s: %w", rec.DocID, err)
	}

	return tx.Commit(ctx)
}

// Search returns the topK nearest summaries by cosine distance. Raw content
// never leaves the contents table through this path.
func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, topK int) ([]types.Hit, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	vector := pgvector.NewVector(queryVec)

	query := `
		SELECT doc_id, summary, 1-(embedding <=> $1) AS score
		FROM summaries
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vector, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []types.Hit
	for rows.Next() {
		var hit types.Hit
		if err := rows.Scan(&hit.DocID, &hit.Summary, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// GetContents resolves identifiers to their raw content. Every requested id
// must resolve; a missing row means the two stores have diverged.
func (p *PostgresStore) GetContents(ctx context.Context, ids []uuid.UUID) ([]types.ResolvedContent, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT doc_id, kind, content, source, page FROM contents WHERE doc_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]types.ResolvedContent, len(ids))
	for rows.Next() {
		var rc types.ResolvedContent
		var kind string
		if err := rows.Scan(&rc.DocID, &kind, &rc.Content, &rc.Source, &rc.Page); err != nil {
			return nil, err
		}
		rc.Kind = types.ElementKind(kind)
		byID[rc.DocID] = rc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resolved := make([]types.ResolvedContent, 0, len(ids))
	for _, id := range ids {
		rc, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("content for %s not found: dangling summary entry", id)
		}
		resolved = append(resolved, rc)
	}
	return resolved, nil
}

// Verify purges half-written entries: ids present in only one of the two
// tables. Returns the number of purged ids. Meant to run at ingest startup.
func (p *PostgresStore) Verify(ctx context.Context) (int, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM summaries WHERE doc_id NOT IN (SELECT doc_id FROM contents)
	`)
	if err != nil {
		return 0, fmt.Errorf("purge orphan summaries: %w", err)
	}
	purged := int(tag.RowsAffected())

	tag, err = p.pool.Exec(ctx, `
		DELETE FROM contents WHERE doc_id NOT IN (SELECT doc_id FROM summaries)
	`)
	if err != nil {
		return purged, fmt.Errorf("purge orphan contents: %w", err)
	}
	purged += int(tag.RowsAffected())

	if purged > 0 {
		log.Printf("[VERIFY] purged %d half-written entries", purged)
	}
	return purged, nil
}

func (p *PostgresStore) createStoreTables(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS summaries (
		doc_id UUID PRIMARY KEY,
		summary TEXT NOT NULL,
		embedding vector(1536)
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_embedding ON summaries USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE TABLE IF NOT EXISTS contents (
		doc_id UUID PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('text','table','image')),
		content TEXT NOT NULL,
		source TEXT,
		page INT
	);

	CREATE INDEX IF NOT EXISTS idx_contents_kind ON contents(kind);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createStoreTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
