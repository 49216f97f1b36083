package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/clauseaudit/internal/ids"
	"github.com/dshills/clauseaudit/internal/regulation"
	"github.com/dshills/clauseaudit/internal/schema"
)

// AddRegulations upserts articles keyed by (law_name, article_number) and
// returns them with their stored IDs. Re-importing a law updates content in
// place and keeps the original IDs.
func (db *DB) AddRegulations(ctx context.Context, arts []regulation.Article) ([]regulation.Article, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &schema.StorageError{Op: "add regulations", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO regulations (id, law_name, article_number, content, category, effective_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(law_name, article_number) DO UPDATE SET
		  content=excluded.content, category=excluded.category, effective_date=excluded.effective_date
		RETURNING id`)
	if err != nil {
		return nil, &schema.StorageError{Op: "add regulations", Err: err}
	}
	defer stmt.Close()

	now := time.Now()
	out := make([]regulation.Article, len(arts))
	for i, a := range arts {
		if a.ID == "" {
			a.ID = ids.New(ids.Regulation, now)
		}
		if err := stmt.QueryRowContext(ctx, a.ID, a.LawName, a.ArticleNumber, a.Content, a.Category, a.EffectiveDate).Scan(&a.ID); err != nil {
			return nil, &schema.StorageError{Op: "add regulations", Err: err}
		}
		out[i] = a
	}
	if err := tx.Commit(); err != nil {
		return nil, &schema.StorageError{Op: "add regulations", Err: err}
	}
	return out, nil
}

const articleColumns = `id, law_name, article_number, content, category, effective_date`

func scanArticles(rows *sql.Rows) ([]regulation.Article, error) {
	defer rows.Close()
	out := make([]regulation.Article, 0)
	for rows.Next() {
		var (
			a        regulation.Article
			category sql.NullString
			eff      sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.LawName, &a.ArticleNumber, &a.Content, &category, &eff); err != nil {
			return nil, err
		}
		a.Category, a.EffectiveDate = category.String, eff.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetRegulation returns one article by exact law name and article number.
func (db *DB) GetRegulation(ctx context.Context, lawName, articleNumber string) (regulation.Article, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM regulations WHERE law_name = ? AND article_number = ? LIMIT 1`,
		lawName, articleNumber)
	if err != nil {
		return regulation.Article{}, &schema.StorageError{Op: "get regulation", Err: err}
	}
	arts, err := scanArticles(rows)
	if err != nil {
		return regulation.Article{}, &schema.StorageError{Op: "get regulation", Err: err}
	}
	if len(arts) == 0 {
		return regulation.Article{}, ErrNotFound
	}
	return arts[0], nil
}

// SearchExact returns articles whose law name or article number equals query.
func (db *DB) SearchExact(ctx context.Context, query string, limit int) ([]regulation.Article, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM regulations
		  WHERE law_name = ? OR article_number = ? OR (law_name || article_number) = ?
		  ORDER BY law_name, id LIMIT ?`,
		query, query, query, limit)
	if err != nil {
		return nil, &schema.StorageError{Op: "search exact", Err: err}
	}
	arts, err := scanArticles(rows)
	if err != nil {
		return nil, &schema.StorageError{Op: "search exact", Err: err}
	}
	return arts, nil
}

// SearchKeyword returns articles whose content, law name or article number
// contains query.
func (db *DB) SearchKeyword(ctx context.Context, query string, limit int) ([]regulation.Article, error) {
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM regulations
		  WHERE content LIKE ? ESCAPE '\' OR law_name LIKE ? ESCAPE '\' OR article_number LIKE ? ESCAPE '\'
		  ORDER BY law_name, id LIMIT ?`,
		like, like, like, limit)
	if err != nil {
		return nil, &schema.StorageError{Op: "search keyword", Err: err}
	}
	arts, err := scanArticles(rows)
	if err != nil {
		return nil, &schema.StorageError{Op: "search keyword", Err: err}
	}
	return arts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CountRegulations returns the number of stored articles.
func (db *DB) CountRegulations(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM regulations`).Scan(&n); err != nil {
		return 0, &schema.StorageError{Op: "count regulations", Err: err}
	}
	return n, nil
}

// SaveChunks replaces the chunks of every regulation they belong to.
func (db *DB) SaveChunks(ctx context.Context, chunks []regulation.Chunk) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &schema.StorageError{Op: "save chunks", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	cleared := make(map[string]bool)
	for _, c := range chunks {
		if cleared[c.RegulationID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM regulation_chunks WHERE regulation_id = ?`, c.RegulationID); err != nil {
			return &schema.StorageError{Op: "save chunks", Err: err}
		}
		cleared[c.RegulationID] = true
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO regulation_chunks (id, regulation_id, chunk_index, chunk_text, start_pos, end_pos, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &schema.StorageError{Op: "save chunks", Err: err}
	}
	defer stmt.Close()

	for _, c := range chunks {
		var emb any
		if len(c.Embedding) > 0 {
			b, err := json.Marshal(c.Embedding)
			if err != nil {
				return &schema.StorageError{Op: "save chunks", Err: err}
			}
			emb = string(b)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.RegulationID, c.Index, c.Text, c.Start, c.End, emb); err != nil {
			return &schema.StorageError{Op: "save chunks", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &schema.StorageError{Op: "save chunks", Err: err}
	}
	return nil
}

// EmbeddedChunks returns every chunk that has an embedding, joined with its
// article metadata.
func (db *DB) EmbeddedChunks(ctx context.Context) ([]regulation.Chunk, error) {
	const q = `
		SELECT c.id, c.regulation_id, c.chunk_index, c.chunk_text, c.start_pos, c.end_pos, c.embedding,
		       r.law_name, r.article_number, r.category
		  FROM regulation_chunks c
		  JOIN regulations r ON r.id = c.regulation_id
		 WHERE c.embedding IS NOT NULL
		 ORDER BY c.regulation_id, c.chunk_index`
	rows, err := db.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, &schema.StorageError{Op: "load chunks", Err: err}
	}
	defer rows.Close()

	out := make([]regulation.Chunk, 0)
	for rows.Next() {
		var (
			c        regulation.Chunk
			emb      string
			category sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.RegulationID, &c.Index, &c.Text, &c.Start, &c.End, &emb, &c.LawName, &c.ArticleNumber, &category); err != nil {
			return nil, &schema.StorageError{Op: "load chunks", Err: err}
		}
		c.Category = category.String
		if err := json.Unmarshal([]byte(emb), &c.Embedding); err != nil {
			return nil, &schema.StorageError{Op: "load chunks", Err: fmt.Errorf("chunk %s: %w", c.ID, err)}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &schema.StorageError{Op: "load chunks", Err: err}
	}
	return out, nil
}
