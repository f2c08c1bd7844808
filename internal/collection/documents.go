package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type attachOutcome int

const (
	attachAdded attachOutcome = iota
	attachExisting
	attachCapped
)

// attachDocument adds uri to a spider unless it is already attached or the
// spider is at the cap. Neither case is an error.
func (s *Store) attachDocument(ctx context.Context, tx *sql.Tx, spiderID, uri string) (attachOutcome, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return attachExisting, invalidf("document uri is required")
	}

	var count, same int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(uri = ?), 0) FROM documents WHERE animal_id = ?`,
		uri, spiderID,
	).Scan(&count, &same)
	if err != nil {
		return attachExisting, storageErr("count documents", err)
	}
	if same > 0 {
		return attachExisting, nil
	}
	if count >= s.cfg.MaxDocuments {
		s.log.Warn("document limit reached, not attaching",
			"spider", spiderID, "limit", s.cfg.MaxDocuments, "uri", uri)
		return attachCapped, nil
	}
	if _, err := s.execHook(ctx, tx,
		`INSERT INTO documents (animal_id, uri) VALUES (?, ?)`, spiderID, uri,
	); err != nil {
		return attachExisting, storageErr("insert document", err)
	}
	return attachAdded, nil
}

// AddDocument attaches uri to a spider. It reports false, without error,
// when the spider already holds the maximum number of documents. Attaching
// a URI that is already present is a no-op reported as true.
func (s *Store) AddDocument(ctx context.Context, spiderID, uri string) (bool, error) {
	var outcome attachOutcome
	err := s.withTx(ctx, "add document", func(tx *sql.Tx) error {
		exists, err := spiderExists(ctx, tx, spiderID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("spider %q: %w", spiderID, ErrNotFound)
		}
		outcome, err = s.attachDocument(ctx, tx, spiderID, uri)
		return err
	})
	if err != nil {
		return false, err
	}
	return outcome != attachCapped, nil
}

// RemoveDocument deletes a single document and returns what was removed.
func (s *Store) RemoveDocument(ctx context.Context, id int64) (*Document, error) {
	var doc Document
	err := s.withTx(ctx, "remove document", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id, animal_id, uri FROM documents WHERE id = ?`, id,
		).Scan(&doc.ID, &doc.SpiderID, &doc.URI)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("document %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return storageErr("load document", err)
		}
		if _, err := s.execHook(ctx, tx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return storageErr("delete document", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Documents lists the documents attached to a spider.
func (s *Store) Documents(ctx context.Context, spiderID string) ([]Document, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return s.documents(ctx, db, spiderID)
}

func (s *Store) documents(ctx context.Context, q queryer, spiderID string) ([]Document, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, animal_id, uri FROM documents WHERE animal_id = ? ORDER BY id`, spiderID)
	if err != nil {
		return nil, storageErr("list documents", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.SpiderID, &d.URI); err != nil {
			return nil, storageErr("list documents: scan", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list documents", err)
	}
	return out, nil
}
