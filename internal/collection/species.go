package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/patrickmn/go-cache"
)

const speciesListKey = "species:all"

func speciesNameKey(name string) string {
	return "species:name:" + strings.ToLower(strings.TrimSpace(name))
}

// ListSpecies returns the species catalogue ordered by name.
func (s *Store) ListSpecies(ctx context.Context) ([]Species, error) {
	if cached, found := s.species.Get(speciesListKey); found {
		return slices.Clone(cached.([]Species)), nil
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM species ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, storageErr("list species", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Species
	for rows.Next() {
		var sp Species
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return nil, storageErr("list species: scan", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list species", err)
	}
	s.species.Set(speciesListKey, out, cache.DefaultExpiration)
	return slices.Clone(out), nil
}

// SpeciesByName looks a species up case-insensitively.
func (s *Store) SpeciesByName(ctx context.Context, name string) (*Species, error) {
	key := speciesNameKey(name)
	if cached, found := s.species.Get(key); found {
		sp := cached.(Species)
		return &sp, nil
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var sp Species
	err = db.QueryRowContext(ctx,
		`SELECT id, name FROM species WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name),
	).Scan(&sp.ID, &sp.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("species %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("species by name", err)
	}
	s.species.Set(key, sp, cache.DefaultExpiration)
	return &sp, nil
}

// AddSpecies appends a species to the catalogue.
func (s *Store) AddSpecies(ctx context.Context, name string) (*Species, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("species name is required")
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	res, err := s.execHook(ctx, db, `INSERT INTO species (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("species %q: %w", name, ErrConflict)
		}
		return nil, storageErr("add species", err)
	}
	s.species.Flush()
	id, _ := res.LastInsertId()
	return &Species{ID: id, Name: name}, nil
}

// DeleteSpecies removes a species. Spiders referencing it keep existing
// with no species (ON DELETE SET NULL).
func (s *Store) DeleteSpecies(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := s.execHook(ctx, db, `DELETE FROM species WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete species", err)
	}
	s.species.Flush()
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("species %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) requireSpecies(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM species WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("species %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return storageErr("check species", err)
	}
	return nil
}
