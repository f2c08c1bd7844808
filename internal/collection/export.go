package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HendryAvila/spiderlog/internal/feeding"
)

// ExportVersion is written into every export.
const ExportVersion = "1"

// ExportData is the full serializable dump of the collection.
type ExportData struct {
	Version    string    `json:"version"`
	ExportedAt string    `json:"exported_at"`
	Species    []Species `json:"species"`
	Spiders    []Spider  `json:"spiders"`
}

// ImportResult holds counts of imported records.
type ImportResult struct {
	SpeciesImported   int `json:"species_imported"`
	SpidersImported   int `json:"spiders_imported"`
	SpidersSkipped    int `json:"spiders_skipped"`
	FeedingsImported  int `json:"feedings_imported"`
	MoltsImported     int `json:"molts_imported"`
	DocumentsImported int `json:"documents_imported"`
}

// Export dumps every species and every spider with its history and
// documents.
func (s *Store) Export(ctx context.Context) (*ExportData, error) {
	species, err := s.ListSpecies(ctx)
	if err != nil {
		return nil, fmt.Errorf("export species: %w", err)
	}
	list, err := s.ListSpiders(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("export spiders: %w", err)
	}

	data := &ExportData{
		Version:    ExportVersion,
		ExportedAt: timeNow().UTC().Format(time.RFC3339),
		Species:    species,
		Spiders:    make([]Spider, 0, len(list)),
	}
	for _, sp := range list {
		full, err := s.GetSpider(ctx, sp.ID)
		if err != nil {
			return nil, fmt.Errorf("export spider %s: %w", sp.ID, err)
		}
		data.Spiders = append(data.Spiders, *full)
	}
	return data, nil
}

// Import loads exported data in one transaction. Species are matched by
// name; spiders whose id already exists are skipped along with their
// history. Derived status values in the dump are ignored.
func (s *Store) Import(ctx context.Context, data *ExportData) (*ImportResult, error) {
	if data == nil {
		return nil, invalidf("nothing to import")
	}
	result := &ImportResult{}
	err := s.withTx(ctx, "import", func(tx *sql.Tx) error {
		for _, sp := range data.Species {
			res, err := s.execHook(ctx, tx, `INSERT OR IGNORE INTO species (name) VALUES (?)`, sp.Name)
			if err != nil {
				return storageErr("import species", err)
			}
			n, _ := res.RowsAffected()
			result.SpeciesImported += int(n)
		}

		for _, sp := range data.Spiders {
			exists, err := spiderExists(ctx, tx, sp.ID)
			if err != nil {
				return err
			}
			if exists || sp.ID == "" {
				result.SpidersSkipped++
				continue
			}

			speciesID, err := importSpeciesID(ctx, tx, sp.SpeciesName)
			if err != nil {
				return err
			}
			typ, err := ParseIndividualType(string(sp.IndividualType))
			if err != nil {
				typ = Unknown
			}
			lastFed, _ := checkDate("last_fed", sp.LastFed)
			lastMolt, _ := checkDate("last_molt", sp.LastMolt)
			freq := sp.FeedingFrequency
			if !freq.Valid() {
				freq = ""
			}
			status, next := cachedStatus(lastFed, freq)

			if _, err := s.execHook(ctx, tx,
				`INSERT INTO animal (id, name, age, species_id, individual_type, last_fed,
				                     feeding_frequency, last_molt, image_uri, is_favourite,
				                     status, next_feeding_date)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sp.ID, sp.Name, nullableString(sp.Age), speciesID, string(typ),
				nullableString(lastFed), nullableString(string(freq)),
				nullableString(lastMolt), nullableString(sp.ImageURI), sp.IsFavourite,
				status, next,
			); err != nil {
				return storageErr(fmt.Sprintf("import spider %s", sp.ID), err)
			}
			result.SpidersImported++

			// The current dates belong to the history even when the dump's
			// history lists omit them; later backfills reconcile against it.
			if lastFed != "" {
				added, err := s.insertHistory(ctx, tx, feedingTable, sp.ID, lastFed)
				if err != nil {
					return err
				}
				if added {
					result.FeedingsImported++
				}
			}
			if lastMolt != "" {
				added, err := s.insertHistory(ctx, tx, moltingTable, sp.ID, lastMolt)
				if err != nil {
					return err
				}
				if added {
					result.MoltsImported++
				}
			}

			for _, d := range sp.FeedingHistory {
				if _, err := feeding.ParseDate(d); err != nil {
					s.log.Warn("skipping malformed feeding date", "spider", sp.ID, "date", d)
					continue
				}
				added, err := s.insertHistory(ctx, tx, feedingTable, sp.ID, d)
				if err != nil {
					return err
				}
				if added {
					result.FeedingsImported++
				}
			}
			for _, d := range sp.MoltingHistory {
				if _, err := feeding.ParseDate(d); err != nil {
					s.log.Warn("skipping malformed molt date", "spider", sp.ID, "date", d)
					continue
				}
				added, err := s.insertHistory(ctx, tx, moltingTable, sp.ID, d)
				if err != nil {
					return err
				}
				if added {
					result.MoltsImported++
				}
			}
			for _, doc := range sp.Documents {
				outcome, err := s.attachDocument(ctx, tx, sp.ID, doc.URI)
				if err != nil {
					return err
				}
				if outcome == attachAdded {
					result.DocumentsImported++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.species.Flush()
	return result, nil
}

func importSpeciesID(ctx context.Context, q queryer, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM species WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("import: species lookup", err)
	}
	return &id, nil
}

// Stats returns aggregate counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	st := &Stats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM animal`, &st.Spiders},
		{`SELECT COUNT(*) FROM animal WHERE is_favourite = 1`, &st.Favourites},
		{`SELECT COUNT(*) FROM species`, &st.Species},
		{`SELECT COUNT(*) FROM feeding_history`, &st.Feedings},
		{`SELECT COUNT(*) FROM molting_history`, &st.Molts},
		{`SELECT COUNT(*) FROM documents`, &st.Documents},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, storageErr("stats", err)
		}
	}
	return st, nil
}

// RefreshCachedStatus rewrites the display cache columns for every spider
// whose stored status or next feeding date is stale. It returns the number
// of rows changed.
func (s *Store) RefreshCachedStatus(ctx context.Context) (int, error) {
	changed := 0
	err := s.withTx(ctx, "refresh status", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, COALESCE(last_fed, ''), COALESCE(feeding_frequency, ''),
			        COALESCE(status, ''), COALESCE(next_feeding_date, '')
			 FROM animal`)
		if err != nil {
			return storageErr("refresh status: read", err)
		}
		type stale struct {
			id           string
			status, next *string
		}
		var updates []stale
		for rows.Next() {
			var id, lastFed, freq, oldStatus, oldNext string
			if err := rows.Scan(&id, &lastFed, &freq, &oldStatus, &oldNext); err != nil {
				_ = rows.Close()
				return storageErr("refresh status: scan", err)
			}
			status, next := cachedStatus(lastFed, feeding.Frequency(freq))
			if deref(status) != oldStatus || deref(next) != oldNext {
				updates = append(updates, stale{id: id, status: status, next: next})
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return storageErr("refresh status: read", err)
		}
		_ = rows.Close()

		for _, u := range updates {
			if _, err := s.execHook(ctx, tx,
				`UPDATE animal SET status = ?, next_feeding_date = ? WHERE id = ?`,
				u.status, u.next, u.id,
			); err != nil {
				return storageErr("refresh status: update", err)
			}
		}
		changed = len(updates)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
