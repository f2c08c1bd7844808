package collection

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/history"
)

type historyTable struct {
	name   string
	column string
}

var (
	feedingTable = historyTable{name: "feeding_history", column: "fed_at"}
	moltingTable = historyTable{name: "molting_history", column: "molted_at"}
)

const spiderColumns = `
	a.id, a.name, COALESCE(a.age, ''), a.species_id, COALESCE(sp.name, ''),
	a.individual_type, COALESCE(a.last_fed, ''), COALESCE(a.feeding_frequency, ''),
	COALESCE(a.last_molt, ''), COALESCE(a.image_uri, ''), a.is_favourite`

const spiderFrom = `FROM animal a LEFT JOIN species sp ON sp.id = a.species_id`

// ─── Writes ─────────────────────────────────────────────────────────────────

// AddSpider inserts a spider and returns its id. Supplied last fed and last
// molt dates are also written to the history tables, and documents are
// attached up to the cap, all in one transaction.
func (s *Store) AddSpider(ctx context.Context, n NewSpider) (string, error) {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return "", invalidf("name is required")
	}
	typ, err := ParseIndividualType(string(n.IndividualType))
	if err != nil {
		return "", invalidf("%v", err)
	}
	if n.FeedingFrequency != "" && !n.FeedingFrequency.Valid() {
		return "", invalidf("unknown feeding frequency %q", n.FeedingFrequency)
	}
	lastFed, err := checkDate("last_fed", n.LastFed)
	if err != nil {
		return "", err
	}
	lastMolt, err := checkDate("last_molt", n.LastMolt)
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(n.ID)
	err = s.withTx(ctx, "add spider", func(tx *sql.Tx) error {
		if id == "" {
			if id, err = nextSpiderID(ctx, tx); err != nil {
				return err
			}
		} else if exists, err := spiderExists(ctx, tx, id); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("spider %q: %w", id, ErrConflict)
		}
		if n.SpeciesID != nil {
			if err := s.requireSpecies(ctx, tx, *n.SpeciesID); err != nil {
				return err
			}
		}

		status, next := cachedStatus(lastFed, n.FeedingFrequency)
		if _, err := s.execHook(ctx, tx,
			`INSERT INTO animal (id, name, age, species_id, individual_type, last_fed,
			                     feeding_frequency, last_molt, image_uri, is_favourite,
			                     status, next_feeding_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, name, nullableString(n.Age), n.SpeciesID, string(typ),
			nullableString(lastFed), nullableString(string(n.FeedingFrequency)),
			nullableString(lastMolt), nullableString(n.ImageURI), n.IsFavourite,
			status, next,
		); err != nil {
			return storageErr("add spider: insert", err)
		}

		if lastFed != "" {
			if _, err := s.insertHistory(ctx, tx, feedingTable, id, lastFed); err != nil {
				return err
			}
		}
		if lastMolt != "" {
			if _, err := s.insertHistory(ctx, tx, moltingTable, id, lastMolt); err != nil {
				return err
			}
		}
		for _, uri := range n.Documents {
			if _, err := s.attachDocument(ctx, tx, id, uri); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Debug("spider added", "spider", id)
	return id, nil
}

// UpdateSpider applies a partial update. A supplied last fed or last molt
// date is first reconciled with the spider's history: new dates get a
// history row and the stored value only moves forward in time. Documents
// are attached up to the cap. Everything commits together or not at all.
func (s *Store) UpdateSpider(ctx context.Context, id string, u SpiderUpdate) (*UpdateResult, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, invalidf("name cannot be empty")
	}
	if u.FeedingFrequency != nil && *u.FeedingFrequency != "" && !u.FeedingFrequency.Valid() {
		return nil, invalidf("unknown feeding frequency %q", *u.FeedingFrequency)
	}
	var typ IndividualType
	if u.IndividualType != nil {
		t, err := ParseIndividualType(string(*u.IndividualType))
		if err != nil {
			return nil, invalidf("%v", err)
		}
		typ = t
	}
	lastFed, err := checkDate("last_fed", deref(u.LastFed))
	if err != nil {
		return nil, err
	}
	lastMolt, err := checkDate("last_molt", deref(u.LastMolt))
	if err != nil {
		return nil, err
	}

	res := &UpdateResult{}
	err = s.withTx(ctx, "update spider", func(tx *sql.Tx) error {
		sp, err := s.loadSpider(ctx, tx, id)
		if err != nil {
			return err
		}

		if lastFed != "" {
			current, added, err := s.reconcile(ctx, tx, feedingTable, id, lastFed)
			if err != nil {
				return err
			}
			sp.LastFed, res.FeedingAdded = current, added
		}
		if lastMolt != "" {
			current, added, err := s.reconcile(ctx, tx, moltingTable, id, lastMolt)
			if err != nil {
				return err
			}
			sp.LastMolt, res.MoltAdded = current, added
		}

		if u.Name != nil {
			sp.Name = strings.TrimSpace(*u.Name)
		}
		if u.Age != nil {
			sp.Age = strings.TrimSpace(*u.Age)
		}
		if u.IndividualType != nil {
			sp.IndividualType = typ
		}
		if u.FeedingFrequency != nil {
			sp.FeedingFrequency = *u.FeedingFrequency
		}
		if u.ImageURI != nil {
			sp.ImageURI = strings.TrimSpace(*u.ImageURI)
		}
		if u.IsFavourite != nil {
			sp.IsFavourite = *u.IsFavourite
		}
		switch {
		case u.ClearSpecies:
			sp.SpeciesID = nil
		case u.SpeciesID != nil:
			if err := s.requireSpecies(ctx, tx, *u.SpeciesID); err != nil {
				return err
			}
			sp.SpeciesID = u.SpeciesID
		}

		for _, uri := range u.AddDocuments {
			outcome, err := s.attachDocument(ctx, tx, id, uri)
			if err != nil {
				return err
			}
			if outcome == attachCapped {
				res.DocumentsRejected = append(res.DocumentsRejected, uri)
			}
		}

		status, next := cachedStatus(sp.LastFed, sp.FeedingFrequency)
		if _, err := s.execHook(ctx, tx,
			`UPDATE animal
			 SET name = ?,
			     age = ?,
			     species_id = ?,
			     individual_type = ?,
			     last_fed = ?,
			     feeding_frequency = ?,
			     last_molt = ?,
			     image_uri = ?,
			     is_favourite = ?,
			     status = ?,
			     next_feeding_date = ?
			 WHERE id = ?`,
			sp.Name, nullableString(sp.Age), sp.SpeciesID, string(sp.IndividualType),
			nullableString(sp.LastFed), nullableString(string(sp.FeedingFrequency)),
			nullableString(sp.LastMolt), nullableString(sp.ImageURI), sp.IsFavourite,
			status, next, id,
		); err != nil {
			return storageErr("update spider: update row", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Spider, err = s.GetSpider(ctx, id)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RecordFeeding confirms a feeding on date (canonical layout).
func (s *Store) RecordFeeding(ctx context.Context, id, date string) (*UpdateResult, error) {
	if strings.TrimSpace(date) == "" {
		return nil, invalidf("feeding date is required")
	}
	return s.UpdateSpider(ctx, id, SpiderUpdate{LastFed: &date})
}

// RecordMolt confirms a molt on date (canonical layout).
func (s *Store) RecordMolt(ctx context.Context, id, date string) (*UpdateResult, error) {
	if strings.TrimSpace(date) == "" {
		return nil, invalidf("molt date is required")
	}
	return s.UpdateSpider(ctx, id, SpiderUpdate{LastMolt: &date})
}

// SetFavourite flags or unflags a spider.
func (s *Store) SetFavourite(ctx context.Context, id string, favourite bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := s.execHook(ctx, db, `UPDATE animal SET is_favourite = ? WHERE id = ?`, favourite, id)
	if err != nil {
		return storageErr("set favourite", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("spider %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSpider removes a spider. Its history rows and documents go with it
// through ON DELETE CASCADE.
func (s *Store) DeleteSpider(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := s.execHook(ctx, db, `DELETE FROM animal WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete spider", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("spider %q: %w", id, ErrNotFound)
	}
	s.log.Debug("spider deleted", "spider", id)
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// GetSpider returns a spider with its species name, feeding and molting
// history (newest first) and documents. Status and next feeding date are
// recomputed from the current date.
func (s *Store) GetSpider(ctx context.Context, id string) (*Spider, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	sp, err := s.loadSpider(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if sp.FeedingHistory, err = s.historyDates(ctx, db, feedingTable, id, "DESC"); err != nil {
		return nil, err
	}
	if sp.MoltingHistory, err = s.historyDates(ctx, db, moltingTable, id, "DESC"); err != nil {
		return nil, err
	}
	if sp.Documents, err = s.documents(ctx, db, id); err != nil {
		return nil, err
	}
	derive(sp)
	return sp, nil
}

// ListSpiders returns spiders without history or documents, filtered and
// ordered by opts. Status filtering and ordering use the derived status.
func (s *Store) ListSpiders(ctx context.Context, opts ListOptions) ([]Spider, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(opts.Query); q != "" {
		where = append(where, `a.name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}
	if opts.SpeciesID != nil {
		where = append(where, "a.species_id = ?")
		args = append(args, *opts.SpeciesID)
	}
	if opts.FavouritesOnly {
		where = append(where, "a.is_favourite = 1")
	}
	query := "SELECT " + spiderColumns + " " + spiderFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list spiders", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Spider
	for rows.Next() {
		sp, err := scanSpider(rows)
		if err != nil {
			return nil, storageErr("list spiders: scan", err)
		}
		derive(sp)
		if opts.Status != "" && sp.Status != opts.Status {
			continue
		}
		out = append(out, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list spiders", err)
	}

	sortSpiders(out, opts.SortBy, opts.Descending)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *Store) loadSpider(ctx context.Context, q queryer, id string) (*Spider, error) {
	row := q.QueryRowContext(ctx, "SELECT "+spiderColumns+" "+spiderFrom+" WHERE a.id = ?", id)
	sp, err := scanSpider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spider %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("load spider", err)
	}
	return sp, nil
}

func scanSpider(sc interface{ Scan(dest ...any) error }) (*Spider, error) {
	var (
		sp        Spider
		speciesID sql.NullInt64
		typ, freq string
	)
	if err := sc.Scan(
		&sp.ID, &sp.Name, &sp.Age, &speciesID, &sp.SpeciesName,
		&typ, &sp.LastFed, &freq, &sp.LastMolt, &sp.ImageURI, &sp.IsFavourite,
	); err != nil {
		return nil, err
	}
	if speciesID.Valid {
		v := speciesID.Int64
		sp.SpeciesID = &v
	}
	sp.IndividualType = IndividualType(typ)
	sp.FeedingFrequency = feeding.Frequency(freq)
	return &sp, nil
}

// derive fills the status fields from the current date. Stored values are
// never trusted.
func derive(sp *Spider) {
	sp.Status = ""
	if st, ok := feeding.StatusAt(sp.LastFed, sp.FeedingFrequency, timeNow()); ok {
		sp.Status = st
	}
	sp.NextFeedingDate = feeding.NextFeedingDate(sp.LastFed, sp.FeedingFrequency)
}

// cachedStatus returns the display cache values for the status columns.
func cachedStatus(lastFed string, f feeding.Frequency) (status, next *string) {
	if st, ok := feeding.StatusAt(lastFed, f, timeNow()); ok {
		v := string(st)
		status = &v
	}
	return status, nullableString(feeding.NextFeedingDate(lastFed, f))
}

func (s *Store) reconcile(ctx context.Context, tx *sql.Tx, t historyTable, id, date string) (string, bool, error) {
	existing, err := s.historyDates(ctx, tx, t, id, "ASC")
	if err != nil {
		return "", false, err
	}
	r := history.Reconcile(existing, date)
	if !r.Added {
		s.log.Warn("date already recorded, skipping history row",
			"spider", id, "table", t.name, "date", date)
		return r.Current, false, nil
	}
	if _, err := s.insertHistory(ctx, tx, t, id, date); err != nil {
		return "", false, err
	}
	return r.Current, true, nil
}

func (s *Store) historyDates(ctx context.Context, q queryer, t historyTable, id, order string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE animal_id = ? ORDER BY %s %s, id %s`,
			t.column, t.name, t.column, order, order),
		id,
	)
	if err != nil {
		return nil, storageErr("read "+t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, storageErr("scan "+t.name, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read "+t.name, err)
	}
	return out, nil
}

// insertHistory writes a history row. A duplicate is a no-op.
func (s *Store) insertHistory(ctx context.Context, tx *sql.Tx, t historyTable, id, date string) (bool, error) {
	res, err := s.execHook(ctx, tx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (animal_id, %s) VALUES (?, ?)`, t.name, t.column),
		id, date,
	)
	if err != nil {
		return false, storageErr("insert "+t.name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func spiderExists(ctx context.Context, q queryer, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM animal WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("check spider", err)
	}
	return true, nil
}

// nextSpiderID derives an id from the creation time in milliseconds,
// bumping it until it is free.
func nextSpiderID(ctx context.Context, q queryer) (string, error) {
	base := timeNow().UnixMilli()
	for {
		id := strconv.FormatInt(base, 10)
		exists, err := spiderExists(ctx, q, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		base++
	}
}

func sortSpiders(list []Spider, key SortKey, desc bool) {
	byName := func(a, b Spider) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	}
	var primary func(a, b Spider) int
	switch key {
	case SortByLastFed:
		primary = func(a, b Spider) int { return compareDates(a.LastFed, b.LastFed, desc) }
	case SortByNextFeeding:
		primary = func(a, b Spider) int { return compareDates(a.NextFeedingDate, b.NextFeedingDate, desc) }
	case SortByStatus:
		primary = func(a, b Spider) int {
			c := cmp.Compare(a.Status.Rank(), b.Status.Rank())
			if desc {
				c = -c
			}
			return cmp.Or(c, compareDates(a.NextFeedingDate, b.NextFeedingDate, false))
		}
	case SortBySpecies:
		primary = func(a, b Spider) int {
			if (a.SpeciesName == "") != (b.SpeciesName == "") {
				if a.SpeciesName == "" {
					return 1
				}
				return -1
			}
			c := cmp.Compare(strings.ToLower(a.SpeciesName), strings.ToLower(b.SpeciesName))
			if desc {
				c = -c
			}
			return c
		}
	default:
		primary = func(a, b Spider) int {
			c := byName(a, b)
			if desc {
				c = -c
			}
			return c
		}
	}
	slices.SortStableFunc(list, func(a, b Spider) int {
		return cmp.Or(primary(a, b), byName(a, b))
	})
}

// compareDates orders canonical dates; empty values always sort last.
func compareDates(a, b string, desc bool) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	c := cmp.Compare(a, b)
	if desc {
		c = -c
	}
	return c
}

// checkDate validates an optional canonical date.
func checkDate(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	t, err := feeding.ParseDate(v)
	if err != nil {
		return "", invalidf("%s: %v", field, err)
	}
	return feeding.FormatDate(t), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
