package collection

import (
	"context"
	"database/sql"
)

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS species (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT    NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS animal (
			id                TEXT    PRIMARY KEY,
			name              TEXT    NOT NULL,
			age               TEXT,
			species_id        INTEGER,
			individual_type   TEXT    NOT NULL DEFAULT 'unknown',
			last_fed          TEXT,
			feeding_frequency TEXT,
			last_molt         TEXT,
			image_uri         TEXT,
			is_favourite      INTEGER NOT NULL DEFAULT 0,
			status            TEXT,
			next_feeding_date TEXT,
			FOREIGN KEY (species_id) REFERENCES species(id) ON DELETE SET NULL
		);

		CREATE INDEX IF NOT EXISTS idx_animal_species ON animal(species_id);
		CREATE INDEX IF NOT EXISTS idx_animal_name    ON animal(name);

		CREATE TABLE IF NOT EXISTS feeding_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			animal_id TEXT    NOT NULL,
			fed_at    TEXT    NOT NULL,
			FOREIGN KEY (animal_id) REFERENCES animal(id) ON DELETE CASCADE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_feeding_unique ON feeding_history(animal_id, fed_at);

		CREATE TABLE IF NOT EXISTS molting_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			animal_id TEXT    NOT NULL,
			molted_at TEXT    NOT NULL,
			FOREIGN KEY (animal_id) REFERENCES animal(id) ON DELETE CASCADE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_molting_unique ON molting_history(animal_id, molted_at);

		CREATE TABLE IF NOT EXISTS documents (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			animal_id TEXT    NOT NULL,
			uri       TEXT    NOT NULL,
			FOREIGN KEY (animal_id) REFERENCES animal(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_documents_animal ON documents(animal_id);
	`
	_, err := s.execHook(ctx, s.db, schema)
	return err
}

// defaultSpecies is inserted verbatim the first time the database is
// created.
var defaultSpecies = []string{
	"Acanthoscurria geniculata",
	"Aphonopelma chalcodes",
	"Aphonopelma seemanni",
	"Avicularia avicularia",
	"Brachypelma albopilosum",
	"Brachypelma boehmei",
	"Brachypelma emilia",
	"Brachypelma hamorii",
	"Brachypelma smithi",
	"Caribena versicolor",
	"Ceratogyrus darlingi",
	"Chilobrachys fimbriatus",
	"Chromatopelma cyaneopubescens",
	"Cyriopagopus lividus",
	"Davus pentaloris",
	"Ephebopus murinus",
	"Euathlus parvulus",
	"Grammostola pulchra",
	"Grammostola pulchripes",
	"Grammostola rosea",
	"Harpactira pulchripes",
	"Heteroscodra maculata",
	"Hapalopus formosus",
	"Lasiodora parahybana",
	"Monocentropus balfouri",
	"Neoholothele incei",
	"Nhandu chromatus",
	"Omothymus violaceopes",
	"Phormictopus cancerides",
	"Poecilotheria metallica",
	"Poecilotheria regalis",
	"Psalmopoeus irminia",
	"Pterinochilus murinus",
	"Tliltocatl albopilosus",
	"Tliltocatl vagans",
	"Theraphosa blondi",
}

// seedSpecies inserts the default list when the species table is empty.
// It returns the number of rows inserted.
func (s *Store) seedSpecies(ctx context.Context) (int, error) {
	inserted := 0
	err := s.withTx(ctx, "seed species", func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM species`).Scan(&count); err != nil {
			return storageErr("seed species: count", err)
		}
		if count > 0 {
			return nil
		}
		for _, name := range defaultSpecies {
			if _, err := s.execHook(ctx, tx, `INSERT INTO species (name) VALUES (?)`, name); err != nil {
				return storageErr("seed species: insert", err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.log.Info("seeded species list", "count", inserted)
	}
	return inserted, nil
}
