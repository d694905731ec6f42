// Package sqlite provides the SQLite-backed taxonomy store.
//
// The table is loaded externally (e.g. from a taxonomy dataset export);
// this adapter only serves the navigator's equality lookups. Save exists
// on the concrete type for seeding and tests, not on the port.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/taxatag/taxatag-cli/internal/adapters/driven/taxonomy/sqlite/migrations"
	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TaxonomyStore = (*Store)(nil)

// Store is a SQLite-backed taxonomy store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the taxonomy database at dbPath.
// If dbPath is empty, defaults to ~/.taxatag/taxonomy.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".taxatag", "taxonomy.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode: the store is read-mostly but seeding may interleave.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GetByID retrieves the taxon with the given ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.TaxonRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tax_id, parent_tax_id, name, rank, common_name FROM taxa WHERE tax_id = ?`, id)
	taxon, err := scanTaxon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying taxon %d: %w", id, err)
	}
	return taxon, nil
}

// GetByName retrieves every taxon with the given name, in store order.
func (s *Store) GetByName(ctx context.Context, name string) ([]domain.TaxonRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tax_id, parent_tax_id, name, rank, common_name FROM taxa WHERE name = ? ORDER BY tax_id`, name)
	if err != nil {
		return nil, fmt.Errorf("querying taxon %q: %w", name, err)
	}
	defer rows.Close()
	return collectTaxa(rows)
}

// Children retrieves every taxon whose parent is id.
func (s *Store) Children(ctx context.Context, id int64) ([]domain.TaxonRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tax_id, parent_tax_id, name, rank, common_name FROM taxa WHERE parent_tax_id = ? ORDER BY tax_id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying children of %d: %w", id, err)
	}
	defer rows.Close()
	return collectTaxa(rows)
}

// Save inserts or replaces a taxon row. Used for seeding and tests.
func (s *Store) Save(ctx context.Context, taxon domain.TaxonRow) error {
	var parent sql.NullInt64
	if taxon.ParentID != nil {
		parent = sql.NullInt64{Int64: *taxon.ParentID, Valid: true}
	}
	var common sql.NullString
	if taxon.CommonName != "" {
		common = sql.NullString{String: taxon.CommonName, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO taxa (tax_id, parent_tax_id, name, rank, common_name) VALUES (?, ?, ?, ?, ?)`,
		taxon.ID, parent, taxon.Name, string(taxon.Rank), common)
	if err != nil {
		return fmt.Errorf("saving taxon %d: %w", taxon.ID, err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTaxon(row scannable) (*domain.TaxonRow, error) {
	var taxon domain.TaxonRow
	var parent sql.NullInt64
	var rank string
	var common sql.NullString
	if err := row.Scan(&taxon.ID, &parent, &taxon.Name, &rank, &common); err != nil {
		return nil, err
	}
	if parent.Valid {
		taxon.ParentID = &parent.Int64
	}
	taxon.Rank = domain.Rank(rank)
	taxon.CommonName = common.String
	return &taxon, nil
}

func collectTaxa(rows *sql.Rows) ([]domain.TaxonRow, error) {
	taxa := []domain.TaxonRow{}
	for rows.Next() {
		taxon, err := scanTaxon(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning taxon: %w", err)
		}
		taxa = append(taxa, *taxon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating taxa: %w", err)
	}
	return taxa, nil
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match the pattern
		}
		if version <= currentVersion {
			continue
		}

		contents, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(contents)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}
