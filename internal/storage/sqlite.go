// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/angelos/kbsync/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// foreign keys must be on for every pooled connection: organisation and
	// study program deletion cascade through them
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS organisations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS study_programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id INTEGER NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		UNIQUE(org_id, name)
	);

	CREATE TABLE IF NOT EXISTS websites (
		id TEXT PRIMARY KEY,
		org_id INTEGER NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_websites_org_id ON websites(org_id);

	CREATE TABLE IF NOT EXISTS website_study_programs (
		website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
		study_program_id INTEGER NOT NULL REFERENCES study_programs(id) ON DELETE CASCADE,
		PRIMARY KEY (website_id, study_program_id)
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		org_id INTEGER NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_org_id ON documents(org_id);

	CREATE TABLE IF NOT EXISTS document_study_programs (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		study_program_id INTEGER NOT NULL REFERENCES study_programs(id) ON DELETE CASCADE,
		PRIMARY KEY (document_id, study_program_id)
	);

	CREATE TABLE IF NOT EXISTS sample_questions (
		id TEXT PRIMARY KEY,
		org_id INTEGER NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
		topic TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sample_questions_org_id ON sample_questions(org_id);

	CREATE TABLE IF NOT EXISTS sample_question_study_programs (
		sample_question_id TEXT NOT NULL REFERENCES sample_questions(id) ON DELETE CASCADE,
		study_program_id INTEGER NOT NULL REFERENCES study_programs(id) ON DELETE CASCADE,
		PRIMARY KEY (sample_question_id, study_program_id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateOrganisation inserts an organisation and returns it with its id.
func (s *SQLiteStorage) CreateOrganisation(ctx context.Context, name string) (*models.Organisation, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO organisations (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create organisation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Organisation{ID: id, Name: name}, nil
}

// GetOrganisation returns an organisation by id.
func (s *SQLiteStorage) GetOrganisation(ctx context.Context, id int64) (*models.Organisation, error) {
	var org models.Organisation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM organisations WHERE id = ?`, id,
	).Scan(&org.ID, &org.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("organisation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganisationByName returns an organisation by its unique name.
func (s *SQLiteStorage) GetOrganisationByName(ctx context.Context, name string) (*models.Organisation, error) {
	var org models.Organisation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM organisations WHERE name = ?`, name,
	).Scan(&org.ID, &org.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("organisation %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ListOrganisations returns all organisations ordered by id.
func (s *SQLiteStorage) ListOrganisations(ctx context.Context) ([]*models.Organisation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM organisations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organisation
	for rows.Next() {
		var org models.Organisation
		if err := rows.Scan(&org.ID, &org.Name); err != nil {
			return nil, err
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

// DeleteOrganisation removes an organisation; foreign keys cascade to its
// study programs and resources.
func (s *SQLiteStorage) DeleteOrganisation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM organisations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("organisation %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateStudyProgram inserts a study program for an organisation.
func (s *SQLiteStorage) CreateStudyProgram(ctx context.Context, orgID int64, name string) (*models.StudyProgram, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO study_programs (org_id, name) VALUES (?, ?)`, orgID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create study program: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.StudyProgram{ID: id, OrgID: orgID, Name: name}, nil
}

// GetStudyProgram returns a study program by id.
func (s *SQLiteStorage) GetStudyProgram(ctx context.Context, id int64) (*models.StudyProgram, error) {
	var sp models.StudyProgram
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, name FROM study_programs WHERE id = ?`, id,
	).Scan(&sp.ID, &sp.OrgID, &sp.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("study program %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListStudyProgramsByOrg returns an organisation's study programs ordered by name.
func (s *SQLiteStorage) ListStudyProgramsByOrg(ctx context.Context, orgID int64) ([]models.StudyProgram, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, name FROM study_programs WHERE org_id = ? ORDER BY name`, orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudyPrograms(rows)
}

// GetStudyProgramsByIDs returns the study programs matching ids. Missing ids
// are simply absent from the result; callers validate completeness.
func (s *SQLiteStorage) GetStudyProgramsByIDs(ctx context.Context, ids []int64) ([]models.StudyProgram, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, org_id, name FROM study_programs WHERE id IN (?` +
		repeatPlaceholder(len(ids)-1) + `) ORDER BY id`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudyPrograms(rows)
}

// StudyProgramExists reports whether an organisation already has a study
// program with the given name.
func (s *SQLiteStorage) StudyProgramExists(ctx context.Context, orgID int64, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM study_programs WHERE org_id = ? AND name = ?`, orgID, name,
	).Scan(&count)
	return count > 0, err
}

// DeleteStudyProgram removes a study program; join rows cascade.
func (s *SQLiteStorage) DeleteStudyProgram(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM study_programs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("study program %d: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanStudyPrograms(rows *sql.Rows) ([]models.StudyProgram, error) {
	var sps []models.StudyProgram
	for rows.Next() {
		var sp models.StudyProgram
		if err := rows.Scan(&sp.ID, &sp.OrgID, &sp.Name); err != nil {
			return nil, err
		}
		sps = append(sps, sp)
	}
	return sps, rows.Err()
}

// repeatPlaceholder returns n copies of ",?" for IN clauses.
func repeatPlaceholder(n int) string {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, ",?"...)
	}
	return string(b)
}
