package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/angelos/kbsync/internal/models"
)

// CreateWebsite inserts a website and its study program associations.
func (s *SQLiteStorage) CreateWebsite(ctx context.Context, w *models.Website) error {
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO websites (id, org_id, title, link, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.OrgID, w.Title, w.Link, w.ContentHash, w.CreatedAt, w.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert website: %w", err)
	}
	if err := replaceAssociations(ctx, tx, "website_study_programs", "website_id", w.ID, w.StudyPrograms); err != nil {
		return err
	}
	return tx.Commit()
}

// GetWebsite returns a website by id with its study programs.
func (s *SQLiteStorage) GetWebsite(ctx context.Context, id string) (*models.Website, error) {
	var w models.Website
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, title, link, content_hash, created_at, updated_at
		 FROM websites WHERE id = ?`, id,
	).Scan(&w.ID, &w.OrgID, &w.Title, &w.Link, &w.ContentHash, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("website %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if w.StudyPrograms, err = s.associatedStudyPrograms(ctx, "website_study_programs", "website_id", w.ID); err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateWebsite updates a website row and replaces its associations.
func (s *SQLiteStorage) UpdateWebsite(ctx context.Context, w *models.Website) error {
	w.UpdatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE websites SET title = ?, link = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
		w.Title, w.Link, w.ContentHash, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("website %s: %w", w.ID, ErrNotFound)
	}
	if err := replaceAssociations(ctx, tx, "website_study_programs", "website_id", w.ID, w.StudyPrograms); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteWebsite removes a website by id; join rows cascade.
func (s *SQLiteStorage) DeleteWebsite(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM websites WHERE id = ?`, id)
	return err
}

// ListWebsitesByOrg returns an organisation's websites ordered by creation time.
func (s *SQLiteStorage) ListWebsitesByOrg(ctx context.Context, orgID int64) ([]*models.Website, error) {
	return s.queryWebsites(ctx,
		`SELECT id, org_id, title, link, content_hash, created_at, updated_at
		 FROM websites WHERE org_id = ? ORDER BY created_at`, orgID)
}

// ListWebsitesByStudyProgram returns websites referencing the study program.
func (s *SQLiteStorage) ListWebsitesByStudyProgram(ctx context.Context, spID int64) ([]*models.Website, error) {
	return s.queryWebsites(ctx,
		`SELECT w.id, w.org_id, w.title, w.link, w.content_hash, w.created_at, w.updated_at
		 FROM websites w
		 JOIN website_study_programs j ON j.website_id = w.id
		 WHERE j.study_program_id = ? ORDER BY w.created_at`, spID)
}

// ListWebsitesByOnlyStudyProgram returns websites whose sole study program is
// the given one.
func (s *SQLiteStorage) ListWebsitesByOnlyStudyProgram(ctx context.Context, spID int64) ([]*models.Website, error) {
	return s.queryWebsites(ctx,
		`SELECT w.id, w.org_id, w.title, w.link, w.content_hash, w.created_at, w.updated_at
		 FROM websites w
		 JOIN website_study_programs j ON j.website_id = w.id
		 WHERE j.study_program_id = ?
		   AND (SELECT COUNT(*) FROM website_study_programs j2 WHERE j2.website_id = w.id) = 1
		 ORDER BY w.created_at`, spID)
}

func (s *SQLiteStorage) queryWebsites(ctx context.Context, query string, args ...any) ([]*models.Website, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Website
	for rows.Next() {
		var w models.Website
		if err := rows.Scan(&w.ID, &w.OrgID, &w.Title, &w.Link, &w.ContentHash, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, w := range out {
		if w.StudyPrograms, err = s.associatedStudyPrograms(ctx, "website_study_programs", "website_id", w.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CreateDocument inserts a document and its study program associations.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, d *models.Document) error {
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, org_id, title, filename, original_filename, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrgID, d.Title, d.Filename, d.OriginalFilename, d.ContentHash, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	if err := replaceAssociations(ctx, tx, "document_study_programs", "document_id", d.ID, d.StudyPrograms); err != nil {
		return err
	}
	return tx.Commit()
}

// GetDocument returns a document by id with its study programs.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, title, filename, original_filename, content_hash, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.OrgID, &d.Title, &d.Filename, &d.OriginalFilename, &d.ContentHash, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if d.StudyPrograms, err = s.associatedStudyPrograms(ctx, "document_study_programs", "document_id", d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDocument updates a document row and replaces its associations.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, d *models.Document) error {
	d.UpdatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET title = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
		d.Title, d.ContentHash, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", d.ID, ErrNotFound)
	}
	if err := replaceAssociations(ctx, tx, "document_study_programs", "document_id", d.ID, d.StudyPrograms); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDocument removes a document by id; join rows cascade.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocumentsByOrg returns an organisation's documents ordered by creation time.
func (s *SQLiteStorage) ListDocumentsByOrg(ctx context.Context, orgID int64) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT id, org_id, title, filename, original_filename, content_hash, created_at, updated_at
		 FROM documents WHERE org_id = ? ORDER BY created_at`, orgID)
}

// ListDocumentsByStudyProgram returns documents referencing the study program.
func (s *SQLiteStorage) ListDocumentsByStudyProgram(ctx context.Context, spID int64) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT d.id, d.org_id, d.title, d.filename, d.original_filename, d.content_hash, d.created_at, d.updated_at
		 FROM documents d
		 JOIN document_study_programs j ON j.document_id = d.id
		 WHERE j.study_program_id = ? ORDER BY d.created_at`, spID)
}

// ListDocumentsByOnlyStudyProgram returns documents whose sole study program
// is the given one.
func (s *SQLiteStorage) ListDocumentsByOnlyStudyProgram(ctx context.Context, spID int64) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT d.id, d.org_id, d.title, d.filename, d.original_filename, d.content_hash, d.created_at, d.updated_at
		 FROM documents d
		 JOIN document_study_programs j ON j.document_id = d.id
		 WHERE j.study_program_id = ?
		   AND (SELECT COUNT(*) FROM document_study_programs j2 WHERE j2.document_id = d.id) = 1
		 ORDER BY d.created_at`, spID)
}

func (s *SQLiteStorage) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.OrgID, &d.Title, &d.Filename, &d.OriginalFilename, &d.ContentHash, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, d := range out {
		if d.StudyPrograms, err = s.associatedStudyPrograms(ctx, "document_study_programs", "document_id", d.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CreateSampleQuestion inserts a sample question and its associations.
func (s *SQLiteStorage) CreateSampleQuestion(ctx context.Context, q *models.SampleQuestion) error {
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sample_questions (id, org_id, topic, question, answer, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.OrgID, q.Topic, q.Question, q.Answer, q.ContentHash, q.CreatedAt, q.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert sample question: %w", err)
	}
	if err := replaceAssociations(ctx, tx, "sample_question_study_programs", "sample_question_id", q.ID, q.StudyPrograms); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSampleQuestion returns a sample question by id with its study programs.
func (s *SQLiteStorage) GetSampleQuestion(ctx context.Context, id string) (*models.SampleQuestion, error) {
	var q models.SampleQuestion
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, topic, question, answer, content_hash, created_at, updated_at
		 FROM sample_questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.OrgID, &q.Topic, &q.Question, &q.Answer, &q.ContentHash, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sample question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if q.StudyPrograms, err = s.associatedStudyPrograms(ctx, "sample_question_study_programs", "sample_question_id", q.ID); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateSampleQuestion updates a sample question row and replaces its associations.
func (s *SQLiteStorage) UpdateSampleQuestion(ctx context.Context, q *models.SampleQuestion) error {
	q.UpdatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sample_questions SET topic = ?, question = ?, answer = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
		q.Topic, q.Question, q.Answer, q.ContentHash, q.UpdatedAt, q.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sample question %s: %w", q.ID, ErrNotFound)
	}
	if err := replaceAssociations(ctx, tx, "sample_question_study_programs", "sample_question_id", q.ID, q.StudyPrograms); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSampleQuestion removes a sample question by id; join rows cascade.
func (s *SQLiteStorage) DeleteSampleQuestion(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sample_questions WHERE id = ?`, id)
	return err
}

// ListSampleQuestionsByOrg returns an organisation's sample questions ordered
// by creation time.
func (s *SQLiteStorage) ListSampleQuestionsByOrg(ctx context.Context, orgID int64) ([]*models.SampleQuestion, error) {
	return s.querySampleQuestions(ctx,
		`SELECT id, org_id, topic, question, answer, content_hash, created_at, updated_at
		 FROM sample_questions WHERE org_id = ? ORDER BY created_at`, orgID)
}

// ListSampleQuestionsByStudyProgram returns sample questions referencing the
// study program.
func (s *SQLiteStorage) ListSampleQuestionsByStudyProgram(ctx context.Context, spID int64) ([]*models.SampleQuestion, error) {
	return s.querySampleQuestions(ctx,
		`SELECT q.id, q.org_id, q.topic, q.question, q.answer, q.content_hash, q.created_at, q.updated_at
		 FROM sample_questions q
		 JOIN sample_question_study_programs j ON j.sample_question_id = q.id
		 WHERE j.study_program_id = ? ORDER BY q.created_at`, spID)
}

// ListSampleQuestionsByOnlyStudyProgram returns sample questions whose sole
// study program is the given one.
func (s *SQLiteStorage) ListSampleQuestionsByOnlyStudyProgram(ctx context.Context, spID int64) ([]*models.SampleQuestion, error) {
	return s.querySampleQuestions(ctx,
		`SELECT q.id, q.org_id, q.topic, q.question, q.answer, q.content_hash, q.created_at, q.updated_at
		 FROM sample_questions q
		 JOIN sample_question_study_programs j ON j.sample_question_id = q.id
		 WHERE j.study_program_id = ?
		   AND (SELECT COUNT(*) FROM sample_question_study_programs j2 WHERE j2.sample_question_id = q.id) = 1
		 ORDER BY q.created_at`, spID)
}

func (s *SQLiteStorage) querySampleQuestions(ctx context.Context, query string, args ...any) ([]*models.SampleQuestion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SampleQuestion
	for rows.Next() {
		var q models.SampleQuestion
		if err := rows.Scan(&q.ID, &q.OrgID, &q.Topic, &q.Question, &q.Answer, &q.ContentHash, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, q := range out {
		if q.StudyPrograms, err = s.associatedStudyPrograms(ctx, "sample_question_study_programs", "sample_question_id", q.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// associatedStudyPrograms loads the study programs joined to one resource.
func (s *SQLiteStorage) associatedStudyPrograms(ctx context.Context, joinTable, fkColumn, resourceID string) ([]models.StudyProgram, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sp.id, sp.org_id, sp.name FROM study_programs sp
		 JOIN `+joinTable+` j ON j.study_program_id = sp.id
		 WHERE j.`+fkColumn+` = ? ORDER BY sp.id`, resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudyPrograms(rows)
}

// replaceAssociations rewrites a resource's join rows inside tx.
func replaceAssociations(ctx context.Context, tx *sql.Tx, joinTable, fkColumn, resourceID string, sps []models.StudyProgram) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM `+joinTable+` WHERE `+fkColumn+` = ?`, resourceID,
	); err != nil {
		return err
	}
	for _, sp := range sps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+joinTable+` (`+fkColumn+`, study_program_id) VALUES (?, ?)`,
			resourceID, sp.ID,
		); err != nil {
			return fmt.Errorf("failed to associate study program %d: %w", sp.ID, err)
		}
	}
	return nil
}
