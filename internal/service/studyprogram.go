package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
)

// StudyProgramService manages study programs and the cascade that keeps both
// stores consistent when one is deleted.
type StudyProgramService struct {
	store  storage.Storage
	files  *storage.FileStore
	index  angelos.Client
	logger *zap.Logger
}

// NewStudyProgramService creates a StudyProgramService.
func NewStudyProgramService(store storage.Storage, files *storage.FileStore, index angelos.Client, logger *zap.Logger) *StudyProgramService {
	return &StudyProgramService{store: store, files: files, index: index, logger: logger}
}

// Create adds a study program to the tenant's organisation. Names are unique
// within an organisation.
func (s *StudyProgramService) Create(ctx context.Context, tenant models.TenantContext, name string) (*models.StudyProgram, error) {
	if name == "" {
		return nil, &ValidationError{Reason: "study program name must not be empty"}
	}
	exists, err := s.store.StudyProgramExists(ctx, tenant.OrgID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ValidationError{Reason: fmt.Sprintf("study program %q already exists", name)}
	}
	sp, err := s.store.CreateStudyProgram(ctx, tenant.OrgID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create study program: %w", err)
	}
	return sp, nil
}

// List returns the tenant organisation's study programs.
func (s *StudyProgramService) List(ctx context.Context, tenant models.TenantContext) ([]models.StudyProgram, error) {
	return s.store.ListStudyProgramsByOrg(ctx, tenant.OrgID)
}

// Delete removes a study program and cascades to the resources referencing
// it. Resources whose only study program it is are deleted on both sides;
// resources carrying other study programs as well are merely detached
// locally. Local changes commit first; the remote batch deletes follow. A
// remote failure after the local commit leaves the index with stale entries
// and is reported for manual reconciliation.
func (s *StudyProgramService) Delete(ctx context.Context, tenant models.TenantContext, id int64) error {
	sp, err := s.store.GetStudyProgram(ctx, id)
	if err != nil {
		return mapNotFound(err, "study program", fmt.Sprint(id))
	}
	if err := authorize(tenant, sp.OrgID); err != nil {
		return err
	}

	websiteIDs, err := s.cascadeWebsites(ctx, sp.ID)
	if err != nil {
		return err
	}
	documentIDs, err := s.cascadeDocuments(ctx, sp.ID)
	if err != nil {
		return err
	}
	questionIDs, err := s.cascadeSampleQuestions(ctx, sp.ID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteStudyProgram(ctx, sp.ID); err != nil {
		return fmt.Errorf("failed to delete study program: %w", err)
	}

	return remoteBatchDelete(ctx, s.index, s.logger, websiteIDs, documentIDs, questionIDs)
}

// cascadeWebsites detaches multi-tagged websites from the study program and
// deletes single-tagged ones locally, returning the deleted ids.
func (s *StudyProgramService) cascadeWebsites(ctx context.Context, spID int64) ([]string, error) {
	only, err := s.store.ListWebsitesByOnlyStudyProgram(ctx, spID)
	if err != nil {
		return nil, err
	}
	onlyIDs := make(map[string]bool, len(only))
	var deleted []string
	for _, w := range only {
		if err := s.store.DeleteWebsite(ctx, w.ID); err != nil {
			return nil, err
		}
		onlyIDs[w.ID] = true
		deleted = append(deleted, w.ID)
	}

	all, err := s.store.ListWebsitesByStudyProgram(ctx, spID)
	if err != nil {
		return nil, err
	}
	for _, w := range all {
		if onlyIDs[w.ID] {
			continue
		}
		w.StudyPrograms = withoutStudyProgram(w.StudyPrograms, spID)
		if err := s.store.UpdateWebsite(ctx, w); err != nil {
			return nil, err
		}
	}
	return deleted, nil
}

func (s *StudyProgramService) cascadeDocuments(ctx context.Context, spID int64) ([]string, error) {
	only, err := s.store.ListDocumentsByOnlyStudyProgram(ctx, spID)
	if err != nil {
		return nil, err
	}
	onlyIDs := make(map[string]bool, len(only))
	var deleted []string
	for _, d := range only {
		if err := s.store.DeleteDocument(ctx, d.ID); err != nil {
			return nil, err
		}
		if err := s.files.Delete(d.Filename); err != nil {
			s.logger.Warn("failed to remove stored file during cascade",
				zap.String("filename", d.Filename), zap.Error(err))
		}
		onlyIDs[d.ID] = true
		deleted = append(deleted, d.ID)
	}

	all, err := s.store.ListDocumentsByStudyProgram(ctx, spID)
	if err != nil {
		return nil, err
	}
	for _, d := range all {
		if onlyIDs[d.ID] {
			continue
		}
		d.StudyPrograms = withoutStudyProgram(d.StudyPrograms, spID)
		if err := s.store.UpdateDocument(ctx, d); err != nil {
			return nil, err
		}
	}
	return deleted, nil
}

func (s *StudyProgramService) cascadeSampleQuestions(ctx context.Context, spID int64) ([]string, error) {
	only, err := s.store.ListSampleQuestionsByOnlyStudyProgram(ctx, spID)
	if err != nil {
		return nil, err
	}
	onlyIDs := make(map[string]bool, len(only))
	var deleted []string
	for _, q := range only {
		if err := s.store.DeleteSampleQuestion(ctx, q.ID); err != nil {
			return nil, err
		}
		onlyIDs[q.ID] = true
		deleted = append(deleted, q.ID)
	}

	all, err := s.store.ListSampleQuestionsByStudyProgram(ctx, spID)
	if err != nil {
		return nil, err
	}
	for _, q := range all {
		if onlyIDs[q.ID] {
			continue
		}
		q.StudyPrograms = withoutStudyProgram(q.StudyPrograms, spID)
		if err := s.store.UpdateSampleQuestion(ctx, q); err != nil {
			return nil, err
		}
	}
	return deleted, nil
}

// remoteBatchDelete issues the three batch deletes against the remote index.
// On failure the local state is already committed, so the discrepancy can
// only be fixed by hand.
func remoteBatchDelete(ctx context.Context, index angelos.Client, logger *zap.Logger, websiteIDs, documentIDs, questionIDs []string) error {
	if err := index.DeleteWebsiteBatch(ctx, websiteIDs); err != nil {
		logger.Error("remote website batch delete failed after local commit, manual reconciliation required",
			zap.Strings("ids", websiteIDs), zap.Error(err))
		return err
	}
	if err := index.DeleteDocumentBatch(ctx, documentIDs); err != nil {
		logger.Error("remote document batch delete failed after local commit, manual reconciliation required",
			zap.Strings("ids", documentIDs), zap.Error(err))
		return err
	}
	if err := index.DeleteSampleQuestionBatch(ctx, questionIDs); err != nil {
		logger.Error("remote sample question batch delete failed after local commit, manual reconciliation required",
			zap.Strings("ids", questionIDs), zap.Error(err))
		return err
	}
	return nil
}

func withoutStudyProgram(sps []models.StudyProgram, spID int64) []models.StudyProgram {
	out := sps[:0]
	for _, sp := range sps {
		if sp.ID != spID {
			out = append(out, sp)
		}
	}
	return out
}
