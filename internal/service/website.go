package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/fingerprint"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
	"github.com/angelos/kbsync/pkg/utils"
)

// WebsiteService synchronizes crawled website resources with the remote index.
type WebsiteService struct {
	store     storage.Storage
	index     angelos.Client
	extractor Extractor
	logger    *zap.Logger
}

// NewWebsiteService creates a WebsiteService.
func NewWebsiteService(store storage.Storage, index angelos.Client, extractor Extractor, logger *zap.Logger) *WebsiteService {
	return &WebsiteService{store: store, index: index, extractor: extractor, logger: logger}
}

// Add crawls the link, persists the website and pushes it to the remote
// index. The local row is removed again if extraction or the remote add fails.
func (s *WebsiteService) Add(ctx context.Context, tenant models.TenantContext, in models.WebsiteInput) (*models.Website, error) {
	sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
	if err != nil {
		return nil, err
	}

	w := &models.Website{
		ID:            uuid.NewString(),
		OrgID:         tenant.OrgID,
		Title:         in.Title,
		Link:          in.Link,
		StudyPrograms: sps,
	}
	if err := s.store.CreateWebsite(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to persist website: %w", err)
	}

	result, err := s.extractor.Extract(ctx, w.Link)
	if err != nil {
		s.rollback(ctx, w.ID)
		return nil, err
	}
	w.ContentHash = fingerprint.Hash(result.Content)
	if err := s.store.UpdateWebsite(ctx, w); err != nil {
		s.rollback(ctx, w.ID)
		return nil, fmt.Errorf("failed to persist website fingerprint: %w", err)
	}
	s.logger.Debug("extracted website content",
		zap.String("link", w.Link),
		zap.String("type", result.Type),
		zap.String("preview", utils.Truncate(result.Content, 200)))

	if err := s.index.AddWebsite(ctx, angelos.AddWebsiteRequest{
		ID:            w.ID,
		OrgID:         w.OrgID,
		Title:         w.Title,
		Link:          w.Link,
		StudyPrograms: spNames(sps),
		Content:       result.Content,
		Type:          result.Type,
	}); err != nil {
		s.rollback(ctx, w.ID)
		return nil, err
	}
	return w, nil
}

// AddBatch adds many websites, pushing them to the remote index in batches.
// When any step of a batch fails, the rows of that batch are rolled back and
// the operation aborts; earlier batches stay committed.
func (s *WebsiteService) AddBatch(ctx context.Context, tenant models.TenantContext, ins []models.WebsiteInput) ([]*models.Website, error) {
	var added []*models.Website
	for start := 0; start < len(ins); start += batchSize {
		end := start + batchSize
		if end > len(ins) {
			end = len(ins)
		}
		batch, err := s.addOneBatch(ctx, tenant, ins[start:end])
		if err != nil {
			return added, err
		}
		added = append(added, batch...)
	}
	return added, nil
}

func (s *WebsiteService) addOneBatch(ctx context.Context, tenant models.TenantContext, ins []models.WebsiteInput) ([]*models.Website, error) {
	var (
		websites []*models.Website
		reqs     []angelos.AddWebsiteRequest
	)
	fail := func(err error) ([]*models.Website, error) {
		for _, w := range websites {
			s.rollback(ctx, w.ID)
		}
		return nil, err
	}

	for _, in := range ins {
		sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
		if err != nil {
			return fail(err)
		}
		w := &models.Website{
			ID:            uuid.NewString(),
			OrgID:         tenant.OrgID,
			Title:         in.Title,
			Link:          in.Link,
			StudyPrograms: sps,
		}
		if err := s.store.CreateWebsite(ctx, w); err != nil {
			return fail(fmt.Errorf("failed to persist website: %w", err))
		}
		websites = append(websites, w)

		result, err := s.extractor.Extract(ctx, w.Link)
		if err != nil {
			return fail(err)
		}
		w.ContentHash = fingerprint.Hash(result.Content)
		if err := s.store.UpdateWebsite(ctx, w); err != nil {
			return fail(fmt.Errorf("failed to persist website fingerprint: %w", err))
		}
		reqs = append(reqs, angelos.AddWebsiteRequest{
			ID:            w.ID,
			OrgID:         w.OrgID,
			Title:         w.Title,
			Link:          w.Link,
			StudyPrograms: spNames(sps),
			Content:       result.Content,
			Type:          result.Type,
		})
	}

	if err := s.index.AddWebsiteBatch(ctx, reqs); err != nil {
		return fail(err)
	}
	return websites, nil
}

// Edit applies title and study program changes, then re-extracts the page and
// refreshes the remote content if the fingerprint changed. An edit whose
// content is unchanged issues no refresh.
func (s *WebsiteService) Edit(ctx context.Context, tenant models.TenantContext, id string, in models.WebsiteInput) (*models.Website, error) {
	w, err := s.store.GetWebsite(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "website", id)
	}
	if err := authorize(tenant, w.OrgID); err != nil {
		return nil, err
	}
	sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
	if err != nil {
		return nil, err
	}

	if in.Title != w.Title || !sameStudyPrograms(sps, w.StudyPrograms) {
		if err := s.index.UpdateWebsite(ctx, w.ID, angelos.EditWebsiteRequest{
			Title:         in.Title,
			StudyPrograms: spNames(sps),
			OrgID:         w.OrgID,
		}); err != nil {
			return nil, err
		}
		w.Title = in.Title
		w.StudyPrograms = sps
		if err := s.store.UpdateWebsite(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to persist website: %w", err)
		}
	}

	result, err := s.extractor.Extract(ctx, w.Link)
	if err != nil {
		return nil, err
	}
	if hash := fingerprint.Hash(result.Content); hash != w.ContentHash {
		if err := s.index.RefreshWebsite(ctx, w.ID, result.Content); err != nil {
			return nil, err
		}
		w.ContentHash = hash
		if err := s.store.UpdateWebsite(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to persist website fingerprint: %w", err)
		}
	}
	return w, nil
}

// Delete removes the website from the remote index, then locally. The local
// row is kept when the remote delete fails.
func (s *WebsiteService) Delete(ctx context.Context, tenant models.TenantContext, id string) error {
	w, err := s.store.GetWebsite(ctx, id)
	if err != nil {
		return mapNotFound(err, "website", id)
	}
	if err := authorize(tenant, w.OrgID); err != nil {
		return err
	}
	if err := s.index.DeleteWebsite(ctx, w.ID); err != nil {
		return err
	}
	return s.store.DeleteWebsite(ctx, w.ID)
}

// Get returns one website owned by the tenant.
func (s *WebsiteService) Get(ctx context.Context, tenant models.TenantContext, id string) (*models.Website, error) {
	w, err := s.store.GetWebsite(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "website", id)
	}
	if err := authorize(tenant, w.OrgID); err != nil {
		return nil, err
	}
	return w, nil
}

// List returns the tenant organisation's websites.
func (s *WebsiteService) List(ctx context.Context, tenant models.TenantContext) ([]*models.Website, error) {
	return s.store.ListWebsitesByOrg(ctx, tenant.OrgID)
}

func (s *WebsiteService) rollback(ctx context.Context, id string) {
	if err := s.store.DeleteWebsite(ctx, id); err != nil {
		s.logger.Error("failed to roll back website row", zap.String("id", id), zap.Error(err))
	}
}
