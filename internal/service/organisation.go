package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
)

// SystemOrganisationName is the distinguished organisation seeded at startup.
// Its members administer all tenants.
const SystemOrganisationName = "System Organisation"

// OrganisationService manages tenant organisations. All operations require
// the system tenant.
type OrganisationService struct {
	store  storage.Storage
	files  *storage.FileStore
	index  angelos.Client
	logger *zap.Logger
}

// NewOrganisationService creates an OrganisationService.
func NewOrganisationService(store storage.Storage, files *storage.FileStore, index angelos.Client, logger *zap.Logger) *OrganisationService {
	return &OrganisationService{store: store, files: files, index: index, logger: logger}
}

// EnsureSystemOrganisation returns the system organisation, creating it on
// first startup.
func (s *OrganisationService) EnsureSystemOrganisation(ctx context.Context) (*models.Organisation, error) {
	org, err := s.store.GetOrganisationByName(ctx, SystemOrganisationName)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	org, err = s.store.CreateOrganisation(ctx, SystemOrganisationName)
	if err != nil {
		return nil, fmt.Errorf("failed to seed system organisation: %w", err)
	}
	s.logger.Info("seeded system organisation", zap.Int64("id", org.ID))
	return org, nil
}

// Create adds a new organisation.
func (s *OrganisationService) Create(ctx context.Context, tenant models.TenantContext, name string) (*models.Organisation, error) {
	if err := requireSystemAdmin(tenant); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &ValidationError{Reason: "organisation name must not be empty"}
	}
	if _, err := s.store.GetOrganisationByName(ctx, name); err == nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("organisation %q already exists", name)}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	org, err := s.store.CreateOrganisation(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create organisation: %w", err)
	}
	return org, nil
}

// List returns all organisations.
func (s *OrganisationService) List(ctx context.Context, tenant models.TenantContext) ([]*models.Organisation, error) {
	if err := requireSystemAdmin(tenant); err != nil {
		return nil, err
	}
	return s.store.ListOrganisations(ctx)
}

// Delete removes an organisation with everything it owns. Local state goes
// first via foreign key cascade; the remote index is cleaned with batch
// deletes afterwards. A remote failure after the local commit is reported
// for manual reconciliation.
func (s *OrganisationService) Delete(ctx context.Context, tenant models.TenantContext, id int64) error {
	if err := requireSystemAdmin(tenant); err != nil {
		return err
	}
	org, err := s.store.GetOrganisation(ctx, id)
	if err != nil {
		return mapNotFound(err, "organisation", fmt.Sprint(id))
	}
	if org.Name == SystemOrganisationName {
		return &ValidationError{Reason: "the system organisation cannot be deleted"}
	}

	websites, err := s.store.ListWebsitesByOrg(ctx, org.ID)
	if err != nil {
		return err
	}
	documents, err := s.store.ListDocumentsByOrg(ctx, org.ID)
	if err != nil {
		return err
	}
	questions, err := s.store.ListSampleQuestionsByOrg(ctx, org.ID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteOrganisation(ctx, org.ID); err != nil {
		return fmt.Errorf("failed to delete organisation: %w", err)
	}
	for _, d := range documents {
		if err := s.files.Delete(d.Filename); err != nil {
			s.logger.Warn("failed to remove stored file during organisation delete",
				zap.String("filename", d.Filename), zap.Error(err))
		}
	}

	websiteIDs := make([]string, len(websites))
	for i, w := range websites {
		websiteIDs[i] = w.ID
	}
	documentIDs := make([]string, len(documents))
	for i, d := range documents {
		documentIDs[i] = d.ID
	}
	questionIDs := make([]string, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}

	return remoteBatchDelete(ctx, s.index, s.logger, websiteIDs, documentIDs, questionIDs)
}

func requireSystemAdmin(tenant models.TenantContext) error {
	if !tenant.IsSystemAdmin {
		return &UnauthorizedError{Reason: "operation requires the system organisation"}
	}
	return nil
}
