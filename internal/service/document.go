package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/extract"
	"github.com/angelos/kbsync/internal/fingerprint"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
)

// maxUploadSize caps uploaded document files at 5 MiB.
const maxUploadSize = 5 << 20

// DocumentService synchronizes uploaded document resources with the remote
// index. The raw file is kept on disk; its extracted text is what gets
// indexed.
type DocumentService struct {
	store  storage.Storage
	files  *storage.FileStore
	index  angelos.Client
	logger *zap.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(store storage.Storage, files *storage.FileStore, index angelos.Client, logger *zap.Logger) *DocumentService {
	return &DocumentService{store: store, files: files, index: index, logger: logger}
}

// Add stores the uploaded file, extracts its text and pushes the document to
// the remote index. Any failure after the file is stored removes both the
// file and the local row again.
func (s *DocumentService) Add(ctx context.Context, tenant models.TenantContext, in models.DocumentInput, originalFilename string, content []byte) (*models.Document, error) {
	if len(content) > maxUploadSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("file exceeds the %d byte upload limit", maxUploadSize)}
	}
	if !extract.SupportedDocument(originalFilename) {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported document type %q", filepath.Ext(originalFilename))}
	}
	sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	d := &models.Document{
		ID:               id,
		OrgID:            tenant.OrgID,
		Title:            in.Title,
		Filename:         id + strings.ToLower(filepath.Ext(originalFilename)),
		OriginalFilename: originalFilename,
		StudyPrograms:    sps,
	}
	if err := s.files.Store(d.Filename, content); err != nil {
		return nil, err
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		s.removeFile(d.Filename)
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	text, err := extract.ExtractDocument(originalFilename, content)
	if err != nil {
		s.rollback(ctx, d)
		return nil, err
	}
	d.ContentHash = fingerprint.Hash(text)
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		s.rollback(ctx, d)
		return nil, fmt.Errorf("failed to persist document fingerprint: %w", err)
	}

	if err := s.index.AddDocument(ctx, angelos.AddDocumentRequest{
		ID:            d.ID,
		OrgID:         d.OrgID,
		Title:         d.Title,
		StudyPrograms: spNames(sps),
		Content:       text,
	}); err != nil {
		s.rollback(ctx, d)
		return nil, err
	}
	return d, nil
}

// Edit updates a document's title and study programs. The stored file and
// its extracted content are immutable, so no refresh is involved. The remote
// edit goes out before the local row changes.
func (s *DocumentService) Edit(ctx context.Context, tenant models.TenantContext, id string, in models.DocumentInput) (*models.Document, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "document", id)
	}
	if err := authorize(tenant, d.OrgID); err != nil {
		return nil, err
	}
	sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
	if err != nil {
		return nil, err
	}

	if err := s.index.EditDocument(ctx, d.ID, angelos.EditDocumentRequest{
		Title:         in.Title,
		StudyPrograms: spNames(sps),
		OrgID:         d.OrgID,
	}); err != nil {
		return nil, err
	}
	d.Title = in.Title
	d.StudyPrograms = sps
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}
	return d, nil
}

// Delete removes the document from the remote index, then locally together
// with its stored file. The local row is kept when the remote delete fails.
func (s *DocumentService) Delete(ctx context.Context, tenant models.TenantContext, id string) error {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return mapNotFound(err, "document", id)
	}
	if err := authorize(tenant, d.OrgID); err != nil {
		return err
	}
	if err := s.index.DeleteDocument(ctx, d.ID); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, d.ID); err != nil {
		return err
	}
	s.removeFile(d.Filename)
	return nil
}

// Get returns one document owned by the tenant.
func (s *DocumentService) Get(ctx context.Context, tenant models.TenantContext, id string) (*models.Document, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "document", id)
	}
	if err := authorize(tenant, d.OrgID); err != nil {
		return nil, err
	}
	return d, nil
}

// Download returns the stored file bytes and the original filename.
func (s *DocumentService) Download(ctx context.Context, tenant models.TenantContext, id string) ([]byte, string, error) {
	d, err := s.Get(ctx, tenant, id)
	if err != nil {
		return nil, "", err
	}
	content, err := s.files.Load(d.Filename)
	if err != nil {
		return nil, "", mapNotFound(err, "document file", id)
	}
	return content, d.OriginalFilename, nil
}

// List returns the tenant organisation's documents.
func (s *DocumentService) List(ctx context.Context, tenant models.TenantContext) ([]*models.Document, error) {
	return s.store.ListDocumentsByOrg(ctx, tenant.OrgID)
}

func (s *DocumentService) rollback(ctx context.Context, d *models.Document) {
	if err := s.store.DeleteDocument(ctx, d.ID); err != nil {
		s.logger.Error("failed to roll back document row", zap.String("id", d.ID), zap.Error(err))
	}
	s.removeFile(d.Filename)
}

func (s *DocumentService) removeFile(filename string) {
	if err := s.files.Delete(filename); err != nil {
		s.logger.Error("failed to remove stored file", zap.String("filename", filename), zap.Error(err))
	}
}
