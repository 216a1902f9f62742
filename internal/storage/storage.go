// Package storage defines the persistence interface for organisations, study
// programs, and knowledge resources.
package storage

import (
	"context"
	"errors"

	"github.com/angelos/kbsync/internal/models"
)

// ErrNotFound is wrapped by all lookups whose subject does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines all persistence operations. Tenant scoping is the caller's
// responsibility; every query here is keyed explicitly by organisation or
// resource id.
type Storage interface {
	// Organisation operations
	CreateOrganisation(ctx context.Context, name string) (*models.Organisation, error)
	GetOrganisation(ctx context.Context, id int64) (*models.Organisation, error)
	GetOrganisationByName(ctx context.Context, name string) (*models.Organisation, error)
	ListOrganisations(ctx context.Context) ([]*models.Organisation, error)
	DeleteOrganisation(ctx context.Context, id int64) error

	// Study program operations
	CreateStudyProgram(ctx context.Context, orgID int64, name string) (*models.StudyProgram, error)
	GetStudyProgram(ctx context.Context, id int64) (*models.StudyProgram, error)
	ListStudyProgramsByOrg(ctx context.Context, orgID int64) ([]models.StudyProgram, error)
	GetStudyProgramsByIDs(ctx context.Context, ids []int64) ([]models.StudyProgram, error)
	StudyProgramExists(ctx context.Context, orgID int64, name string) (bool, error)
	DeleteStudyProgram(ctx context.Context, id int64) error

	// Website operations
	CreateWebsite(ctx context.Context, w *models.Website) error
	GetWebsite(ctx context.Context, id string) (*models.Website, error)
	UpdateWebsite(ctx context.Context, w *models.Website) error
	DeleteWebsite(ctx context.Context, id string) error
	ListWebsitesByOrg(ctx context.Context, orgID int64) ([]*models.Website, error)
	ListWebsitesByStudyProgram(ctx context.Context, spID int64) ([]*models.Website, error)
	ListWebsitesByOnlyStudyProgram(ctx context.Context, spID int64) ([]*models.Website, error)

	// Document operations
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, d *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocumentsByOrg(ctx context.Context, orgID int64) ([]*models.Document, error)
	ListDocumentsByStudyProgram(ctx context.Context, spID int64) ([]*models.Document, error)
	ListDocumentsByOnlyStudyProgram(ctx context.Context, spID int64) ([]*models.Document, error)

	// Sample question operations
	CreateSampleQuestion(ctx context.Context, q *models.SampleQuestion) error
	GetSampleQuestion(ctx context.Context, id string) (*models.SampleQuestion, error)
	UpdateSampleQuestion(ctx context.Context, q *models.SampleQuestion) error
	DeleteSampleQuestion(ctx context.Context, id string) error
	ListSampleQuestionsByOrg(ctx context.Context, orgID int64) ([]*models.SampleQuestion, error)
	ListSampleQuestionsByStudyProgram(ctx context.Context, spID int64) ([]*models.SampleQuestion, error)
	ListSampleQuestionsByOnlyStudyProgram(ctx context.Context, spID int64) ([]*models.SampleQuestion, error)

	Close() error
}
