package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/extract"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
)

// fakeIndex records remote index calls and fails the ones named in failOn.
type fakeIndex struct {
	calls  []string
	failOn map[string]error

	addWebsiteReqs     []angelos.AddWebsiteRequest
	addWebsiteBatches  [][]angelos.AddWebsiteRequest
	addQuestionReqs    []angelos.AddSampleQuestionRequest
	addQuestionBatches [][]angelos.AddSampleQuestionRequest
	addDocumentReqs    []angelos.AddDocumentRequest

	deletedWebsiteBatches  [][]string
	deletedDocumentBatches [][]string
	deletedQuestionBatches [][]string

	// failBatchCall fails the nth (1-based) AddWebsiteBatch or
	// AddSampleQuestionBatch call
	failBatchCall int
}

var _ angelos.Client = (*fakeIndex)(nil)

func (f *fakeIndex) record(name string) error {
	f.calls = append(f.calls, name)
	if err, ok := f.failOn[name]; ok {
		return err
	}
	return nil
}

func (f *fakeIndex) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeIndex) AddWebsite(ctx context.Context, req angelos.AddWebsiteRequest) error {
	f.addWebsiteReqs = append(f.addWebsiteReqs, req)
	return f.record("AddWebsite")
}

func (f *fakeIndex) AddWebsiteBatch(ctx context.Context, reqs []angelos.AddWebsiteRequest) error {
	f.addWebsiteBatches = append(f.addWebsiteBatches, reqs)
	if f.failBatchCall > 0 && len(f.addWebsiteBatches) == f.failBatchCall {
		f.calls = append(f.calls, "AddWebsiteBatch")
		return &angelos.SyncError{Endpoint: "addBatch", StatusCode: 500}
	}
	return f.record("AddWebsiteBatch")
}

func (f *fakeIndex) UpdateWebsite(ctx context.Context, id string, req angelos.EditWebsiteRequest) error {
	return f.record("UpdateWebsite")
}

func (f *fakeIndex) RefreshWebsite(ctx context.Context, id, content string) error {
	return f.record("RefreshWebsite")
}

func (f *fakeIndex) DeleteWebsite(ctx context.Context, id string) error {
	return f.record("DeleteWebsite")
}

func (f *fakeIndex) DeleteWebsiteBatch(ctx context.Context, ids []string) error {
	f.deletedWebsiteBatches = append(f.deletedWebsiteBatches, ids)
	return f.record("DeleteWebsiteBatch")
}

func (f *fakeIndex) AddDocument(ctx context.Context, req angelos.AddDocumentRequest) error {
	f.addDocumentReqs = append(f.addDocumentReqs, req)
	return f.record("AddDocument")
}

func (f *fakeIndex) EditDocument(ctx context.Context, id string, req angelos.EditDocumentRequest) error {
	return f.record("EditDocument")
}

func (f *fakeIndex) DeleteDocument(ctx context.Context, id string) error {
	return f.record("DeleteDocument")
}

func (f *fakeIndex) DeleteDocumentBatch(ctx context.Context, ids []string) error {
	f.deletedDocumentBatches = append(f.deletedDocumentBatches, ids)
	return f.record("DeleteDocumentBatch")
}

func (f *fakeIndex) AddSampleQuestion(ctx context.Context, req angelos.AddSampleQuestionRequest) error {
	f.addQuestionReqs = append(f.addQuestionReqs, req)
	return f.record("AddSampleQuestion")
}

func (f *fakeIndex) AddSampleQuestionBatch(ctx context.Context, reqs []angelos.AddSampleQuestionRequest) error {
	f.addQuestionBatches = append(f.addQuestionBatches, reqs)
	if f.failBatchCall > 0 && len(f.addQuestionBatches) == f.failBatchCall {
		f.calls = append(f.calls, "AddSampleQuestionBatch")
		return &angelos.SyncError{Endpoint: "addBatch", StatusCode: 500}
	}
	return f.record("AddSampleQuestionBatch")
}

func (f *fakeIndex) EditSampleQuestion(ctx context.Context, id string, req angelos.EditSampleQuestionRequest) error {
	return f.record("EditSampleQuestion")
}

func (f *fakeIndex) DeleteSampleQuestion(ctx context.Context, id string) error {
	return f.record("DeleteSampleQuestion")
}

func (f *fakeIndex) DeleteSampleQuestionBatch(ctx context.Context, ids []string) error {
	f.deletedQuestionBatches = append(f.deletedQuestionBatches, ids)
	return f.record("DeleteSampleQuestionBatch")
}

// fakeExtractor serves canned content per link, falling back to defaultContent.
type fakeExtractor struct {
	contentByLink  map[string]string
	defaultContent string
	err            error
}

func (f *fakeExtractor) Extract(ctx context.Context, link string) (*extract.ParseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	content := f.defaultContent
	if c, ok := f.contentByLink[link]; ok {
		content = c
	}
	return &extract.ParseResult{Content: content, Type: extract.TypeGeneric}, nil
}

// testEnv bundles a real storage stack with fakes for the remote boundary.
type testEnv struct {
	store     storage.Storage
	files     *storage.FileStore
	index     *fakeIndex
	extractor *fakeExtractor
	logger    *zap.Logger

	org    *models.Organisation
	sp     *models.StudyProgram
	sp2    *models.StudyProgram
	tenant models.TenantContext
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	files, err := storage.NewFileStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	org, err := store.CreateOrganisation(ctx, "Test Org")
	if err != nil {
		t.Fatal(err)
	}
	sp, err := store.CreateStudyProgram(ctx, org.ID, "Informatics")
	if err != nil {
		t.Fatal(err)
	}
	sp2, err := store.CreateStudyProgram(ctx, org.ID, "Mathematics")
	if err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		store:     store,
		files:     files,
		index:     &fakeIndex{failOn: map[string]error{}},
		extractor: &fakeExtractor{defaultContent: "extracted content"},
		logger:    zap.NewNop(),
		org:       org,
		sp:        sp,
		sp2:       sp2,
		tenant:    models.TenantContext{OrgID: org.ID},
	}
}

func (e *testEnv) websiteService() *WebsiteService {
	return NewWebsiteService(e.store, e.index, e.extractor, e.logger)
}

func (e *testEnv) documentService() *DocumentService {
	return NewDocumentService(e.store, e.files, e.index, e.logger)
}

func (e *testEnv) questionService() *SampleQuestionService {
	return NewSampleQuestionService(e.store, e.index, e.logger)
}

func (e *testEnv) studyProgramService() *StudyProgramService {
	return NewStudyProgramService(e.store, e.files, e.index, e.logger)
}

func (e *testEnv) organisationService() *OrganisationService {
	return NewOrganisationService(e.store, e.files, e.index, e.logger)
}

func syncFailure(endpoint string) error {
	return &angelos.SyncError{Endpoint: endpoint, StatusCode: 500}
}

func websiteInputs(n int, spID int64) []models.WebsiteInput {
	ins := make([]models.WebsiteInput, n)
	for i := range ins {
		ins[i] = models.WebsiteInput{
			Title:           fmt.Sprintf("Page %d", i),
			Link:            fmt.Sprintf("https://example.test/%d", i),
			StudyProgramIDs: []int64{spID},
		}
	}
	return ins
}
