package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/angelos/kbsync/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOrganisationCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	org, err := store.CreateOrganisation(ctx, "TUM CIT")
	if err != nil {
		t.Fatal(err)
	}
	if org.ID == 0 {
		t.Error("expected a generated id")
	}

	got, err := store.GetOrganisationByName(ctx, "TUM CIT")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != org.ID {
		t.Errorf("expected id %d, got %d", org.ID, got.ID)
	}

	if _, err := store.GetOrganisation(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	orgs, err := store.ListOrganisations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 1 {
		t.Errorf("expected 1 organisation, got %d", len(orgs))
	}

	if err := store.DeleteOrganisation(ctx, org.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetOrganisation(ctx, org.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStudyProgramCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	org, err := store.CreateOrganisation(ctx, "Org")
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

	exists, err := store.StudyProgramExists(ctx, org.ID, "Informatics")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("Informatics should exist")
	}
	exists, _ = store.StudyProgramExists(ctx, org.ID, "Physics")
	if exists {
		t.Error("Physics should not exist")
	}

	sps, err := store.ListStudyProgramsByOrg(ctx, org.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sps) != 2 {
		t.Errorf("expected 2 study programs, got %d", len(sps))
	}

	byIDs, err := store.GetStudyProgramsByIDs(ctx, []int64{sp.ID, sp2.ID, 9999})
	if err != nil {
		t.Fatal(err)
	}
	if len(byIDs) != 2 {
		t.Errorf("missing ids should be omitted, got %d entries", len(byIDs))
	}

	if err := store.DeleteStudyProgram(ctx, sp.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetStudyProgram(ctx, sp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestWebsiteCRUDWithAssociations(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	org, _ := store.CreateOrganisation(ctx, "Org")
	sp, _ := store.CreateStudyProgram(ctx, org.ID, "Informatics")
	sp2, _ := store.CreateStudyProgram(ctx, org.ID, "Mathematics")

	w := &models.Website{
		ID:            "w1",
		OrgID:         org.ID,
		Title:         "Page",
		Link:          "https://example.test",
		ContentHash:   "hash1",
		StudyPrograms: []models.StudyProgram{*sp, *sp2},
	}
	if err := store.CreateWebsite(ctx, w); err != nil {
		t.Fatal(err)
	}
	if w.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetWebsite(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Page" || got.ContentHash != "hash1" {
		t.Errorf("got %+v", got)
	}
	if len(got.StudyPrograms) != 2 {
		t.Errorf("expected 2 study programs, got %d", len(got.StudyPrograms))
	}

	got.Title = "Updated"
	got.StudyPrograms = []models.StudyProgram{*sp}
	if err := store.UpdateWebsite(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetWebsite(ctx, "w1")
	if got.Title != "Updated" || len(got.StudyPrograms) != 1 {
		t.Errorf("update not applied: %+v", got)
	}

	list, err := store.ListWebsitesByOrg(ctx, org.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 website, got %d", len(list))
	}

	if err := store.DeleteWebsite(ctx, "w1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetWebsite(ctx, "w1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListByStudyProgramQueries(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	org, _ := store.CreateOrganisation(ctx, "Org")
	sp, _ := store.CreateStudyProgram(ctx, org.ID, "Informatics")
	sp2, _ := store.CreateStudyProgram(ctx, org.ID, "Mathematics")

	single := &models.Website{ID: "single", OrgID: org.ID, Title: "A", Link: "l1",
		StudyPrograms: []models.StudyProgram{*sp}}
	multi := &models.Website{ID: "multi", OrgID: org.ID, Title: "B", Link: "l2",
		StudyPrograms: []models.StudyProgram{*sp, *sp2}}
	other := &models.Website{ID: "other", OrgID: org.ID, Title: "C", Link: "l3",
		StudyPrograms: []models.StudyProgram{*sp2}}
	for _, w := range []*models.Website{single, multi, other} {
		if err := store.CreateWebsite(ctx, w); err != nil {
			t.Fatal(err)
		}
	}

	contains, err := store.ListWebsitesByStudyProgram(ctx, sp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(contains) != 2 {
		t.Errorf("expected 2 websites referencing the study program, got %d", len(contains))
	}

	only, err := store.ListWebsitesByOnlyStudyProgram(ctx, sp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].ID != "single" {
		t.Errorf("expected only the single-tagged website, got %+v", only)
	}
}

func TestOrganisationDeleteCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	org, _ := store.CreateOrganisation(ctx, "Org")
	sp, _ := store.CreateStudyProgram(ctx, org.ID, "Informatics")
	w := &models.Website{ID: "w1", OrgID: org.ID, Title: "A", Link: "l",
		StudyPrograms: []models.StudyProgram{*sp}}
	if err := store.CreateWebsite(ctx, w); err != nil {
		t.Fatal(err)
	}
	q := &models.SampleQuestion{ID: "q1", OrgID: org.ID, Topic: "T", Question: "Q", Answer: "A"}
	if err := store.CreateSampleQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteOrganisation(ctx, org.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetWebsite(ctx, "w1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("website should cascade with its organisation, got %v", err)
	}
	if _, err := store.GetSampleQuestion(ctx, "q1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("sample question should cascade with its organisation, got %v", err)
	}
	if _, err := store.GetStudyProgram(ctx, sp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("study program should cascade with its organisation, got %v", err)
	}
}

func TestDocumentAndSampleQuestionCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	org, _ := store.CreateOrganisation(ctx, "Org")
	sp, _ := store.CreateStudyProgram(ctx, org.ID, "Informatics")

	d := &models.Document{
		ID: "d1", OrgID: org.ID, Title: "Thesis",
		Filename: "d1.pdf", OriginalFilename: "thesis.pdf",
		ContentHash:   "h",
		StudyPrograms: []models.StudyProgram{*sp},
	}
	if err := store.CreateDocument(ctx, d); err != nil {
		t.Fatal(err)
	}
	gotDoc, err := store.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if gotDoc.OriginalFilename != "thesis.pdf" || len(gotDoc.StudyPrograms) != 1 {
		t.Errorf("got %+v", gotDoc)
	}

	q := &models.SampleQuestion{
		ID: "q1", OrgID: org.ID, Topic: "Admission",
		Question: "How to apply?", Answer: "Online.",
		ContentHash:   "h",
		StudyPrograms: []models.StudyProgram{*sp},
	}
	if err := store.CreateSampleQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}
	gotQ, err := store.GetSampleQuestion(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if gotQ.Question != "How to apply?" {
		t.Errorf("got %+v", gotQ)
	}

	gotQ.Answer = "Apply online."
	if err := store.UpdateSampleQuestion(ctx, gotQ); err != nil {
		t.Fatal(err)
	}
	gotQ, _ = store.GetSampleQuestion(ctx, "q1")
	if gotQ.Answer != "Apply online." {
		t.Errorf("update not applied: %+v", gotQ)
	}
}
