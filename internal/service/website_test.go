package service

import (
	"context"
	"errors"
	"testing"

	"github.com/angelos/kbsync/internal/fingerprint"
	"github.com/angelos/kbsync/internal/models"
)

func TestWebsiteAdd(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	w, err := svc.Add(ctx, env.tenant, models.WebsiteInput{
		Title:           "Page",
		Link:            "https://example.test",
		StudyProgramIDs: []int64{env.sp.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.ContentHash != fingerprint.Hash("extracted content") {
		t.Errorf("fingerprint of extracted content should be persisted, got %q", w.ContentHash)
	}

	stored, err := env.store.GetWebsite(ctx, w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ContentHash != w.ContentHash {
		t.Error("stored fingerprint mismatch")
	}

	if len(env.index.addWebsiteReqs) != 1 {
		t.Fatalf("expected 1 remote add, got %d", len(env.index.addWebsiteReqs))
	}
	req := env.index.addWebsiteReqs[0]
	if req.Content != "extracted content" || req.Type != "other" {
		t.Errorf("unexpected remote payload %+v", req)
	}
	if len(req.StudyPrograms) != 1 || req.StudyPrograms[0] != "Informatics" {
		t.Errorf("study programs should be sent by name, got %v", req.StudyPrograms)
	}
}

func TestWebsiteAdd_RemoteFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.index.failOn["AddWebsite"] = syncFailure("add")
	svc := env.websiteService()
	ctx := context.Background()

	_, err := svc.Add(ctx, env.tenant, models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	})
	if err == nil {
		t.Fatal("expected remote failure to propagate")
	}
	list, _ := env.store.ListWebsitesByOrg(ctx, env.org.ID)
	if len(list) != 0 {
		t.Errorf("local row should be rolled back, found %d", len(list))
	}
}

func TestWebsiteAdd_ExtractionFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = errors.New("fetch failed")
	svc := env.websiteService()
	ctx := context.Background()

	_, err := svc.Add(ctx, env.tenant, models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	})
	if err == nil {
		t.Fatal("expected extraction failure to propagate")
	}
	list, _ := env.store.ListWebsitesByOrg(ctx, env.org.ID)
	if len(list) != 0 {
		t.Errorf("local row should be rolled back, found %d", len(list))
	}
	if env.index.count("AddWebsite") != 0 {
		t.Error("nothing should reach the remote index")
	}
}

func TestWebsiteAdd_UnknownStudyProgram(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()

	_, err := svc.Add(context.Background(), env.tenant, models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{9999},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestWebsiteEdit_UnchangedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	in := models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	}
	w, err := svc.Add(ctx, env.tenant, in)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Edit(ctx, env.tenant, w.ID, in); err != nil {
		t.Fatal(err)
	}
	if n := env.index.count("UpdateWebsite"); n != 0 {
		t.Errorf("unchanged metadata should issue no update, got %d", n)
	}
	if n := env.index.count("RefreshWebsite"); n != 0 {
		t.Errorf("unchanged content should issue no refresh, got %d", n)
	}
}

func TestWebsiteEdit_MetadataOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	w, err := svc.Add(ctx, env.tenant, models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Edit(ctx, env.tenant, w.ID, models.WebsiteInput{
		Title: "Renamed", StudyProgramIDs: []int64{env.sp.ID, env.sp2.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if env.index.count("UpdateWebsite") != 1 {
		t.Errorf("expected exactly one update, got %d", env.index.count("UpdateWebsite"))
	}
	if env.index.count("RefreshWebsite") != 0 {
		t.Errorf("content is unchanged, expected no refresh, got %d", env.index.count("RefreshWebsite"))
	}
	if got.Title != "Renamed" || len(got.StudyPrograms) != 2 {
		t.Errorf("metadata not applied: %+v", got)
	}
}

func TestWebsiteEdit_ContentOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	in := models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	}
	w, err := svc.Add(ctx, env.tenant, in)
	if err != nil {
		t.Fatal(err)
	}

	env.extractor.defaultContent = "changed content"
	got, err := svc.Edit(ctx, env.tenant, w.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if env.index.count("UpdateWebsite") != 0 {
		t.Errorf("metadata is unchanged, expected no update, got %d", env.index.count("UpdateWebsite"))
	}
	if env.index.count("RefreshWebsite") != 1 {
		t.Errorf("expected exactly one refresh, got %d", env.index.count("RefreshWebsite"))
	}
	if got.ContentHash != fingerprint.Hash("changed content") {
		t.Error("new fingerprint should be persisted")
	}
}

func TestWebsiteEdit_OtherTenantForbidden(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	w, err := svc.Add(ctx, env.tenant, models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	other, err := env.store.CreateOrganisation(ctx, "Other Org")
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Edit(ctx, models.TenantContext{OrgID: other.ID}, w.ID, models.WebsiteInput{Title: "X"})
	var ua *UnauthorizedError
	if !errors.As(err, &ua) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
}

func TestWebsiteDelete_RemoteFailureKeepsLocal(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	w, err := svc.Add(ctx, env.tenant, models.WebsiteInput{
		Title: "Page", Link: "https://example.test", StudyProgramIDs: []int64{env.sp.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	env.index.failOn["DeleteWebsite"] = syncFailure("delete")
	if err := svc.Delete(ctx, env.tenant, w.ID); err == nil {
		t.Fatal("expected remote failure to propagate")
	}
	if _, err := env.store.GetWebsite(ctx, w.ID); err != nil {
		t.Errorf("local row should survive a failed remote delete, got %v", err)
	}

	delete(env.index.failOn, "DeleteWebsite")
	if err := svc.Delete(ctx, env.tenant, w.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.store.GetWebsite(ctx, w.ID); err == nil {
		t.Error("local row should be gone after a successful delete")
	}
}

func TestWebsiteAddBatch_SplitsIntoBatches(t *testing.T) {
	env := newTestEnv(t)
	svc := env.websiteService()
	ctx := context.Background()

	added, err := svc.AddBatch(ctx, env.tenant, websiteInputs(250, env.sp.ID))
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 250 {
		t.Errorf("expected 250 websites, got %d", len(added))
	}
	if len(env.index.addWebsiteBatches) != 3 {
		t.Fatalf("expected 3 remote batches, got %d", len(env.index.addWebsiteBatches))
	}
	for i, want := range []int{100, 100, 50} {
		if got := len(env.index.addWebsiteBatches[i]); got != want {
			t.Errorf("batch %d: expected %d entries, got %d", i, want, got)
		}
	}
}

func TestWebsiteAddBatch_FailedBatchRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.index.failBatchCall = 2
	svc := env.websiteService()
	ctx := context.Background()

	added, err := svc.AddBatch(ctx, env.tenant, websiteInputs(150, env.sp.ID))
	if err == nil {
		t.Fatal("expected the second batch to fail")
	}
	if len(added) != 100 {
		t.Errorf("the first committed batch should be reported, got %d", len(added))
	}
	list, _ := env.store.ListWebsitesByOrg(ctx, env.org.ID)
	if len(list) != 100 {
		t.Errorf("rows of the failed batch should be rolled back, found %d", len(list))
	}
}
