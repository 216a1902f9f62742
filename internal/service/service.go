// Package service implements the synchronization logic between local
// knowledge resources and the remote Angelos index. Every operation takes an
// explicit tenant context; remote index calls precede local commits for
// destructive operations, and local writes are rolled back when a remote add
// fails.
package service

import (
	"context"
	"errors"

	"github.com/angelos/kbsync/internal/extract"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
)

// batchSize caps the number of resources sent per remote batch call.
const batchSize = 100

// Extractor fetches and parses website content.
type Extractor interface {
	Extract(ctx context.Context, link string) (*extract.ParseResult, error)
}

// resolveStudyPrograms loads the given study program ids and verifies that
// all exist and belong to the tenant's organisation.
func resolveStudyPrograms(ctx context.Context, store storage.Storage, tenant models.TenantContext, ids []int64) ([]models.StudyProgram, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sps, err := store.GetStudyProgramsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(sps) != len(ids) {
		return nil, &ValidationError{Reason: "one or more study programs do not exist"}
	}
	for _, sp := range sps {
		if sp.OrgID != tenant.OrgID && !tenant.IsSystemAdmin {
			return nil, &UnauthorizedError{Reason: "study program belongs to another organisation"}
		}
	}
	return sps, nil
}

// spNames returns the study program names in association order. The remote
// index keys study programs by name.
func spNames(sps []models.StudyProgram) []string {
	names := make([]string, len(sps))
	for i, sp := range sps {
		names[i] = sp.Name
	}
	return names
}

// sameStudyPrograms reports whether both association sets contain the same
// study program ids.
func sameStudyPrograms(a, b []models.StudyProgram) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int64]bool, len(a))
	for _, sp := range a {
		seen[sp.ID] = true
	}
	for _, sp := range b {
		if !seen[sp.ID] {
			return false
		}
	}
	return true
}

// authorize verifies that the tenant may act on a resource owned by orgID.
func authorize(tenant models.TenantContext, orgID int64) error {
	if orgID != tenant.OrgID && !tenant.IsSystemAdmin {
		return &UnauthorizedError{Reason: "resource belongs to another organisation"}
	}
	return nil
}

// mapNotFound converts a storage miss into a caller-facing NotFoundError.
func mapNotFound(err error, kind, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return err
}
