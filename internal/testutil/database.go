package testutil

import (
	"testing"

	"seedpull/internal/models"
	"seedpull/internal/repository"
)

// SetupTestDB opens an in-memory transfer history, closed when the test ends
func SetupTestDB(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

type transferRecorder interface {
	RecordEnqueued(transfer *models.Transfer) error
}

// SeedTransfers records each transfer as already queued
func SeedTransfers(t *testing.T, repo transferRecorder, transfers ...*models.Transfer) {
	t.Helper()

	for _, transfer := range transfers {
		if err := repo.RecordEnqueued(transfer); err != nil {
			t.Fatalf("failed to seed transfer %s: %v", transfer.Name, err)
		}
	}
}
