package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/utils/apperr"
)

// The empty-scope and bad-k checks run before any query is issued, so they
// are testable without a database.
func TestKNNRejectsEmptyProjectSet(t *testing.T) {
	store := NewStore(nil)

	_, err := store.KNN(make([]float32, 4), nil, 10)
	if err == nil {
		t.Fatal("expected an error for an empty project set")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("error kind = %s, want validation_failed", apperr.KindOf(err))
	}
}

func TestKNNRejectsNonPositiveK(t *testing.T) {
	store := NewStore(nil)

	_, err := store.KNN(make([]float32, 4), []uuid.UUID{uuid.New()}, 0)
	if err == nil {
		t.Fatal("expected an error for k = 0")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("error kind = %s, want validation_failed", apperr.KindOf(err))
	}
}
