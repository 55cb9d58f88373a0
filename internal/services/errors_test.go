package services_test

import (
	"errors"
	"testing"

	"netsight/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("disk full")
	err := services.Wrap(services.ErrTransient, "ingest", "insert batch", "commit", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	want := "transient failure: ingest: insert batch: commit: disk full"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "merge", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	fatal := services.Wrap(services.ErrConfiguration, "merge", "precondition", "schema not ready", nil)
	if !services.IsFatal(fatal) {
		t.Fatal("configuration errors are fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrTransient, "queue", "claim", "", nil)) {
		t.Fatal("transient errors are not fatal")
	}
}
