package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorKindOf(t *testing.T) {
	base := errors.New("socket closed")
	err := NewAppError("search.retrieve", KindRetrievalUnavailable, "index unreachable", base)

	if KindOf(err) != KindRetrievalUnavailable {
		t.Fatalf("kind = %q", KindOf(err))
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to unwrap")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if KindOf(wrapped) != KindRetrievalUnavailable {
		t.Fatalf("kind through wrap = %q", KindOf(wrapped))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("kind = %q", KindOf(errors.New("boom")))
	}
	if KindOf(nil) != KindInternal {
		t.Fatalf("nil kind = %q", KindOf(nil))
	}
}
