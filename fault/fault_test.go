package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDependencyErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("search index: %w", Dependency(ComponentEmbedding, context.DeadlineExceeded))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected wrapped deadline error to be reachable")
	}
	if !IsDependency(err, ComponentEmbedding) {
		t.Fatal("expected embedding dependency error")
	}
	if IsDependency(err, ComponentGeneration) {
		t.Fatal("did not expect generation dependency error")
	}
	if !IsDependency(err, "") {
		t.Fatal("expected empty component to match any dependency error")
	}
}

func TestDependencyNil(t *testing.T) {
	if Dependency(ComponentIndex, nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestInitializationErrorUnwraps(t *testing.T) {
	cause := errors.New("no embedder")
	err := &InitializationError{Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
}
