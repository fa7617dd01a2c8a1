package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesUniqueDirectory(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	h, err := m.Open(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close(context.Background(), h)

	info, err := os.Stat(h.Dir())
	if err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected a directory")
	}
	if filepath.Dir(h.Dir()) != root {
		t.Fatalf("expected workspace nested directly under root")
	}
}

func TestOpenRejectsEmptySubmissionID(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Open(context.Background(), ""); err == nil {
		t.Fatalf("expected an error for an empty submission id")
	}
}

func TestPathHelpersAreDistinctAndNested(t *testing.T) {
	m := NewManager(t.TempDir())
	h, err := m.Open(context.Background(), "sub-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close(context.Background(), h)

	paths := map[string]string{
		"source":      h.SourcePath("cpp"),
		"executable":  h.ExecutablePath(),
		"input-0":     h.InputPath(0),
		"output-0":    h.OutputPath(0),
		"error-0":     h.ErrorPath(0),
		"compile-log": h.CompileLogPath(),
	}
	seen := map[string]bool{}
	for name, p := range paths {
		if filepath.Dir(p) != h.Dir() {
			t.Errorf("%s path %q is not nested under workspace dir %q", name, p, h.Dir())
		}
		if seen[p] {
			t.Errorf("%s path %q collides with another helper", name, p)
		}
		seen[p] = true
	}
}

func TestInputOutputErrorPathsAreIndexed(t *testing.T) {
	m := NewManager(t.TempDir())
	h, err := m.Open(context.Background(), "sub-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close(context.Background(), h)

	if h.InputPath(0) == h.InputPath(1) {
		t.Fatalf("different test indices must produce different input paths")
	}
	if h.OutputPath(0) == h.ErrorPath(0) {
		t.Fatalf("output and error paths for the same test must differ")
	}
}

func TestCloseRemovesDirectoryAndIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir())
	h, err := m.Open(context.Background(), "sub-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(h.SourcePath("py"), []byte("print(1)"), 0640); err != nil {
		t.Fatalf("unexpected error writing source: %v", err)
	}

	m.Close(context.Background(), h)
	if _, err := os.Stat(h.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace directory to be removed")
	}

	// Closing again must not panic or error despite the directory already
	// being gone.
	m.Close(context.Background(), h)
}

func TestCloseOnZeroValueHandleIsNoop(t *testing.T) {
	m := NewManager(t.TempDir())
	m.Close(context.Background(), Handle{})
}
