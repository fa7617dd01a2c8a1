// Package workspace implements the §4.1 Workspace Manager: a private
// filesystem directory per submission holding source, per-test input,
// output, and error files, with guaranteed cleanup on every exit path.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	appErr "judgecore/pkg/errors"
	"judgecore/pkg/utils/logger"

	"go.uber.org/zap"
)

// Manager allocates and tears down per-submission workspace directories
// under a configured root.
type Manager struct {
	root string
}

// NewManager creates a Manager rooted at root. The root itself is not
// created here; Open creates the per-submission subdirectory.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Handle is an opened workspace; callers must call Close on every exit
// path, typically via defer immediately after a successful Open.
type Handle struct {
	dir string
}

// Dir returns the workspace's root directory, used as the sandboxed
// process's cwd per §4.3 point 7.
func (h Handle) Dir() string {
	return h.dir
}

// Open creates a unique directory for submissionID and returns a Handle.
func (m *Manager) Open(ctx context.Context, submissionID string) (Handle, error) {
	if submissionID == "" {
		return Handle{}, appErr.New(appErr.InvalidParams).WithMessage("submission id is required")
	}
	dir := filepath.Join(m.root, submissionID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return Handle{}, appErr.Wrapf(err, appErr.JudgeSystemError, "create workspace directory")
	}
	return Handle{dir: dir}, nil
}

// SourcePath returns the path for the submission's source file with the
// given extension (without the leading dot).
func (h Handle) SourcePath(ext string) string {
	return filepath.Join(h.dir, "source."+ext)
}

// ExecutablePath returns the path for the compiled executable, languages
// that compile only.
func (h Handle) ExecutablePath() string {
	return filepath.Join(h.dir, "a.out")
}

// InputPath returns the path for test idx's input file.
func (h Handle) InputPath(idx int) string {
	return filepath.Join(h.dir, fmt.Sprintf("%d.in", idx))
}

// OutputPath returns the path for test idx's captured stdout.
func (h Handle) OutputPath(idx int) string {
	return filepath.Join(h.dir, fmt.Sprintf("%d.out", idx))
}

// ErrorPath returns the path for test idx's captured stderr.
func (h Handle) ErrorPath(idx int) string {
	return filepath.Join(h.dir, fmt.Sprintf("%d.err", idx))
}

// CompileLogPath returns the path for the compile step's combined stderr.
func (h Handle) CompileLogPath() string {
	return filepath.Join(h.dir, "compile.log")
}

// Close recursively removes the workspace directory. It is idempotent;
// errors are logged, never propagated, per §4.1.
func (m *Manager) Close(ctx context.Context, h Handle) {
	if h.dir == "" {
		return
	}
	if err := os.RemoveAll(h.dir); err != nil {
		logger.Warn(ctx, "workspace cleanup failed", zap.String("dir", h.dir), zap.Error(err))
	}
}
