package clip

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const clipFilename = "clip.mp4"

// Workspace is a scratch directory owned exclusively by one in-flight
// request. Created when orchestration starts, destroyed on every exit
// path; nothing in it outlives the request.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a uniquely named scratch directory under base.
func NewWorkspace(base string) (*Workspace, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("create workspace base: %w", err)
	}
	dir := filepath.Join(base, "clip-"+uuid.NewString())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// ClipPath is the destination for the trimmed clip inside the workspace.
func (w *Workspace) ClipPath() string {
	return filepath.Join(w.Dir, clipFilename)
}

// Destroy removes the workspace and everything in it.
func (w *Workspace) Destroy() error {
	return os.RemoveAll(w.Dir)
}
