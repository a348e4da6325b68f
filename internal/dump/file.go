package dump

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
)

// FileSink writes `<phase>_<run>.dot` and `<phase>_<run>.yaml` into Dir.
type FileSink struct {
	Dir string
}

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump directory %s: %w", dir, err)
	}
	return &FileSink{Dir: dir}, nil
}

// Dump writes both renderings of s.
func (f *FileSink) Dump(ctx context.Context, s Snapshot) error {
	base := filepath.Join(f.Dir, fmt.Sprintf("%s_%d", s.Phase, s.RunIndex))
	if err := writeFile(base+".dot", s, WriteDOT); err != nil {
		return err
	}
	if err := writeFile(base+".yaml", s, WriteYAML); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Snapshot written.", "phase", s.Phase, "run", s.RunIndex, "path", base)
	return nil
}

// Close is a no-op.
func (f *FileSink) Close() error { return nil }

func writeFile(path string, s Snapshot, render func(io.Writer, Snapshot) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	if err := render(file, s); err != nil {
		file.Close()
		return fmt.Errorf("write dump file %s: %w", path, err)
	}
	return file.Close()
}
