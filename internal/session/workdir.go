package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Working directory layout. current_* files always hold the latest
// screenshot and backend reply; superseded copies are gzipped into past/ so
// a failed run can be replayed step by step.
const (
	ScreenshotFile = "current_screen.png"
	ReplyFile      = "current_reply.md"
	PastDir        = "past"
	LogsDir        = "logs"
)

// Workdir manages the on-disk session workspace.
type Workdir struct {
	root string
}

// OpenWorkdir prepares the workspace under root, creating the layout as
// needed. With reset true, archives and logs from earlier runs are removed.
func OpenWorkdir(root string, reset bool) (*Workdir, error) {
	w := &Workdir{root: root}

	if reset {
		for _, sub := range []string{PastDir, LogsDir} {
			if err := os.RemoveAll(filepath.Join(root, sub)); err != nil {
				return nil, fmt.Errorf("resetting workdir: %w", err)
			}
		}
		for _, f := range []string{ScreenshotFile, ReplyFile} {
			if err := os.Remove(filepath.Join(root, f)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("resetting workdir: %w", err)
			}
		}
	}

	for _, sub := range []string{"", PastDir, LogsDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating workdir: %w", err)
		}
	}
	return w, nil
}

// Root returns the workspace root.
func (w *Workdir) Root() string { return w.root }

// ScreenshotPath is where the current screenshot is captured to.
func (w *Workdir) ScreenshotPath() string { return filepath.Join(w.root, ScreenshotFile) }

// ReplyPath is where the current raw backend reply is stored.
func (w *Workdir) ReplyPath() string { return filepath.Join(w.root, ReplyFile) }

// CommandLogsDir is where full command output is written.
func (w *Workdir) CommandLogsDir() string { return filepath.Join(w.root, LogsDir) }

// SaveReply stores the raw backend reply, replacing the previous one.
func (w *Workdir) SaveReply(raw string) error {
	if err := os.WriteFile(w.ReplyPath(), []byte(raw), 0o644); err != nil {
		return fmt.Errorf("saving backend reply: %w", err)
	}
	return nil
}

// ArchiveScreenshot gzips the current screenshot into past/ before the next
// capture overwrites it. Missing current files are not an error.
func (w *Workdir) ArchiveScreenshot(iteration int) error {
	return w.archive(w.ScreenshotPath(), fmt.Sprintf("iter-%03d-screen.png.gz", iteration))
}

// ArchiveReply gzips the current reply into past/. Also used on parse
// failure so the offending reply survives for diagnosis.
func (w *Workdir) ArchiveReply(iteration int) error {
	return w.archive(w.ReplyPath(), fmt.Sprintf("iter-%03d-reply.md.gz", iteration))
}

func (w *Workdir) archive(src, name string) error {
	in, err := os.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("archiving %s: %w", filepath.Base(src), err)
	}
	defer in.Close()

	dst := filepath.Join(w.root, PastDir, name)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("archiving %s: %w", filepath.Base(src), err)
	}

	gz := gzip.NewWriter(out)
	gz.ModTime = time.Now().UTC()
	gz.Name = filepath.Base(src)

	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return fmt.Errorf("archiving %s: %w", filepath.Base(src), err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return fmt.Errorf("archiving %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}
