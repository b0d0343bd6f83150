package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// SourceName identifies editor updates on the apply channel.
	SourceName = "editor"

	// ExcerptLines is the number of trailing lines shown.
	ExcerptLines = 18

	// Placeholder file names shown while the editor is running.
	NoProject = "Project not found"
	NoFiles   = "No files"

	pgrepTimeout = 2 * time.Second
)

// Snapshot is the editor widget state.
type Snapshot struct {
	Running     bool   `json:"running"`
	FileName    string `json:"file_name"`
	CodeExcerpt string `json:"code_excerpt"`
}

// ProcessChecker reports whether the editor process is running.
type ProcessChecker interface {
	Running(ctx context.Context) (bool, error)
}

// Pgrep checks for a process by exact name using pgrep.
type Pgrep struct {
	Name string
}

// Running runs `pgrep -x <name>`. Exit code 1 means no match.
func (p Pgrep) Running(ctx context.Context) (bool, error) {
	execCtx, cancel := context.WithTimeout(ctx, pgrepTimeout)
	defer cancel()

	err := exec.CommandContext(execCtx, "pgrep", "-x", p.Name).Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	if execCtx.Err() == context.DeadlineExceeded {
		return false, fmt.Errorf("pgrep timed out after %s", pgrepTimeout)
	}
	return false, fmt.Errorf("pgrep failed: %w", err)
}

// Source polls the editor state.
type Source struct {
	fs          afero.Fs
	checker     ProcessChecker
	projectPath string // configured override
	storagePath string
}

// NewSource creates the editor source. projectPath overrides the recently
// opened folder when set; homeDir locates VSCodium's storage file.
func NewSource(fs afero.Fs, checker ProcessChecker, projectPath, homeDir string) *Source {
	return &Source{
		fs:          fs,
		checker:     checker,
		projectPath: projectPath,
		storagePath: filepath.Join(homeDir, StoragePath),
	}
}

func (s *Source) Name() string            { return SourceName }
func (s *Source) Interval() time.Duration { return 5 * time.Second }
func (s *Source) Timeout() time.Duration  { return 3 * time.Second }

// Fetch returns a Snapshot. Missing projects and files are reported in the
// snapshot, not as errors.
func (s *Source) Fetch(ctx context.Context) (any, error) {
	running, err := s.checker.Running(ctx)
	if err != nil {
		log.Printf("[DEBUG] editor: %v", err)
	}
	if !running {
		return Snapshot{Running: false}, nil
	}

	dir := s.projectPath
	if dir == "" {
		dir, err = RecentProject(s.fs, s.storagePath)
		if err != nil {
			log.Printf("[DEBUG] editor: %v", err)
		}
	}
	if dir == "" {
		return Snapshot{Running: true, FileName: NoProject}, nil
	}

	file, err := NewestFile(s.fs, dir)
	if err != nil {
		log.Printf("[DEBUG] editor: %v", err)
	}
	if file == "" {
		return Snapshot{Running: true, FileName: NoFiles}, nil
	}

	return Snapshot{
		Running:     true,
		FileName:    filepath.Base(file),
		CodeExcerpt: s.excerpt(file),
	}, nil
}

func (s *Source) excerpt(file string) string {
	data, err := afero.ReadFile(s.fs, file)
	if err != nil {
		log.Printf("[DEBUG] editor: failed to read %s: %v", file, err)
		return ""
	}
	return Excerpt(string(data), ExcerptLines)
}

// Excerpt returns the last n lines of text after dropping trailing blank
// lines. Invalid UTF-8 is replaced.
func Excerpt(text string, n int) string {
	text = strings.ToValidUTF8(text, "�")
	lines := strings.SplitAfter(text, "\n")

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "")
}
