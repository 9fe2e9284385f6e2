// Package problem supplies the problem text a run answers.
package problem

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// DefaultFile is read when no problem is given on the command line.
const DefaultFile = "problem.txt"

// Source supplies one problem per Read.
type Source interface {
	Read(ctx context.Context) (ensemble.Problem, error)
}

// StaticSource is a problem given inline.
type StaticSource string

// Read validates the text. Blank text is ErrSourceUnavailable.
func (s StaticSource) Read(ctx context.Context) (ensemble.Problem, error) {
	if err := ctx.Err(); err != nil {
		return ensemble.Problem{}, err
	}
	p, err := ensemble.NewProblem(string(s))
	if err != nil {
		return ensemble.Problem{}, fmt.Errorf("inline problem: %w", errors.Join(errors.ErrSourceUnavailable, err))
	}
	return p, nil
}

// FileSource reads the problem from a file.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a FileSource. A nil fs uses the OS file system.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, path: path}
}

// Path returns the file path.
func (s *FileSource) Path() string { return s.path }

// Read returns the file's trimmed contents. A missing, unreadable or
// blank file is ErrSourceUnavailable.
func (s *FileSource) Read(ctx context.Context) (ensemble.Problem, error) {
	if err := ctx.Err(); err != nil {
		return ensemble.Problem{}, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ensemble.Problem{}, fmt.Errorf("problem file %s does not exist: %w", s.path, errors.ErrSourceUnavailable)
		}
		return ensemble.Problem{}, fmt.Errorf("read problem file %s: %w", s.path, errors.Join(errors.ErrSourceUnavailable, err))
	}
	p, err := ensemble.NewProblem(string(data))
	if err != nil {
		return ensemble.Problem{}, fmt.Errorf("problem file %s is empty: %w", s.path, errors.Join(errors.ErrSourceUnavailable, err))
	}
	return p, nil
}
