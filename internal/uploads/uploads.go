// Package uploads stores disease-check images inside a sandboxed directory.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

var (
	// ErrInvalidPath is returned for names that are not plain file names.
	ErrInvalidPath = errors.NewStd("invalid upload path")

	// ErrEmptyName is returned when nothing usable is left of a file name.
	ErrEmptyName = errors.NewStd("empty file name")
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the uploads module logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("uploads")
	})
	return serviceLogger
}

// Store writes files below one directory using os.Root, so no operation can
// escape it through "..", absolute paths or symlinks.
type Store struct {
	dir  string
	root *os.Root
}

// Saved describes a stored upload.
type Saved struct {
	Name string // file name inside the store
	Path string // dir joined with Name, as recorded on disease checks
	Size int64
}

// New opens dir as the upload root, creating it when missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fileError(fmt.Errorf("create upload dir: %w", err), dir)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fileError(fmt.Errorf("open upload dir: %w", err), dir)
	}
	return &Store{dir: dir, root: root}, nil
}

// Dir returns the configured directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into a new file named after original, prefixed with a random
// ID so repeated uploads of the same name never collide.
func (s *Store) Save(r io.Reader, original string) (Saved, error) {
	clean := SecureFilename(original)
	if clean == "" {
		return Saved{}, errors.New(ErrEmptyName).
			Component("uploads").
			Category(errors.CategoryValidation).
			Build()
	}
	name := uuid.NewString()[:8] + "_" + clean

	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return Saved{}, fileError(fmt.Errorf("create upload: %w", err), name)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = s.root.Remove(name)
		return Saved{}, fileError(fmt.Errorf("write upload: %w", err), name)
	}

	GetLogger().Debug("upload saved", logger.String("name", name), logger.Int64("size", n))
	return Saved{Name: name, Path: filepath.Join(s.dir, name), Size: n}, nil
}

// Open opens a stored file for reading.
func (s *Store) Open(name string) (*os.File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := s.root.Open(name)
	if err != nil {
		return nil, fileError(err, name)
	}
	return f, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := s.root.Remove(name); err != nil && !os.IsNotExist(err) {
		return fileError(err, name)
	}
	return nil
}

// Close releases the root handle.
func (s *Store) Close() error {
	return s.root.Close()
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return errors.New(fmt.Errorf("%w: %q", ErrInvalidPath, name)).
			Component("uploads").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("uploads").
		Category(errors.CategoryFileIO).
		FileContext(path, 0).
		Build()
}

// SecureFilename reduces a client supplied name to ASCII letters, digits,
// '_', '.' and '-', with separators turned into underscores and no leading
// dots. The result may be empty.
func SecureFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r > unicode.MaxASCII:
			// drops combining marks left by decomposition
		case r == '/' || r == '\\':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	joined := strings.Join(fields, "_")

	b.Reset()
	for _, r := range joined {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
