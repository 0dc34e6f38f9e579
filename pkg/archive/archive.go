// Package archive provides the zip container primitive for extension
// packages. A File is backed by temporary storage that must be released
// with Close on every exit path, including after partial failures.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformed is returned when the uploaded bytes are not a readable
// zip container.
var ErrMalformed = errors.New("archive: could not read zip file")

// File is an addressable, read-many view over an uploaded package.
type File struct {
	tempPath string
	reader   *zip.ReadCloser
	closed   bool
}

// Open materializes content into a temporary file and opens it as a zip
// archive. The caller owns the returned File and must Close it.
func Open(content []byte) (*File, error) {
	tmp, err := os.CreateTemp("", "extension_*.vsix")
	if err != nil {
		return nil, fmt.Errorf("archive: create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("archive: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("archive: close temp file: %w", err)
	}

	reader, err := zip.OpenReader(tempPath)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, wrapOpenErr(err)
	}

	return &File{tempPath: tempPath, reader: reader}, nil
}

// wrapOpenErr classifies a zip.OpenReader failure. Container faults
// mean the uploaded bytes are bad and map to ErrMalformed; anything
// else is a fault of the local filesystem and propagates as is.
func wrapOpenErr(err error) error {
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fmt.Errorf("archive: open zip file: %w", err)
}

// Close releases the zip reader and the backing temporary storage.
// It is safe to call more than once.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	err := f.reader.Close()
	if removeErr := os.Remove(f.tempPath); err == nil {
		err = removeErr
	}
	return err
}

// Entries returns all entries of the archive in container order.
func (f *File) Entries() []*zip.File {
	return f.reader.File
}

// FindEntry returns the entry with exactly the given name, or nil.
func (f *File) FindEntry(name string) *zip.File {
	for _, entry := range f.reader.File {
		if entry.Name == name {
			return entry
		}
	}
	return nil
}

// FindEntryIgnoreCase returns the first entry whose name matches the
// given name case-insensitively, or nil.
func (f *File) FindEntryIgnoreCase(name string) *zip.File {
	for _, entry := range f.reader.File {
		if strings.EqualFold(entry.Name, name) {
			return entry
		}
	}
	return nil
}

// ReadEntry returns the content of the named entry, or nil when the
// entry is absent. An entry whose bytes cannot be read (partially
// corrupt archives) is treated the same as an absent entry.
func (f *File) ReadEntry(name string) []byte {
	return f.ReadEntryRef(f.FindEntry(name))
}

// ReadEntryRef reads the content of an entry previously located with
// FindEntry, FindEntryIgnoreCase or Entries. A nil entry or an
// unreadable entry yields nil.
func (f *File) ReadEntryRef(entry *zip.File) []byte {
	if entry == nil {
		return nil
	}
	rc, err := entry.Open()
	if err != nil {
		return nil
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}
	return content
}
