// Package documents locates uploaded files and hands them to the text
// extraction service.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxFileSize bounds how much of an upload is read into memory.
const MaxFileSize = 20 << 20

// ErrNotFound is returned when no upload matches a file id.
var ErrNotFound = errors.New("file not found")

var safeSegment = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// File is an uploaded document.
type File struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte
}

// FileSource resolves a file id to its bytes.
type FileSource interface {
	Open(ctx context.Context, teamID, fileID string) (*File, error)
}

// DirSource finds uploads under <root>/<team>/ at any depth. A file matches
// when its name is the file id, with or without an extension.
type DirSource struct {
	root string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Open returns the first upload matching fileID for the team.
func (s *DirSource) Open(ctx context.Context, teamID, fileID string) (*File, error) {
	if !safeSegment.MatchString(teamID) || !safeSegment.MatchString(fileID) {
		return nil, fmt.Errorf("invalid file reference %q: %w", fileID, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fsys := os.DirFS(filepath.Join(s.root, teamID))
	matches, err := doublestar.Glob(fsys, "**/"+fileID+"{,.*}", doublestar.WithFilesOnly())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("searching uploads: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	name := matches[0]
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening upload %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload %s: %w", name, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("upload %s is %d bytes, limit is %d", name, info.Size(), MaxFileSize)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload %s: %w", name, err)
	}

	return &File{
		ID:       fileID,
		Name:     path.Base(name),
		MimeType: detectMime(name, data),
		Data:     data,
	}, nil
}

func detectMime(name string, data []byte) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
