package upload

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Stager turns picked files into validated in-memory Files.
type Stager struct {
	maxBytes int64
}

func NewStager(maxBytes int64) *Stager {
	return &Stager{maxBytes: maxBytes}
}

// FromMultipart stages the files of a multipart form field, keeping their
// order. Any invalid file rejects the whole set.
func (s *Stager) FromMultipart(headers []*multipart.FileHeader) ([]File, error) {
	files := make([]File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		staged, err := s.Stage(h.Filename, h.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, staged)
	}
	return files, nil
}

// FromPaths stages files from the local filesystem.
func (s *Stager) FromPaths(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		staged, err := s.Stage(filepath.Base(p), "", f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, staged)
	}
	return files, nil
}

// Stage reads one file, checks its extension and size, settles its content
// type and, for PDFs, its page count.
func (s *Stager) Stage(name, contentType string, r io.Reader) (File, error) {
	if err := ValidateFileExtension(name); err != nil {
		return File{}, fmt.Errorf("%s: %w", name, err)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", name, err)
	}
	if len(data) == 0 {
		return File{}, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if int64(len(data)) > s.maxBytes {
		return File{}, fmt.Errorf("%s: %w", name, ErrFileTooLarge)
	}

	file := File{
		Name:        name,
		ContentType: resolveContentType(name, contentType, data),
		Size:        int64(len(data)),
		Data:        data,
	}

	if file.IsPDF() {
		pages, err := countPDFPages(data)
		if err != nil {
			return File{}, fmt.Errorf("%s: %w", name, err)
		}
		file.Pages = pages
	}

	return file, nil
}

// resolveContentType prefers a specific header value, then sniffing, then
// the extension table.
func resolveContentType(name, header string, data []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}

	sniffed := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil && mt != "application/octet-stream" && !strings.HasPrefix(mt, "text/") {
		return mt
	}

	if ct := contentTypeForExt(name); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
