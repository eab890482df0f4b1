package upload

import "errors"

var (
	ErrNoExtension     = errors.New("file extension missing")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds upload limit")
	ErrUnreadablePDF   = errors.New("pdf could not be read")
)

// File is a staged prescription or lab report held in memory until it is
// sent for extraction.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
	Data        []byte `json:"-"`
}

func (f File) IsPDF() bool {
	return f.ContentType == "application/pdf"
}
