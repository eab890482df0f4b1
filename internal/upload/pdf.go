package upload

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// countPDFPages opens the document to make sure the backend will be able to
// read it. The pdf reader panics on some malformed input.
func countPDFPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	n := r.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrUnreadablePDF)
	}
	return n, nil
}
