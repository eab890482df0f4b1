package upload

import (
	"path/filepath"
	"strings"
)

var allowedExt = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
}

func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == "" {
		return ErrNoExtension
	}

	if _, ok := allowedExt[ext]; !ok {
		return ErrUnsupportedType
	}

	return nil
}

func contentTypeForExt(filename string) string {
	return allowedExt[strings.ToLower(filepath.Ext(filename))]
}
