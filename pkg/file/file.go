package file

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFilenameLength caps the display name stored with a transfer.
const maxFilenameLength = 255

// SanitizeFilename reduces an uploaded filename to a safe display name:
// directory components, control characters and leading dots are removed and
// the result is capped at 255 bytes. Returns "unnamed" when nothing usable is
// left.
//
//	file.SanitizeFilename("../../../etc/passwd")    // "passwd"
//	file.SanitizeFilename("C:\\Users\\me\\cv.pdf") // "cv.pdf"
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return -1
		}
		return r
	}, filename)
	filename = strings.TrimSpace(strings.TrimLeft(filename, "."))

	if filename == "" {
		return "unnamed"
	}

	if len(filename) > maxFilenameLength {
		ext := filepath.Ext(filename)
		if len(ext) > 16 {
			ext = ""
		}
		stem := strings.TrimSuffix(filename, ext)
		cut := min(maxFilenameLength-len(ext), len(stem))
		for cut > 0 && cut < len(stem) && !utf8.RuneStart(stem[cut]) {
			cut--
		}
		filename = stem[:cut] + ext
	}
	return filename
}

// Extension returns the upper-cased extension of filename without the dot,
// or fallback when there is none.
func Extension(filename, fallback string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return fallback
	}
	return strings.ToUpper(ext)
}

// ReadAll reads r up to maxBytes. It returns ErrFileTooLarge as soon as more
// than maxBytes are available, without buffering the excess.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, errors.Join(ErrFailedToReadFile, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// validRef rejects references that could address anything outside a flat
// namespace.
func validRef(ref string) bool {
	if ref == "" || ref == "." || ref == ".." || len(ref) > 255 {
		return false
	}
	return !strings.ContainsAny(ref, "/\\\x00")
}
