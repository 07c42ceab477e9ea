package binder

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrymomot/blackfile/pkg/file"
)

// DefaultMaxMemory is the default maximum memory used for parsing multipart forms (10MB).
// Larger parts spill to temporary files.
const DefaultMaxMemory = 10 << 20 // 10 MB

// Form binds application/x-www-form-urlencoded and multipart/form-data bodies.
// Requests with any other content type yield ErrBinderNotApplicable so a
// JSON binder can take over.
//
// Supported struct tags:
//   - `form:"name"` - binds to form field "name"
//   - `form:"-"`    - skips the field
//   - `file:"name"` - binds to uploaded file "name"
//
// File fields must be *multipart.FileHeader or []*multipart.FileHeader.
// Uploaded filenames are reduced with file.SanitizeFilename.
//
// Body size limits are enforced by wrapping r.Body with http.MaxBytesReader
// before the binder runs; exceeding it yields ErrBodyTooLarge.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return ErrBinderNotApplicable
		}

		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}

		var (
			values map[string][]string
			files  map[string][]*multipart.FileHeader
		)

		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return formError(err)
			}
			values = r.PostForm

		case "multipart/form-data":
			if !validateBoundary(params["boundary"]) {
				return fmt.Errorf("%w: invalid boundary parameter", ErrInvalidForm)
			}
			if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
				return formError(err)
			}
			values = r.MultipartForm.Value
			files = r.MultipartForm.File

		default:
			return ErrBinderNotApplicable
		}

		return bindFormAndFiles(v, values, files)
	}
}

func formError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, mbe.Limit)
	}
	return fmt.Errorf("%w: %v", ErrInvalidForm, err)
}

// validateBoundary checks the multipart boundary against RFC 2046.
func validateBoundary(boundary string) bool {
	if boundary == "" || len(boundary) > 70 {
		return false
	}
	for _, c := range boundary {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("'()+_,-./:=? ", c):
		default:
			return false
		}
	}
	return !strings.HasSuffix(boundary, " ")
}

func bindFormAndFiles(v any, values map[string][]string, files map[string][]*multipart.FileHeader) error {
	rv, err := structValue(v, ErrInvalidForm)
	if err != nil {
		return err
	}
	rt := rv.Type()

	for i := range rv.NumField() {
		field := rv.Field(i)
		fieldType := rt.Field(i)
		if !field.CanSet() {
			continue
		}

		if name := tagName(fieldType.Tag.Get("form")); name != "" {
			if fieldValues := values[name]; len(fieldValues) > 0 {
				if err := setFieldValue(field, fieldType.Type, fieldValues); err != nil {
					return fmt.Errorf("%w: field %s: %v", ErrInvalidForm, fieldType.Name, err)
				}
			}
			continue
		}

		if name := tagName(fieldType.Tag.Get("file")); name != "" {
			if headers := files[name]; len(headers) > 0 {
				if err := setFileField(field, fieldType.Type, headers); err != nil {
					return fmt.Errorf("%w: field %s: %v", ErrInvalidForm, fieldType.Name, err)
				}
			}
		}
	}

	return nil
}

// tagName returns the parameter name of a struct tag, or "" when the field
// should be skipped.
func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

var fileHeaderType = reflect.TypeOf((*multipart.FileHeader)(nil))

func setFileField(field reflect.Value, fieldType reflect.Type, headers []*multipart.FileHeader) error {
	for _, fh := range headers {
		fh.Filename = file.SanitizeFilename(fh.Filename)
	}

	switch {
	case fieldType == fileHeaderType:
		field.Set(reflect.ValueOf(headers[0]))
	case fieldType.Kind() == reflect.Slice && fieldType.Elem() == fileHeaderType:
		field.Set(reflect.ValueOf(headers))
	default:
		return fmt.Errorf("unsupported type for file field: %v", fieldType)
	}
	return nil
}
