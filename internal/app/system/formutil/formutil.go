// Package formutil reads request bodies into input structs.
//
// Handlers accept either a JSON body or a classic form post. Both land in
// the same struct, keyed by the struct's json tags, so the browser shell
// can submit whichever it has at hand.
//
// Example usage:
//
//	var in forms.TeamInput
//	if err := formutil.Decode(w, r, &in); err != nil {
//		uierrors.Write(w, r, err)
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/limits"
)

// File is an uploaded file part.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Decode fills v (a pointer to a struct of string fields) from a JSON,
// URL-encoded or multipart body. An empty body leaves v untouched.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "formutil.Decode"

	switch mediaType(r) {
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
		if err := r.ParseForm(); err != nil {
			return unreadable(op, err)
		}
		fillFromForm(v, r.PostForm.Get)
		return nil
	case "multipart/form-data":
		if r.MultipartForm == nil {
			if err := ParseMultipart(w, r, limits.MaxFormFields); err != nil {
				return err
			}
		}
		fillFromForm(v, r.FormValue)
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return unreadable(op, err)
	}
	return nil
}

// ParseMultipart parses a multipart body no larger than maxBody.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBody int64) error {
	const op = "formutil.ParseMultipart"
	if r.ContentLength > maxBody {
		return tooLarge(op)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(limits.MultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return tooLarge(op)
		}
		return unreadable(op, err)
	}
	return nil
}

func tooLarge(op string) *apperr.Error {
	return apperr.Invalid(op, "The selected image is too large", map[string]string{"image": "too large"})
}

// FilePart returns the named file part of a parsed multipart form. ok is
// false when the part is absent or empty.
func FilePart(r *http.Request, field string) (File, bool, error) {
	const op = "formutil.FilePart"
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return File{}, false, nil
	}
	fh := r.MultipartForm.File[field][0]
	f, err := fh.Open()
	if err != nil {
		return File{}, false, unreadable(op, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return File{}, false, unreadable(op, err)
	}
	if len(data) == 0 {
		return File{}, false, nil
	}
	return File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, true, nil
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// fillFromForm copies form values into the string fields of the struct v
// points at, matching on json tag names.
func fillFromForm(v any, get func(string) string) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.String {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			name = f.Name
		}
		if val := get(name); val != "" {
			rv.Field(i).SetString(val)
		}
	}
}

func unreadable(op string, err error) *apperr.Error {
	return &apperr.Error{Kind: apperr.ValidationFailure, Op: op, Message: "The request could not be read.", Err: err}
}
