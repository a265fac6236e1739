package formutil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
)

type teamForm struct {
	TeamName       string `json:"teamName"`
	OrganizationID string `json:"organizationId"`
	Count          int    `json:"count"`
}

func TestDecode_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"teamName":"Red","organizationId":"o1"}`))
	req.Header.Set("Content-Type", "application/json")

	var in teamForm
	if err := Decode(httptest.NewRecorder(), req, &in); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.TeamName != "Red" || in.OrganizationID != "o1" {
		t.Errorf("got %+v", in)
	}
}

func TestDecode_Form(t *testing.T) {
	form := url.Values{"teamName": {"Blue"}, "organizationId": {"o2"}, "count": {"3"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	var in teamForm
	if err := Decode(httptest.NewRecorder(), req, &in); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.TeamName != "Blue" || in.OrganizationID != "o2" {
		t.Errorf("got %+v", in)
	}
	if in.Count != 0 {
		t.Errorf("non-string field was set: %d", in.Count)
	}
}

func TestDecode_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	in := teamForm{TeamName: "kept"}
	if err := Decode(httptest.NewRecorder(), req, &in); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.TeamName != "kept" {
		t.Errorf("empty body changed input: %+v", in)
	}
}

func TestDecode_Malformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"teamName":`))
	req.Header.Set("Content-Type", "application/json")

	var in teamForm
	err := Decode(httptest.NewRecorder(), req, &in)
	if !apperr.Is(err, apperr.ValidationFailure) {
		t.Errorf("err = %v, want ValidationFailure", err)
	}
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", "me.png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(file)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMultipartFieldsAndFile(t *testing.T) {
	req := multipartRequest(t, map[string]string{"teamName": "Green"}, []byte("png-bytes"))
	w := httptest.NewRecorder()
	if err := ParseMultipart(w, req, 1<<20); err != nil {
		t.Fatalf("ParseMultipart: %v", err)
	}

	var in teamForm
	if err := Decode(w, req, &in); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.TeamName != "Green" {
		t.Errorf("got %+v", in)
	}

	f, ok, err := FilePart(req, "image")
	if err != nil || !ok {
		t.Fatalf("FilePart: ok=%v err=%v", ok, err)
	}
	if f.Name != "me.png" || string(f.Data) != "png-bytes" {
		t.Errorf("file = %q %q", f.Name, f.Data)
	}

	if _, ok, _ := FilePart(req, "missing"); ok {
		t.Errorf("missing part reported present")
	}
}

func TestParseMultipart_TooLarge(t *testing.T) {
	req := multipartRequest(t, nil, bytes.Repeat([]byte("x"), 4096))
	err := ParseMultipart(httptest.NewRecorder(), req, 512)
	if !apperr.Is(err, apperr.ValidationFailure) {
		t.Fatalf("err = %v, want ValidationFailure", err)
	}
	if apperr.MessageOf(err) != "The selected image is too large" {
		t.Errorf("message = %q", apperr.MessageOf(err))
	}
}
