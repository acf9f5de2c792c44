package api

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"
)

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		name   string
		params *Params
		want   string
	}{
		{"nil", nil, ""},
		{"empty", NewParams(), ""},
		{"single", NewParams().Set("limit", 20), "limit=20"},
		{"order preserved", NewParams().Set("b", "2").Set("a", "1"), "b=2&a=1"},
		{"array", NewParams().Set("ids", []string{"1", "2"}).Set("x", true), "ids[]=1&ids[]=2&x=true"},
		{"escaping", NewParams().Set("status", "hello world & more"), "status=hello%20world%20%26%20more"},
		{"escaped key", NewParams().Set("a b", "c"), "a%20b=c"},
		{"unicode", NewParams().Set("q", "café"), "q=caf%C3%A9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeQuery(tt.params); got != tt.want {
				t.Errorf("EncodeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path string
		want BodyEncoding
	}{
		{"media/upload", EncodingForm},
		{"/media", EncodingForm},
		{"account/update_profile_image", EncodingForm},
		{"account/update_profile_background_image", EncodingForm},
		{"accounts/update_credentials", EncodingForm},
		{"media/metadata/create", EncodingJSON},
		{"statuses", EncodingQuery},
		{"statuses/123", EncodingQuery},
		{"media/upload/extra", EncodingQuery},
	}
	for _, tt := range tests {
		if got := classifyPath(tt.path); got != tt.want {
			t.Errorf("classifyPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEncodeBody_JSONKeepsOrder(t *testing.T) {
	body, err := encodeBody(EncodingJSON, NewParams().Set("media_id", "9").Set("alt_text", map[string]any{"text": "a cat"}))
	if err != nil {
		t.Fatalf("encodeBody: %v", err)
	}
	if body.contentType != "application/json" {
		t.Errorf("contentType = %q", body.contentType)
	}
	want := `{"media_id":"9","alt_text":{"text":"a cat"}}`
	if string(body.data) != want {
		t.Errorf("body = %s, want %s", body.data, want)
	}
}

func TestEncodeBody_Form(t *testing.T) {
	body, err := encodeBody(EncodingForm, NewParams().Set("display_name", "Ann B").Set("fields", []string{"x"}))
	if err != nil {
		t.Fatalf("encodeBody: %v", err)
	}
	if body.contentType != "application/x-www-form-urlencoded" {
		t.Errorf("contentType = %q", body.contentType)
	}
	if string(body.data) != "display_name=Ann%20B&fields[]=x" {
		t.Errorf("body = %q", body.data)
	}
	if body.form.Get("display_name") != "Ann B" || body.form.Get("fields[]") != "x" {
		t.Errorf("form values = %v", body.form)
	}
}

func TestEncodeBody_Multipart(t *testing.T) {
	params := NewParams().
		Set("description", "a photo").
		Set("file", File{Name: "cat.png", ContentType: "image/png", Data: []byte("PNGDATA")}).
		Set("tags", []string{"a", "b"})

	body, err := encodeBody(EncodingMultipart, params)
	if err != nil {
		t.Fatalf("encodeBody: %v", err)
	}
	mediaType, mediaParams, err := mime.ParseMediaType(body.contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("contentType = %q (%v)", body.contentType, err)
	}

	reader := multipart.NewReader(bytes.NewReader(body.data), mediaParams["boundary"])
	var names []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		data, _ := io.ReadAll(part)
		names = append(names, part.FormName())
		if part.FormName() == "file" {
			if part.FileName() != "cat.png" {
				t.Errorf("FileName() = %q", part.FileName())
			}
			if part.Header.Get("Content-Type") != "image/png" {
				t.Errorf("file Content-Type = %q", part.Header.Get("Content-Type"))
			}
			if string(data) != "PNGDATA" {
				t.Errorf("file data = %q", data)
			}
		}
	}
	want := []string{"description", "file", "tags[]", "tags[]"}
	if len(names) != len(want) {
		t.Fatalf("parts = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("parts = %v, want %v", names, want)
		}
	}
}

func TestEncodeBody_QueryHasNoBody(t *testing.T) {
	body, err := encodeBody(EncodingQuery, NewParams().Set("a", 1))
	if err != nil {
		t.Fatalf("encodeBody: %v", err)
	}
	if body.data != nil || body.contentType != "" {
		t.Errorf("expected empty body, got %q (%q)", body.data, body.contentType)
	}
}
