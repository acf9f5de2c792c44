package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

// BodyEncoding selects how parameters travel with a request.
type BodyEncoding int

const (
	// EncodingQuery sends parameters in the URL query string with no body.
	EncodingQuery BodyEncoding = iota
	// EncodingForm sends an application/x-www-form-urlencoded body.
	EncodingForm
	// EncodingMultipart sends a multipart/form-data body.
	EncodingMultipart
	// EncodingJSON sends an application/json body.
	EncodingJSON
)

func (e BodyEncoding) String() string {
	switch e {
	case EncodingQuery:
		return "query"
	case EncodingForm:
		return "form"
	case EncodingMultipart:
		return "multipart"
	case EncodingJSON:
		return "json"
	}
	return fmt.Sprintf("BodyEncoding(%d)", int(e))
}

// Endpoints whose parameters are sent as a request body rather than a query.
var (
	formPaths = map[string]struct{}{
		"media":                                   {},
		"media/upload":                            {},
		"account/update_profile_image":            {},
		"account/update_profile_background_image": {},
		"accounts/update_credentials":             {},
	}
	jsonPaths = map[string]struct{}{
		"media/metadata/create": {},
	}
)

// classifyPath picks the body encoding for a relative endpoint path.
func classifyPath(path string) BodyEncoding {
	p := strings.Trim(path, "/")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if _, ok := jsonPaths[p]; ok {
		return EncodingJSON
	}
	if _, ok := formPaths[p]; ok {
		return EncodingForm
	}
	return EncodingQuery
}

// EncodeQuery renders params as "k=v&k2=v2" in insertion order. Slice values
// expand to repeated "k[]=item" pairs. An empty bag yields "".
func EncodeQuery(params *Params) string {
	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escapeComponent(value))
	}
	params.each(func(k string, v any) {
		key := escapeComponent(k)
		if items, ok := listValues(v); ok {
			for _, item := range items {
				add(key+"[]", formatValue(item))
			}
			return
		}
		add(key, formatValue(v))
	})
	return b.String()
}

// formValues flattens params the same way EncodeQuery does.
func formValues(params *Params) url.Values {
	values := url.Values{}
	params.each(func(k string, v any) {
		if items, ok := listValues(v); ok {
			for _, item := range items {
				values.Add(k+"[]", formatValue(item))
			}
			return
		}
		values.Add(k, formatValue(v))
	})
	return values
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// encodedBody is a request body ready to be replayed on every attempt.
type encodedBody struct {
	data        []byte
	contentType string
	form        url.Values
}

func encodeBody(kind BodyEncoding, params *Params) (encodedBody, error) {
	switch kind {
	case EncodingForm:
		return encodedBody{
			data:        []byte(EncodeQuery(params)),
			contentType: "application/x-www-form-urlencoded",
			form:        formValues(params),
		}, nil
	case EncodingMultipart:
		return encodeMultipart(params)
	case EncodingJSON:
		data, err := json.Marshal(params)
		if err != nil {
			return encodedBody{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return encodedBody{data: data, contentType: "application/json"}, nil
	}
	return encodedBody{}, nil
}

func encodeMultipart(params *Params) (encodedBody, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	var werr error
	params.each(func(k string, v any) {
		if werr != nil {
			return
		}
		switch f := v.(type) {
		case File:
			werr = writeFilePart(writer, k, f)
			return
		case *File:
			if f != nil {
				werr = writeFilePart(writer, k, *f)
			}
			return
		}
		if items, ok := listValues(v); ok {
			for _, item := range items {
				if err := writer.WriteField(k+"[]", formatValue(item)); err != nil {
					werr = fmt.Errorf("failed to write field %s: %w", k, err)
					return
				}
			}
			return
		}
		if err := writer.WriteField(k, formatValue(v)); err != nil {
			werr = fmt.Errorf("failed to write field %s: %w", k, err)
		}
	})
	if werr != nil {
		return encodedBody{}, werr
	}
	if err := writer.Close(); err != nil {
		return encodedBody{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return encodedBody{data: body.Bytes(), contentType: writer.FormDataContentType()}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(writer *multipart.Writer, field string, f File) error {
	name := f.Name
	if name == "" {
		name = field
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form file %s: %w", name, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}
	return nil
}
