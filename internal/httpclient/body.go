package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
)

// Body is an outgoing request body with its content type and length.
// A negative Size means the length is not known in advance.
type Body struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// JSON encodes v as an application/json body.
func JSON(v any) (*Body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	return &Body{Reader: bytes.NewReader(data), Size: int64(len(data)), ContentType: "application/json"}, nil
}

// Form encodes values as application/x-www-form-urlencoded.
func Form(values url.Values) *Body {
	data := values.Encode()
	return &Body{Reader: strings.NewReader(data), Size: int64(len(data)), ContentType: "application/x-www-form-urlencoded"}
}

// FilePart is the file section of a multipart body.
// Size < 0 means the file length is unknown.
type FilePart struct {
	Field  string
	Name   string
	Reader io.Reader
	Size   int64
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Multipart builds a multipart/form-data body from plain fields and an
// optional file. The file content is streamed, not buffered; the body size
// is known exactly when the file size is known.
func Multipart(fields map[string]string, file *FilePart) (*Body, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	if file == nil {
		if err := mw.Close(); err != nil {
			return nil, err
		}
		return &Body{Reader: &head, Size: int64(head.Len()), ContentType: mw.FormDataContentType()}, nil
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.Field), quoteEscaper.Replace(filepath.Base(file.Name))))
	ctype := mime.TypeByExtension(filepath.Ext(file.Name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h.Set("Content-Type", ctype)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, fmt.Errorf("failed to write file header: %w", err)
	}
	prefix := append([]byte(nil), head.Bytes()...)

	head.Reset()
	if err := mw.Close(); err != nil {
		return nil, err
	}
	suffix := append([]byte(nil), head.Bytes()...)

	size := int64(-1)
	if file.Size >= 0 {
		size = int64(len(prefix)) + file.Size + int64(len(suffix))
	}
	return &Body{
		Reader:      io.MultiReader(bytes.NewReader(prefix), file.Reader, bytes.NewReader(suffix)),
		Size:        size,
		ContentType: mw.FormDataContentType(),
	}, nil
}
