// Package documents lists, uploads and deletes documents held by the
// ingestion service. The server owns every document; values returned here
// are snapshots and may be stale as soon as they are returned.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/httpclient"
	"github.com/hyperjump/docsearch/internal/models"
)

const (
	MsgListFailed   = "Failed to load documents"
	MsgGetFailed    = "Failed to load document"
	MsgUploadFailed = "Upload failed"
	MsgDeleteFailed = "Delete failed"

	fileField = "file"
)

// ErrEmptyID is returned when an operation is given no document id.
var ErrEmptyID = errors.New("document id is required")

// File is the content handed to Upload. Size < 0 means the length is
// unknown, in which case no progress is reported.
type File struct {
	Name   string
	Reader io.Reader
	Size   int64
}

// OpenFile opens path for upload. The caller closes the returned closer.
func OpenFile(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return File{}, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return File{}, nil, fmt.Errorf("%s is a directory", path)
	}
	return File{Name: filepath.Base(path), Reader: f, Size: info.Size()}, f, nil
}

// Service is the document collection client.
type Service struct {
	client httpclient.Doer
	logger *zap.Logger
}

func NewService(client httpclient.Doer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

// List returns the collection in server order.
func (s *Service) List(ctx context.Context) ([]models.Document, error) {
	resp, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/documents"})
	if err != nil {
		return nil, httpclient.Wrap("list documents", err, MsgListFailed)
	}
	var docs []models.Document
	if err := resp.Decode(&docs); err != nil {
		return nil, httpclient.Wrap("list documents", fmt.Errorf("decode documents: %w", err), MsgListFailed)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// Get fetches a single document.
func (s *Service) Get(ctx context.Context, id string) (*models.Document, error) {
	if id == "" {
		return nil, httpclient.Wrap("get document", ErrEmptyID, MsgGetFailed)
	}
	resp, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: docPath(id)})
	if err != nil {
		return nil, httpclient.Wrap("get document", err, MsgGetFailed)
	}
	var doc models.Document
	if err := resp.Decode(&doc); err != nil {
		return nil, httpclient.Wrap("get document", fmt.Errorf("decode document: %w", err), MsgGetFailed)
	}
	return &doc, nil
}

// Upload sends file for ingestion. A nil error means the server accepted
// and queued it, not that ingestion finished. The returned document is the
// server's answer when it could be read, nil otherwise.
func (s *Service) Upload(ctx context.Context, file File, title string, onProgress httpclient.ProgressFunc) (*models.Document, error) {
	fields := map[string]string{}
	if title != "" {
		fields["title"] = title
	}
	body, err := httpclient.Multipart(fields, &httpclient.FilePart{
		Field:  fileField,
		Name:   file.Name,
		Reader: file.Reader,
		Size:   file.Size,
	})
	if err != nil {
		return nil, httpclient.Wrap("upload", err, MsgUploadFailed)
	}
	return s.submit(ctx, body, onProgress, zap.String("file", file.Name))
}

// UploadURL asks the server to fetch and ingest rawURL.
func (s *Service) UploadURL(ctx context.Context, rawURL, title string) (*models.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, httpclient.Wrap("upload", fmt.Errorf("invalid url %q", rawURL), "Invalid URL")
	}
	fields := map[string]string{"url": rawURL}
	if title != "" {
		fields["title"] = title
	}
	body, err := httpclient.Multipart(fields, nil)
	if err != nil {
		return nil, httpclient.Wrap("upload", err, MsgUploadFailed)
	}
	return s.submit(ctx, body, nil, zap.String("url", rawURL))
}

func (s *Service) submit(ctx context.Context, body *httpclient.Body, onProgress httpclient.ProgressFunc, what zap.Field) (*models.Document, error) {
	resp, err := s.client.Do(ctx, httpclient.Request{
		Method:     http.MethodPost,
		Path:       "/documents",
		Body:       body,
		OnProgress: onProgress,
	})
	if err != nil {
		s.logger.Debug("upload rejected", what, zap.Error(err))
		return nil, httpclient.Wrap("upload", err, MsgUploadFailed)
	}
	var doc models.Document
	if err := resp.Decode(&doc); err != nil || doc.ID == "" {
		s.logger.Debug("upload accepted", what)
		return nil, nil
	}
	s.logger.Debug("upload accepted", what, zap.String("id", doc.ID), zap.String("status", string(doc.Status)))
	return &doc, nil
}

// Delete removes a document. Callers re-list to observe the result.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return httpclient.Wrap("delete document", ErrEmptyID, MsgDeleteFailed)
	}
	if _, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: docPath(id)}); err != nil {
		return httpclient.Wrap("delete document", err, MsgDeleteFailed)
	}
	return nil
}

// Await polls Get every interval until the document reaches a terminal
// status or ctx is done. onChange, when set, sees every status change.
func (s *Service) Await(ctx context.Context, id string, interval time.Duration, onChange func(models.Status)) (*models.Document, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last    models.Status
		current *models.Document
	)
	for {
		doc, err := s.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return current, ctx.Err()
			}
			return nil, err
		}
		current = doc
		if doc.Status != last {
			last = doc.Status
			if onChange != nil {
				onChange(doc.Status)
			}
		}
		if doc.Status.Terminal() {
			return doc, nil
		}
		select {
		case <-ctx.Done():
			return doc, ctx.Err()
		case <-ticker.C:
		}
	}
}

func docPath(id string) string {
	return "/documents/" + url.PathEscape(id)
}
