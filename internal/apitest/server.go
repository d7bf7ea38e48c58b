// Package apitest runs an in-process fake of the ingestion and search API
// for tests. It keeps users, tokens and documents in memory and records
// every request it sees.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hyperjump/docsearch/internal/models"
)

// Shape selects how /search encodes its answer.
type Shape int

const (
	ShapeList    Shape = iota // bare JSON array
	ShapeWrapped              // {"results": [...]}
)

// Recorded is one request as seen by the server.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	HasAuth       bool
	ContentType   string
}

// Upload is one accepted POST /documents.
type Upload struct {
	Filename string
	Title    string
	URL      string
	Size     int
}

type failure struct {
	status int
	body   string
}

// Server is the fake API. Create it with New.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string // email -> password
	tokens    map[string]string // token -> email
	docs      []models.Document
	results   []models.SearchResult
	shape     Shape
	rawSearch string
	failures  map[string]failure
	sequences map[string][]models.Status
	requests  []Recorded
	uploads   []Upload
	searches  []map[string]any
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:     map[string]string{},
		tokens:    map[string]string{},
		failures:  map[string]failure{},
		sequences: map[string][]models.Status{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record, s.inject)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/auth/me", s.handleMe)
		r.Get("/documents", s.handleList)
		r.Post("/documents", s.handleUpload)
		r.Get("/documents/{id}", s.handleGet)
		r.Delete("/documents/{id}", s.handleDelete)
		r.Post("/search", s.handleSearch)
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// IssueToken returns a valid token for email without a login round trip.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.tokens[tok] = email
	return tok
}

// AddDocument appends doc to the collection.
func (s *Server) AddDocument(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
}

// Documents returns a copy of the collection.
func (s *Server) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.docs...)
}

// SetStatusSequence makes successive GET /documents/{id} calls report the
// given statuses in turn. The last one sticks.
func (s *Server) SetStatusSequence(id string, statuses ...models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[id] = statuses
}

// SetResults sets what /search returns and how it is encoded.
func (s *Server) SetResults(shape Shape, results ...models.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
	s.results = results
	s.rawSearch = ""
}

// SetRawSearch makes /search answer 200 with body verbatim.
func (s *Server) SetRawSearch(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawSearch = body
}

// Fail makes every method+path request answer status with body until
// cleared with Recover.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// Recover removes a failure installed with Fail.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Uploads returns every accepted upload.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Searches returns the decoded bodies of every /search request.
func (s *Server) Searches() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.searches...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has := r.Header["Authorization"]
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			HasAuth:       has,
			ContentType:   r.Header.Get("Content-Type"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, ok := s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid form"})
		return
	}
	email, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	s.mu.Lock()
	want, ok := s.users[email]
	s.mu.Unlock()
	if !ok || want != password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.IssueToken(email), "token_type": "bearer"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "invalid body"}}})
		return
	}
	s.mu.Lock()
	_, exists := s.users[in.Email]
	if !exists {
		s.users[in.Email] = in.Password
	}
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
		return
	}
	writeJSON(w, http.StatusCreated, models.User{ID: uuid.NewString(), Email: in.Email})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	email := s.tokens[tok]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.User{ID: "user-" + email, Email: email})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	docs := s.Documents()
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID != id {
			continue
		}
		if seq := s.sequences[id]; len(seq) > 0 {
			s.docs[i].Status = seq[0]
			if len(seq) > 1 {
				s.sequences[id] = seq[1:]
			}
		}
		writeJSON(w, http.StatusOK, s.docs[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Document not found"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid upload"})
		return
	}
	up := Upload{Title: r.FormValue("title"), URL: r.FormValue("url")}
	doc := models.Document{
		ID:        uuid.NewString(),
		Status:    models.StatusPending,
		CreatedAt: models.Timestamp{Time: time.Now().UTC()},
	}
	if f, hdr, err := r.FormFile("file"); err == nil {
		data, _ := io.ReadAll(f)
		_ = f.Close()
		up.Filename, up.Size = hdr.Filename, len(data)
		doc.SourceType = "upload"
		doc.Title = hdr.Filename
		doc.StoragePath = "uploads/" + doc.ID + "/" + hdr.Filename
	} else if up.URL != "" {
		doc.SourceType = "url"
		doc.Title = up.URL
		doc.URL = up.URL
	} else {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Provide a file or url"})
		return
	}
	if up.Title != "" {
		doc.Title = up.Title
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	s.docs = append(s.docs, doc)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Document not found"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "Invalid query"})
		return
	}
	s.mu.Lock()
	s.searches = append(s.searches, in)
	raw, shape := s.rawSearch, s.shape
	results := append([]models.SearchResult{}, s.results...)
	s.mu.Unlock()

	if raw != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, raw)
		return
	}
	if shape == ShapeWrapped {
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
