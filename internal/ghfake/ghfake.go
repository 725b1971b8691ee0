// Package ghfake is an in-memory Contents API used by tests and by the
// standalone fake server.
package ghfake

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/snapp-incubator/updatelog/internal/logging"
	"github.com/snapp-incubator/updatelog/internal/metrics"
)

type file struct {
	content []byte
	sha     string
}

// Server holds the files of every repository and branch it was asked about.
type Server struct {
	// Token, when set, is the only bearer token accepted.
	Token string

	mu       sync.Mutex
	files    map[string]file
	requests map[string]int
	commits  []string

	failStatus  int
	failMessage string
}

// New creates an empty server.
func New() *Server {
	return &Server{
		files:    map[string]file{},
		requests: map[string]int{},
	}
}

func fileKey(owner, repo, branch, path string) string {
	return owner + "/" + repo + "@" + branch + ":" + strings.Trim(path, "/")
}

// BlobSHA is the git blob id of content.
func BlobSHA(content []byte) string {
	h := sha1.New()
	_, _ = fmt.Fprintf(h, "blob %d\x00", len(content))
	_, _ = h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Seed stores content at path and returns its revision.
func (s *Server) Seed(owner, repo, branch, path string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sha := BlobSHA(content)
	s.files[fileKey(owner, repo, branch, path)] = file{content: append([]byte(nil), content...), sha: sha}
	return sha
}

// File returns the stored content and revision of path.
func (s *Server) File(owner, repo, branch, path string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileKey(owner, repo, branch, path)]
	return f.content, f.sha, ok
}

// FailPuts makes every following PUT answer status with message.
// A zero status restores normal behavior.
func (s *Server) FailPuts(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failMessage = message
}

// Requests returns how many requests were served for method.
func (s *Server) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method]
}

// Commits returns the commit messages of the accepted PUTs, oldest first.
func (s *Server) Commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commits...)
}

// Router returns the HTTP routes of the server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/repos/{owner}/{repo}/contents").Subrouter()
	api.Use(s.count, s.authorize)
	api.HandleFunc("/{path:.+}", s.getHandler).Methods(http.MethodGet)
	api.HandleFunc("/{path:.+}", s.putHandler).Methods(http.MethodPut)

	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeMessage(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	branch := r.URL.Query().Get("ref")
	if branch == "" {
		branch = "main"
	}

	s.mu.Lock()
	f, ok := s.files[fileKey(vars["owner"], vars["repo"], branch, vars["path"])]
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}

	body := []byte(`{"type":"file","encoding":"base64"}`)
	body, _ = sjson.SetBytes(body, "path", vars["path"])
	body, _ = sjson.SetBytes(body, "sha", f.sha)
	body, _ = sjson.SetBytes(body, "size", len(f.content))
	body, _ = sjson.SetBytes(body, "content", wrap(base64.StdEncoding.EncodeToString(f.content), 60))
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) putHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	b, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(b) {
		writeMessage(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}
	req := gjson.ParseBytes(b)
	if !req.Get("message").Exists() || !req.Get("content").Exists() {
		writeMessage(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.Get("content").String())
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}
	branch := req.Get("branch").String()
	if branch == "" {
		branch = "main"
	}
	sha := req.Get("sha").String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failStatus != 0 {
		writeMessage(w, s.failStatus, s.failMessage)
		return
	}

	key := fileKey(vars["owner"], vars["repo"], branch, vars["path"])
	cur, exists := s.files[key]
	switch {
	case exists && sha == "":
		writeMessage(w, http.StatusUnprocessableEntity, `Invalid request. "sha" wasn't supplied.`)
		return
	case exists && sha != cur.sha:
		writeMessage(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", vars["path"], sha))
		return
	case !exists && sha != "":
		writeMessage(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s does not exist", vars["path"]))
		return
	}

	next := file{content: content, sha: BlobSHA(content)}
	s.files[key] = next
	s.commits = append(s.commits, req.Get("message").String())

	logging.L.Debug("file committed",
		zap.String("file", key),
		zap.String("sha", next.sha),
		zap.Bool("created", !exists),
	)

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "content.path", vars["path"])
	body, _ = sjson.SetBytes(body, "content.sha", next.sha)
	body, _ = sjson.SetBytes(body, "commit.message", req.Get("message").String())
	writeJSON(w, status, body)
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	body, _ := sjson.SetBytes([]byte(`{}`), "message", message)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
