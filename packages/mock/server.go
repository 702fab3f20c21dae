// Package mock serves an in-process stand-in for the blog API: registration,
// post CRUD with json-server query semantics, and a permission prefix under
// which writes need a bearer token.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/db"
	"github.com/abdul-hamid-achik/postcheck/packages/fake"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultPort            = 3000
	DefaultProtectedPrefix = "/664"
	// defaultPageSize applies when _page is given without _limit.
	defaultPageSize = 10
	minPasswordLen  = 4
)

// Server is the mock blog API
type Server struct {
	router          *Router
	store           *db.Store
	port            int
	delay           time.Duration
	verbose         bool
	protectedPrefix string
	passwordCost    int
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose enables verbose logging
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithProtectedPrefix sets the path prefix under which writes need a token.
func WithProtectedPrefix(prefix string) Option {
	return func(s *Server) {
		s.protectedPrefix = ""
		if trimmed := strings.Trim(prefix, "/"); trimmed != "" {
			s.protectedPrefix = "/" + trimmed
		}
	}
}

// WithPasswordCost sets the bcrypt cost for stored passwords.
func WithPasswordCost(cost int) Option {
	return func(s *Server) {
		s.passwordCost = cost
	}
}

// NewServer creates a mock server backed by store.
func NewServer(store *db.Store, opts ...Option) *Server {
	s := &Server{
		router:          NewRouter(),
		store:           store,
		port:            DefaultPort,
		protectedPrefix: DefaultProtectedPrefix,
		passwordCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle(http.MethodPost, "/register", "register", s.handleRegister)
	s.router.Handle(http.MethodPost, "/login", "login", s.handleLogin)

	prefixes := []string{""}
	if s.protectedPrefix != "" {
		prefixes = append(prefixes, s.protectedPrefix)
	}
	for _, prefix := range prefixes {
		guard := s.public
		if prefix != "" {
			guard = s.requireToken
		}
		s.router.Handle(http.MethodGet, prefix+"/posts", "list posts", s.handleListPosts)
		s.router.Handle(http.MethodGet, prefix+"/posts/{{id}}", "get post", s.handleGetPost)
		s.router.Handle(http.MethodPost, prefix+"/posts", "create post", guard(s.handleCreatePost))
		s.router.Handle(http.MethodPut, prefix+"/posts/{{id}}", "replace post", guard(s.handleReplacePost))
		s.router.Handle(http.MethodPatch, prefix+"/posts/{{id}}", "update post", guard(s.handlePatchPost))
		s.router.Handle(http.MethodDelete, prefix+"/posts/{{id}}", "delete post", guard(s.handleDeletePost))
	}
}

// Seed inserts n posts with fake content.
func (s *Server) Seed(ctx context.Context, n int, gen *fake.Generator) error {
	for i := 0; i < n; i++ {
		post := db.Post{
			"title":    gen.Sentence(),
			"content":  gen.Paragraph(),
			"author":   gen.UserName(),
			"postDate": gen.Now(),
		}
		if _, err := s.store.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("seeding post %d: %w", i+1, err)
		}
	}
	return nil
}

// Handler returns the server's http.Handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// Start starts the mock server
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server with context for graceful shutdown
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Mock server starting on http://localhost:%d (%s)", s.port, s.store.Dialect())
	if s.verbose {
		for _, route := range s.router.Routes() {
			log.Printf("  %s %s", route.Method, route.PathPattern)
		}
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	route, params, pathMatched := s.router.Match(r.Method, r.URL.Path)
	switch {
	case route != nil:
		route.Handler(rec, r, params)
	case pathMatched:
		writeJSON(rec, http.StatusMethodNotAllowed, map[string]any{})
	default:
		writeJSON(rec, http.StatusNotFound, map[string]any{})
	}

	if s.verbose {
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string       `json:"accessToken"`
	User        authUserInfo `json:"user"`
}

type authUserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if _, err := mail.ParseAddress(creds.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, "Email format is invalid")
		return
	}
	if len(creds.Password) < minPasswordLen {
		writeJSON(w, http.StatusBadRequest, "Password is too short")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.passwordCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	user, err := s.store.CreateUser(r.Context(), strings.ToLower(creds.Email), string(hash), uuid.NewString())
	if errors.Is(err, db.ErrDuplicate) {
		writeJSON(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		AccessToken: user.Token,
		User:        authUserInfo{ID: user.ID, Email: user.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), strings.ToLower(creds.Email))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "Cannot find user")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, "Incorrect password")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken: user.Token,
		User:        authUserInfo{ID: user.ID, Email: user.Email},
	})
}

func (s *Server) public(next HandlerFunc) HandlerFunc {
	return next
}

// requireToken rejects requests without a bearer token issued by this server.
func (s *Server) requireToken(next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeJSON(w, http.StatusUnauthorized, "Incorrect authorization header")
			return
		}
		if _, err := s.store.UserByToken(r.Context(), token); err != nil {
			writeJSON(w, http.StatusUnauthorized, "jwt malformed")
			return
		}
		next(w, r, params)
	}
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	filter := db.PostFilter{IDs: q["id"]}

	page, _ := strconv.Atoi(q.Get("_page"))
	limit, _ := strconv.Atoi(q.Get("_limit"))
	if page > 0 && limit <= 0 {
		limit = defaultPageSize
	}
	if limit > 0 {
		total, err := s.store.CountPosts(r.Context(), filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		filter.Page = page
		filter.Limit = limit
	}

	posts, err := s.store.ListPosts(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	post, err := s.store.GetPost(r.Context(), params["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	post, ok := decodePost(w, r)
	if !ok {
		return
	}

	created, err := s.store.CreatePost(r.Context(), post)
	if errors.Is(err, db.ErrDuplicate) {
		writeJSON(w, http.StatusInternalServerError, "Insert failed, duplicate id")
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleReplacePost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	post, ok := decodePost(w, r)
	if !ok {
		return
	}

	replaced, err := s.store.ReplacePost(r.Context(), params["id"], post)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replaced)
}

func (s *Server) handlePatchPost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	patch, ok := decodePost(w, r)
	if !ok {
		return
	}

	existing, err := s.store.GetPost(r.Context(), params["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	for k, v := range patch {
		existing[k] = v
	}

	updated, err := s.store.ReplacePost(r.Context(), params["id"], existing)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if err := s.store.DeletePost(r.Context(), params["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func decodePost(w http.ResponseWriter, r *http.Request) (db.Post, bool) {
	var post db.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil || post == nil {
		writeJSON(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	return post, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
