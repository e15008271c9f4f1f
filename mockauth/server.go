// Package mockauth is a stand-in authentication service for end-to-end test
// environments. It issues HS256 tokens for an in-memory user table and performs no
// real credential checks beyond string comparison.
package mockauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

const (
	DefaultAddr     = "0.0.0.0:8009"
	DefaultSecret   = "mock-secret-for-testing-only"
	DefaultTokenTTL = 24 * time.Hour

	ServiceName = "mock-auth-service"
)

// User is one row of the in-memory user table
type User struct {
	ID       int
	Email    string
	Password string
	Role     string
	TenantID string
}

// DefaultUsers returns the seeded test account
func DefaultUsers() []User {
	return []User{{
		ID:       1,
		Email:    "testuser@example.com",
		Password: "TestPassword123",
		Role:     "user",
		TenantID: "test-tenant-1",
	}}
}

type Config struct {
	Addr     string
	Secret   string
	Users    []User // Initial user table, copied on construction
	TokenTTL time.Duration
	Now      func() time.Time
	Log      log.Logger
}

type Service struct {
	addr     string
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	log      log.Logger

	mu    sync.Mutex
	users map[string]User

	server   *http.Server
	listener net.Listener
	running  atomic.Bool
}

// New validates cfg and creates the service. The user table is owned by the service.
func New(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	users := make(map[string]User, len(cfg.Users))
	for _, u := range cfg.Users {
		if u.Email == "" {
			return nil, errors.Errorf("user [%d] has no email", u.ID)
		}
		if _, dup := users[u.Email]; dup {
			return nil, errors.Errorf("user [%s] is configured twice", u.Email)
		}
		users[u.Email] = u
	}

	return &Service{
		addr:     cfg.Addr,
		secret:   []byte(cfg.Secret),
		tokenTTL: cfg.TokenTTL,
		now:      cfg.Now,
		log:      cfg.Log,
		users:    users,
	}, nil
}

// Handler returns the routed HTTP handler with permissive CORS
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// Start listens on the configured address and serves in the background
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.addr)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running.Store(true)
	s.log.Info("Starting mock auth service", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Mock auth service stopped unexpectedly", "err", err)
		}
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	s.log.Info("Stopping mock auth service")
	return s.server.Shutdown(ctx)
}

func (s *Service) Stopped() bool {
	return !s.running.Load()
}

// Addr returns the bound listen address once started
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// User returns the stored user for email
func (s *Service) User(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	return u, ok
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, errors.Wrap(err, "decoding request body")
	}
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return c, errors.New("email and password are required")
	}
	return c, nil
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
		return
	}

	user, ok := s.User(creds.Email)
	if !ok || user.Password != creds.Password {
		s.log.Info("Rejected login", "email", creds.Email)
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: "Invalid credentials"})
		return
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		s.log.Error("Failed to sign tokens", "err", err)
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	})
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[creds.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, detailResponse{Detail: "Email already registered"})
		return
	}
	id := len(s.users) + 1
	s.users[creds.Email] = User{
		ID:       id,
		Email:    creds.Email,
		Password: creds.Password,
		Role:     "user",
		TenantID: fmt.Sprintf("tenant-%d", id),
	}
	s.mu.Unlock()

	s.log.Info("Registered user", "email", creds.Email, "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": ServiceName})
}

// issueTokens signs an access token and a refresh token carrying the same claims
func (s *Service) issueTokens(u User) (string, string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":   u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"tenant_id": u.TenantID,
		"exp":       now.Add(s.tokenTTL).Unix(),
		"iat":       now.Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", errors.Wrap(err, "signing access token")
	}

	refreshClaims := jwt.MapClaims{"type": "refresh"}
	for k, v := range claims {
		refreshClaims[k] = v
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.secret)
	if err != nil {
		return "", "", errors.Wrap(err, "signing refresh token")
	}
	return access, refresh, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response", "error", err)
	}
}
