// Package fakeapi is an in-process stand-in for the Reasoned backend used
// by tests. It implements the endpoint contracts with canned content; it
// is not a reference for how the real backend generates or scores quizzes.
package fakeapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	bearerPrefix = "Bearer "

	// DefaultFreeLimit is the number of free quiz generations per user
	DefaultFreeLimit = 5
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

// RecordedRequest captures what the backend received
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	RequestID     string
}

type user struct {
	Username     string
	Password     string
	Role         string
	IsPaid       bool
	AttemptsUsed int
}

// Backend is a running fake backend
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	secret    []byte
	tokenTTL  time.Duration
	freeLimit int
	users     map[string]*user
	materials []Material
	keys      map[string]answerKey
	requests  []RecordedRequest
}

// New starts a fake backend seeded with the default materials
func New() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		secret:    []byte("fakeapi-secret"),
		tokenTTL:  time.Hour,
		freeLimit: DefaultFreeLimit,
		users:     make(map[string]*user),
		materials: defaultMaterials(),
		keys:      make(map[string]answerKey),
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), b.recordRequest)

	api := r.Group("/api")
	api.POST("/register", b.register)
	api.POST("/login", b.login)
	api.GET("/meta", b.meta)

	authed := api.Group("", b.requireAuth)
	authed.GET("/me", b.me)
	authed.GET("/materials", b.listMaterials)
	authed.GET("/material/:id", b.getMaterial)
	authed.POST("/tutor_chat", b.tutorChat)
	authed.POST("/generate_set", b.generateSet)
	authed.POST("/check_set", b.checkSet)
	authed.POST("/explain", b.explain)

	return r
}

// AddUser registers a user directly
func (b *Backend) AddUser(username, password, role string, isPaid bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = &user{Username: username, Password: password, Role: role, IsPaid: isPaid}
}

// SetAttemptsUsed overrides a user's quota consumption
func (b *Backend) SetAttemptsUsed(username string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u, ok := b.users[username]; ok {
		u.AttemptsUsed = n
	}
}

// AttemptsUsed returns a user's quota consumption
func (b *Backend) AttemptsUsed(username string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u, ok := b.users[username]; ok {
		return u.AttemptsUsed
	}
	return 0
}

// SetTokenTTL changes the lifetime of issued tokens; negative values
// issue already expired tokens
func (b *Backend) SetTokenTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenTTL = ttl
}

// SetMaterials replaces the seeded materials
func (b *Backend) SetMaterials(materials []Material) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.materials = materials
}

// IssueToken returns a signed token for username
func (b *Backend) IssueToken(username string) (string, error) {
	b.mu.Lock()
	ttl := b.tokenTTL
	b.mu.Unlock()

	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// Requests returns a copy of every request received so far
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent request
func (b *Backend) LastRequest() (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return RecordedRequest{}, false
	}
	return b.requests[len(b.requests)-1], true
}

func (b *Backend) recordRequest(c *gin.Context) {
	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		RawQuery:      c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
		ContentType:   c.GetHeader("Content-Type"),
		RequestID:     c.GetHeader("X-Request-ID"),
	})
	b.mu.Unlock()
	c.Next()
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func (b *Backend) requireAuth(c *gin.Context) {
	tokenString, err := extractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		abortDetail(c, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			abortDetail(c, http.StatusUnauthorized, "Token expired")
			return
		}
		abortDetail(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	b.mu.Lock()
	u, ok := b.users[claims.Subject]
	b.mu.Unlock()
	if !ok {
		abortDetail(c, http.StatusUnauthorized, "User not found")
		return
	}

	c.Set("user", u)
	c.Next()
}

func currentUser(c *gin.Context) *user {
	return c.MustGet("user").(*user)
}

func abortDetail(c *gin.Context, status int, detail any) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
