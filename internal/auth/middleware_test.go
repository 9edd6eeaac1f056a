package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linkstash/internal/config"
	"linkstash/internal/entities"
)

type fakeUserStore struct {
	users map[string]*entities.User
}

func (f *fakeUserStore) GetUserByToken(token string) (*entities.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func setupRouter(m *Middleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/api/items", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestNoneModeInjectsDefaultUser(t *testing.T) {
	m := NewMiddleware(nil, config.Auth{Mode: config.AuthModeNone}, 3)
	r := setupRouter(m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":3`)
}

func TestTokenModeRejectsMissingHeader(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entities.User{}}
	m := NewMiddleware(store, config.Auth{Mode: config.AuthModeToken}, 0)
	r := setupRouter(m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenModeRejectsUnknownToken(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entities.User{}}
	m := NewMiddleware(store, config.Auth{Mode: config.AuthModeToken}, 0)
	r := setupRouter(m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Token nope")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenModeAcceptsBothSchemes(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entities.User{
		"secret": {ID: 12, Username: "reader"},
	}}
	m := NewMiddleware(store, config.Auth{Mode: config.AuthModeToken}, 0)
	r := setupRouter(m)

	for _, header := range []string{"Token secret", "Bearer secret", "token secret"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "header %q", header)
		assert.Contains(t, w.Body.String(), `"user_id":12`)
	}
}

func TestTokenModeAllowsPublicPaths(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entities.User{}}
	m := NewMiddleware(store, config.Auth{Mode: config.AuthModeToken}, 0)
	r := setupRouter(m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc", extractToken("Token abc"))
	assert.Equal(t, "abc", extractToken("Bearer abc"))
	assert.Equal(t, "", extractToken(""))
	assert.Equal(t, "", extractToken("Basic abc"))
	assert.Equal(t, "", extractToken("Token"))
}
