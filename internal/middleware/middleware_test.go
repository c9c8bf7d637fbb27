package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmacy_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedEngine(t *testing.T, jm *utils.JWTManager, roles ...string) *gin.Engine {
	t.Helper()
	engine := gin.New()
	group := engine.Group("/", AuthMiddleware(jm))
	if len(roles) > 0 {
		group.Use(RoleAuthMiddleware(roles...))
	}
	group.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":     c.GetInt64(ContextUserID),
			"tenant": c.GetInt64(ContextTenantID),
			"email":  c.GetString(ContextEmail),
			"role":   c.GetString(ContextUserRole),
		})
	})
	return engine
}

func TestAuthMiddleware(t *testing.T) {
	jm, err := utils.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := utils.NewJWTManager("another-secret", time.Hour)
	require.NoError(t, err)

	valid, err := jm.GenerateAccessToken(7, "chem@example.com", "chemist")
	require.NoError(t, err)
	forged, err := other.GenerateAccessToken(7, "chem@example.com", "admin")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"bad signature", "Bearer " + forged, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
	}

	engine := newProtectedEngine(t, jm)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"tenant":7,"email":"chem@example.com","role":"chemist"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), utils.ErrCodeUnauthorized)
			}
		})
	}
}

func TestAuthMiddlewareStaffTenant(t *testing.T) {
	jm, err := utils.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := jm.GenerateTenantAccessToken(12, 7, "staff@example.com", "drugist")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newProtectedEngine(t, jm).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":12,"tenant":7,"email":"staff@example.com","role":"drugist"}`, w.Body.String())
}

func TestRoleAuthMiddleware(t *testing.T) {
	jm, err := utils.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	engine := newProtectedEngine(t, jm, "admin")

	for role, status := range map[string]int{"admin": http.StatusOK, "ADMIN": http.StatusOK, "drugist": http.StatusForbidden} {
		token, err := jm.GenerateAccessToken(1, "u@example.com", role)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, role)
	}
}

func TestRoleAuthMiddlewareWithoutAuth(t *testing.T) {
	engine := gin.New()
	engine.GET("/admin", RoleAuthMiddleware("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTraceIDMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(TraceIDMiddleware())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("trace_id")) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get("X-Trace-ID")
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", incoming)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get("X-Trace-ID"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", "<script>")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get("X-Trace-ID"))
}
