package middleware

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		header     string
		setupMocks func(m *serviceMocks.MockOwnerService)
		wantStatus int
		wantOwner  string
	}{
		{
			name:   "user_id string claim",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"user_id": "alice", "exp": exp}),
			setupMocks: func(m *serviceMocks.MockOwnerService) {
				m.On("Identify", mock.Anything, "alice").Return(model.Principal{OwnerID: "alice", Role: model.RoleUser}, nil)
			},
			wantStatus: fiber.StatusOK,
			wantOwner:  "alice",
		},
		{
			name:   "numeric user_id claim",
			header: "bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"user_id": 42, "exp": exp}),
			setupMocks: func(m *serviceMocks.MockOwnerService) {
				m.On("Identify", mock.Anything, "42").Return(model.Principal{OwnerID: "42", Role: model.RoleUser}, nil)
			},
			wantStatus: fiber.StatusOK,
			wantOwner:  "42",
		},
		{
			name:   "sub fallback",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "bob", "exp": exp}),
			setupMocks: func(m *serviceMocks.MockOwnerService) {
				m.On("Identify", mock.Anything, "bob").Return(model.Principal{OwnerID: "bob", Role: model.RoleAdmin}, nil)
			},
			wantStatus: fiber.StatusOK,
			wantOwner:  "bob",
		},
		{
			name:       "missing header",
			setupMocks: func(*serviceMocks.MockOwnerService) {},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), jwt.MapClaims{"user_id": "alice", "exp": exp}),
			setupMocks: func(*serviceMocks.MockOwnerService) {},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "wrong algorithm",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{"user_id": "alice", "exp": exp}),
			setupMocks: func(*serviceMocks.MockOwnerService) {},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"user_id": "alice", "exp": time.Now().Add(-time.Minute).Unix()}),
			setupMocks: func(*serviceMocks.MockOwnerService) {},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "no owner claim",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"exp": exp}),
			setupMocks: func(*serviceMocks.MockOwnerService) {},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "disabled owner",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"user_id": "gone", "exp": exp}),
			setupMocks: func(m *serviceMocks.MockOwnerService) {
				m.On("Identify", mock.Anything, "gone").Return(model.Principal{}, service.ErrForbidden)
			},
			wantStatus: fiber.StatusForbidden,
		},
		{
			name:   "owner lookup failure",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"user_id": "alice", "exp": exp}),
			setupMocks: func(m *serviceMocks.MockOwnerService) {
				m.On("Identify", mock.Anything, "alice").Return(model.Principal{}, errors.New("db down"))
			},
			wantStatus: fiber.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(serviceMocks.MockOwnerService)
			tt.setupMocks(m)

			app := fiber.New()
			app.Use(Auth(testSecret, m))
			app.Get("/me", func(c *fiber.Ctx) error {
				p, ok := PrincipalFrom(c)
				require.True(t, ok)
				return c.SendString(p.OwnerID)
			})

			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantOwner != "" {
				buf := new(bytes.Buffer)
				buf.ReadFrom(resp.Body)
				assert.Equal(t, tt.wantOwner, buf.String())
			}
			m.AssertExpectations(t)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		principal  *model.Principal
		wantStatus int
	}{
		{name: "admin", principal: &model.Principal{OwnerID: "root", Role: model.RoleAdmin}, wantStatus: fiber.StatusOK},
		{name: "user", principal: &model.Principal{OwnerID: "alice", Role: model.RoleUser}, wantStatus: fiber.StatusForbidden},
		{name: "anonymous", wantStatus: fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				if tt.principal != nil {
					c.Locals(PrincipalLocalKey, *tt.principal)
				}
				return c.Next()
			})
			app.Use(RequireAdmin())
			app.Get("/admin", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
