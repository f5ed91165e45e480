package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-bom/internal/application/dto"
	apphttp "github.com/jhoicas/inventario-bom/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-bom/pkg/jwt"
)

const authSecret = "auth-test-secret"

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(authSecret, userID, role, "inventario-bom", 10)
	require.NoError(t, err)
	return "Bearer " + tok
}

func expiredBearer(t *testing.T) string {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	claims := pkgjwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			IssuedAt:  gojwt.NewNumericDate(past.Add(-time.Minute)),
			ExpiresAt: gojwt.NewNumericDate(past),
		},
		UserID: "u-viejo",
		Role:   pkgjwt.RoleAdmin,
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(authSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

// guardedApp expone /guarded con auth + RBAC y devuelve los locals si pasa.
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded", apphttp.AuthMiddleware(authSecret), apphttp.RequireRole(roles...), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": apphttp.GetUserID(c), "role": apphttp.GetRole(c)})
	})
	return app
}

func TestAuthMiddlewareYRequireRole(t *testing.T) {
	writeRoles := []string{pkgjwt.RoleAdmin, pkgjwt.RoleOperator}

	cases := []struct {
		name     string
		roles    []string
		header   func(t *testing.T) string
		status   int
		code     string
		wantRole string
	}{
		{
			name:     "admin en ruta de administración",
			roles:    []string{pkgjwt.RoleAdmin},
			header:   func(t *testing.T) string { return bearer(t, "u-1", pkgjwt.RoleAdmin) },
			status:   http.StatusOK,
			wantRole: pkgjwt.RoleAdmin,
		},
		{
			name:     "operador en ruta de escritura",
			roles:    writeRoles,
			header:   func(t *testing.T) string { return bearer(t, "u-2", pkgjwt.RoleOperator) },
			status:   http.StatusOK,
			wantRole: pkgjwt.RoleOperator,
		},
		{
			name:   "consulta en ruta de escritura",
			roles:  writeRoles,
			header: func(t *testing.T) string { return bearer(t, "u-3", pkgjwt.RoleViewer) },
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "token sin rol",
			roles:  writeRoles,
			header: func(t *testing.T) string { return bearer(t, "u-4", "") },
			status: http.StatusUnauthorized,
			code:   "MISSING_ROLE",
		},
		{
			name:   "sin cabecera",
			roles:  writeRoles,
			header: func(t *testing.T) string { return "" },
			status: http.StatusUnauthorized,
			code:   "MISSING_TOKEN",
		},
		{
			name:   "esquema basic",
			roles:  writeRoles,
			header: func(t *testing.T) string { return "Basic dXNlcjpwYXNz" },
			status: http.StatusUnauthorized,
			code:   "INVALID_TOKEN",
		},
		{
			name:   "token malformado",
			roles:  writeRoles,
			header: func(t *testing.T) string { return "Bearer no.es.jwt" },
			status: http.StatusUnauthorized,
			code:   "INVALID_TOKEN",
		},
		{
			name:   "token expirado",
			roles:  writeRoles,
			header: expiredBearer,
			status: http.StatusUnauthorized,
			code:   "INVALID_TOKEN",
		},
		{
			name:  "firma con otro secreto",
			roles: writeRoles,
			header: func(t *testing.T) string {
				tok, err := pkgjwt.Generate("otro-secreto", "u-5", pkgjwt.RoleAdmin, "", 10)
				require.NoError(t, err)
				return "Bearer " + tok
			},
			status: http.StatusUnauthorized,
			code:   "INVALID_TOKEN",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if h := tc.header(t); h != "" {
				req.Header.Set("Authorization", h)
			}
			resp, err := guardedApp(tc.roles...).Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tc.status, resp.StatusCode)
			if tc.status == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tc.wantRole, body["role"])
				assert.NotEmpty(t, body["user_id"])
				return
			}
			var errBody dto.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
			assert.Equal(t, tc.code, errBody.Code)
		})
	}
}
