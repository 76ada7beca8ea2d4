package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return token
}

func TestActorMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
		expectedActor  *Actor
	}{
		{
			name: "valid token",
			authorization: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
				"user_id": "u-1",
				"role":    "coordinator",
			}),
			expectedStatus: http.StatusOK,
			expectedActor:  &Actor{UserId: "u-1", Role: RoleCoordinator},
		},
		{
			name:           "missing header",
			authorization:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "not a bearer token",
			authorization:  "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			authorization: "Bearer " + signToken(t, "other-secret", jwt.MapClaims{
				"user_id": "u-1",
				"role":    "coordinator",
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "missing user id claim",
			authorization: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
				"role": "coordinator",
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "unknown role claim",
			authorization: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
				"user_id": "u-1",
				"role":    "janitor",
			}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotActor *Actor

			router := gin.New()
			router.Use(ActorMiddleware(testSecret))
			router.GET("/ping", func(gctx *gin.Context) {
				if actor, ok := ActorFromContext(gctx); ok {
					gotActor = &actor
				}

				gctx.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedActor != nil {
				require.NotNil(t, gotActor)
				assert.Equal(t, *tt.expectedActor, *gotActor)
			} else {
				assert.Nil(t, gotActor)
			}
		})
	}
}
