package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const actorContextKey = "actor"

// ActorMiddleware extracts the acting user from a bearer token. The token
// only carries identity (user_id, role); the service performs no further
// authentication.
func ActorMiddleware(secret string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		ctx := gctx.Request.Context()

		header := gctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("missing bearer token"))
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}

			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.Ctx(ctx).Warn().Err(err).Str("component", "auth").Msg("invalid token")
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("invalid token", err))

			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("invalid token claims"))
			return
		}

		userId, _ := claims["user_id"].(string)
		roleClaim, _ := claims["role"].(string)

		role, err := ParseRole(roleClaim)
		if userId == "" || err != nil {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("invalid identity claims", err))
			return
		}

		gctx.Set(actorContextKey, Actor{UserId: userId, Role: role})
		gctx.Next()
	}
}

// ActorFromContext returns the actor placed by ActorMiddleware.
func ActorFromContext(gctx *gin.Context) (Actor, bool) {
	value, exists := gctx.Get(actorContextKey)
	if !exists {
		return Actor{}, false
	}

	actor, ok := value.(Actor)

	return actor, ok
}
