package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adanyl0v/go-task-tracker/internal/services"
)

const (
	requestIDHeader   = "X-Request-ID"
	accessTokenCookie = "access_token"
	actorTypeUser     = "user"
)

func (h *handlerImpl) HandleRequestLoggerMiddleware(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)

	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	event := h.logger.Info()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.
		Str("request_id", requestID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Str("client_ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Msg("handled request")
}

// HandleActorMiddleware attaches the acting principal to the request
// context. Requests without a token act as the system actor; a token
// that is present but invalid is rejected.
func (h *handlerImpl) HandleActorMiddleware(c *gin.Context) {
	if len(h.jwtSigningKey) == 0 {
		c.Next()
		return
	}

	accessToken, err := h.accessToken(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid authorization header")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
		return
	}
	if accessToken == "" {
		c.Next()
		return
	}

	claims, err := h.parseJWTToken(accessToken)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse token")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
		return
	}

	actorID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("subject", claims.Subject).
			Msg("token subject is not a numeric user id")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
		return
	}

	ctx := services.WithActor(c.Request.Context(), services.Actor{
		Type: actorTypeUser,
		ID:   &actorID,
	})
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// accessToken reads the bearer token from the Authorization header,
// falling back to the access token cookie.
func (h *handlerImpl) accessToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		token, _ := c.Cookie(accessTokenCookie)
		return token, nil
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
		return "", fmt.Errorf("malformed authorization header")
	}
	return parts[1], nil
}

func (h *handlerImpl) parseJWTToken(token string) (*jwt.RegisteredClaims, error) {
	t, err := jwt.ParseWithClaims(
		token,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSigningKey, nil
		},
		jwt.WithIssuer(h.jwtIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("failed to parse token claims")
	}
	return claims, nil
}
