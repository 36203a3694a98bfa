package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"

	headerUserID = "X-User-Id"
)

// AuthConfig selects how caller identity is resolved. Header mode trusts an
// upstream gateway to set X-User-Id; jwt mode verifies an HS256 bearer token
// and reads its subject.
type AuthConfig struct {
	Mode      string
	JWTSecret string
}

type AuthMiddleware struct {
	log    *logger.Logger
	mode   string
	secret []byte
	parser *jwt.Parser
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) (*AuthMiddleware, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = AuthModeJWT
	}
	am := &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		mode:   mode,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
	switch mode {
	case AuthModeJWT:
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return nil, errors.New("auth: jwt mode requires a secret")
		}
		am.secret = []byte(cfg.JWTSecret)
	case AuthModeHeader:
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", cfg.Mode)
	}
	return am, nil
}

// RequireUser rejects requests without a resolvable, non-anonymous identity.
func (am *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := am.identify(c)
		if err != nil || ctxutil.IsAnonymous(userID) {
			msg := "missing or invalid credentials"
			if err != nil {
				am.log.Debug("Auth rejected", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": msg, "code": "unauthorized"},
			})
			return
		}
		am.attach(c, userID)
		c.Next()
	}
}

// OptionalUser attaches an identity when one is present and otherwise leaves
// the request anonymous. Invalid tokens are still rejected.
func (am *AuthMiddleware) OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := am.identify(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "invalid credentials", "code": "unauthorized"},
			})
			return
		}
		if userID == "" {
			userID = ctxutil.AnonymousUserID
		}
		am.attach(c, userID)
		c.Next()
	}
}

func (am *AuthMiddleware) identify(c *gin.Context) (string, error) {
	if am.mode == AuthModeHeader {
		return strings.TrimSpace(c.GetHeader(headerUserID)), nil
	}
	tokenString := extractToken(c)
	if tokenString == "" {
		return "", nil
	}
	var claims jwt.RegisteredClaims
	token, err := am.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return am.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

func (am *AuthMiddleware) attach(c *gin.Context, userID string) {
	ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{ExternalUserID: userID})
	c.Request = c.Request.WithContext(ctx)
	c.Set("external_user_id", userID)
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
