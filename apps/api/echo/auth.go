package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}

	errNoTokenInCtx = errors.New("token not found in echo.Context")
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the external identity provider with a shared signing
// key; this app only verifies and reads them.
type Claims struct {
	jwt.StandardClaims
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"` // -> ADMIN PORTAL
}

// GetCallerClaims builds the claims minted for a caller; used by the admin
// CLI and tests.
func GetCallerClaims(id, email string, isAdmin bool) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   id,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:   email,
		IsAdmin: isAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(appJWTConfig.SigningKey.([]byte))
	return signed, errors.Wrap(err, "signing token")
}

func getContextToken(ctx echo.Context) (*jwt.Token, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		return token, nil
	}
	return nil, errNoTokenInCtx
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	token, err := getContextToken(ctx)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok {
		return claims, nil
	}
	return nil, errNoTokenInCtx
}

// getContextCaller resolves the explicit Caller passed into admin-gated
// service calls.
func getContextCaller(ctx echo.Context) (core.Caller, error) {
	token, err := getContextToken(ctx)
	if err != nil {
		return core.Caller{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return core.Caller{}, errNoTokenInCtx
	}
	return core.Caller{
		ID:      claims.Subject,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
		Token:   token.Raw,
	}, nil
}

// adminMiddleware rejects callers without the admin claim.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errUnauthorized
			}
			if !claims.IsAdmin {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
