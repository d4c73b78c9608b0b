package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
	UserNameKey  contextKey = "user_name"
	UserEmailKey contextKey = "user_email"
)

const (
	RoleAdmin        = "admin"
	RoleNutritionist = "nutritionist"
	RoleClient       = "client"
)

// Claims is the token payload. The subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Principal is the authenticated caller as seen by handlers and services.
type Principal struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p Principal) IsAdmin() bool        { return p.Role == RoleAdmin }
func (p Principal) IsNutritionist() bool { return p.Role == RoleNutritionist }
func (p Principal) IsClient() bool       { return p.Role == RoleClient }

type JWTConfig struct {
	SigningKey []byte
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := ParseToken(strings.TrimSpace(parts[1]), cfg.SigningKey)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := WithPrincipal(c.Request().Context(), Principal{
				ID:    claims.Subject,
				Role:  claims.Role,
				Name:  claims.Name,
				Email: claims.Email,
			})
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", claims.Subject)

			return next(c)
		}
	}
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(tokenStr string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// WithPrincipal stores the caller on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.ID)
	ctx = context.WithValue(ctx, UserRoleKey, p.Role)
	ctx = context.WithValue(ctx, UserNameKey, p.Name)
	ctx = context.WithValue(ctx, UserEmailKey, p.Email)
	return ctx
}

func PrincipalFromContext(ctx context.Context) Principal {
	return Principal{
		ID:    UserIDFromContext(ctx),
		Role:  RoleFromContext(ctx),
		Name:  stringValue(ctx, UserNameKey),
		Email: stringValue(ctx, UserEmailKey),
	}
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, UserRoleKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
