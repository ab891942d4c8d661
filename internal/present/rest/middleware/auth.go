package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelfall/pixelfall/internal/domain"
	"github.com/pixelfall/pixelfall/internal/present/rest/presenter"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	config domain.Config
}

func NewAuthMiddleware(config domain.Config) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
	}
}

// IdentifyAdmin marks the request context when a valid admin bearer
// token is presented. It never rejects by itself.
func (s *AuthMiddleware) IdentifyAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyAdmin")
		defer span.End()

		authHeader := c.Request().Header.Get("authorization")

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipCheckAuthorization
			}

			{
				authType, token := split[0], split[1]
				if authType != "Bearer" {
					span.RecordError(fmt.Errorf("only Bearer is acceptable"))
					goto skipCheckAuthorization
				}

				err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminTokenHash), []byte(token))
				if err != nil {
					span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyAdmin: token mismatch"))
					goto skipCheckAuthorization
				}

				ctx = context.WithValue(ctx, domain.AdminAuthedCtxKey, true)
				span.SetAttributes(attribute.Bool("AdminAuthed", true))
			}
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireAdmin rejects requests whose context was not marked by
// IdentifyAdmin.
func (s *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authed, ok := c.Request().Context().Value(domain.AdminAuthedCtxKey).(bool)
		if !ok || !authed {
			return presenter.Unauthorized(c, "Unauthorized")
		}
		return next(c)
	}
}
