package middleware

import (
	jwtPkg "FaceGate/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type tokenMiddleware struct {
	enabled bool
	secret  string
}

func newTokenMiddleware(enabled bool, secret string) *tokenMiddleware {
	return &tokenMiddleware{
		enabled: enabled,
		secret:  secret,
	}
}

// NewTokenMiddleware lets every request through unless auth is enabled.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	if !m.token.enabled {
		return ctx.Next()
	}

	unauthorized := func(reason string) error {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"method":    ctx.Method(),
			"client_ip": ctx.IP(),
			"error":     reason,
		}).Warn("Token verification failed")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, access token invalid or expired",
		})
	}

	token, err := jwtPkg.VerifyTokenHeader(ctx, m.token.secret)
	if err != nil {
		return unauthorized(err.Error())
	}

	client, err := jwtPkg.ClientFromClaims(token)
	if err != nil {
		return unauthorized(err.Error())
	}

	ctx.Locals(jwtPkg.ClientLocalsKey, client)

	m.log.WithField("client_id", client.ID).Debug("Authentication successful")
	return ctx.Next()
}
