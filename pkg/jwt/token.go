package jwtPkg

import (
	"FaceGate/internal/entity"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const ClientLocalsKey = "client"

var ErrSecretNotConfigured = errors.New("JWT secret not configured")

func Sign(data map[string]interface{}, expiresIn time.Duration, secret string) (string, int64, error) {
	if secret == "" {
		return "", 0, ErrSecretNotConfigured
	}

	expiredAt := time.Now().Add(expiresIn).Unix()

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt
	claims["authorization"] = true

	for k, v := range data {
		claims[k] = v
	}

	logrus.WithField("claim_keys", len(claims)).Debug("Creating token with claims")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return accessToken, expiredAt, nil
}

func VerifyTokenHeader(c *fiber.Ctx, secret string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyTokenHeader")

	header := c.Get("Authorization")
	if header == "" {
		return nil, errors.New("empty Authorization header")
	}

	accessToken, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		log.Debug("Invalid Authorization format")
		return nil, errors.New("invalid Authorization format")
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errors.New("empty token")
	}

	return ParseToken(accessToken, secret)
}

func ParseToken(accessToken string, secret string) (*jwt.Token, error) {
	if secret == "" {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// ClientFromClaims requires an "id" claim; "name" is optional.
func ClientFromClaims(token *jwt.Token) (entity.ClientIdentity, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.ClientIdentity{}, errors.New("invalid token claims")
	}

	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return entity.ClientIdentity{}, errors.New("token claims are missing the client id")
	}

	name, _ := claims["name"].(string)

	return entity.ClientIdentity{ID: id, Name: name}, nil
}

func GetClient(c *fiber.Ctx) (entity.ClientIdentity, error) {
	client, ok := c.Locals(ClientLocalsKey).(entity.ClientIdentity)
	if !ok {
		return entity.ClientIdentity{}, fiber.ErrUnauthorized
	}

	return client, nil
}
