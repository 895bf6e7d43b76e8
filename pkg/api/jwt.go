package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// WriteScope is the scope a token needs to publish realtime records.
const WriteScope = "write:disruptions"

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
}

func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

func (c CustomClaims) HasScope(expectedScope string) bool {
	for _, scope := range strings.Fields(c.Scope) {
		if scope == expectedScope {
			return true
		}
	}

	return false
}

// EnsureValidToken checks the bearer token against the Auth0 tenant at
// domain and requires the write scope.
func EnsureValidToken(domain string, audience string) (fiber.Handler, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)

		jwtToken, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || jwtToken == "" {
			c.Status(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		claimsI, err := jwtValidator.ValidateToken(c.UserContext(), jwtToken)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected auth token")

			c.Status(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Invalid auth token",
			})
		}

		claims := claimsI.(*validator.ValidatedClaims)
		customClaims, ok := claims.CustomClaims.(*CustomClaims)
		if !ok || !customClaims.HasScope(WriteScope) {
			c.Status(fiber.StatusForbidden)
			return c.JSON(fiber.Map{
				"error": "Insufficient scope",
			})
		}

		c.Locals("account_userid", claims.RegisteredClaims.Subject)

		return c.Next()
	}, nil
}
