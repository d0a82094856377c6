package middleware

import (
	"context"
	"strings"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/authz"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set for downstream handlers
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
	LocalIdentity  = "identity"
)

// IdentityResolver turns a bearer token into the acting user
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*authz.Identity, error)
}

// Guard enforces the requirement set declared for each route
type Guard struct {
	identities IdentityResolver
	evaluator  *authz.Evaluator
}

func NewGuard(identities IdentityResolver, evaluator *authz.Evaluator) *Guard {
	return &Guard{identities: identities, evaluator: evaluator}
}

// Require returns the middleware for one route
func (g *Guard) Require(req authz.Requirements) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Public routes never look at the caller
		if req.Public {
			return c.Next()
		}

		identity, err := g.identify(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": apperror.Message(err)})
		}

		if err := g.evaluator.Authorize(c.UserContext(), identity, req); err != nil {
			return c.Status(apperror.HTTPStatus(err)).JSON(fiber.Map{"error": apperror.Message(err)})
		}

		if identity != nil {
			c.Locals(LocalUserID, identity.UserID.String())
			c.Locals(LocalUserEmail, identity.Email)
			c.Locals(LocalIdentity, identity)
		}
		return c.Next()
	}
}

// identify returns nil without error when no credential was sent
func (g *Guard) identify(c *fiber.Ctx) (*authz.Identity, error) {
	// Get Authorization header
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, apperror.Unauthenticated("invalid authorization format, use: Bearer <token>")
	}

	identity, err := g.identities.ResolveIdentity(c.UserContext(), parts[1])
	if err != nil {
		if apperror.IsAuthError(err) {
			return nil, err
		}
		return nil, apperror.Unauthenticated("invalid or expired token")
	}
	return identity, nil
}

// CurrentIdentity returns the identity stored by Guard, if any
func CurrentIdentity(c *fiber.Ctx) *authz.Identity {
	identity, _ := c.Locals(LocalIdentity).(*authz.Identity)
	return identity
}
