package parcelhub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coregx/parcelhub/model"
)

// IdentityVerifier resolves a credential token into the identity it belongs to.
//
// Implementations return AUTHENTICATION_FAILURE for missing, malformed or
// expired tokens and IDENTITY_NOT_FOUND when the token is valid but the
// account is gone or inactive.
type IdentityVerifier interface {
	Resolve(ctx context.Context, token string) (model.Identity, error)
}

// IdentityVerifierFunc adapts a function to IdentityVerifier.
type IdentityVerifierFunc func(ctx context.Context, token string) (model.Identity, error)

// Resolve calls f(ctx, token).
func (f IdentityVerifierFunc) Resolve(ctx context.Context, token string) (model.Identity, error) {
	return f(ctx, token)
}

// TokenClaim is the JWT payload issued by the auth service.
// The subject carries the identity id.
type TokenClaim struct {
	jwt.RegisteredClaims
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role"`
}

// JWTVerifier verifies HS256 tokens and looks the subject up in the user store.
type JWTVerifier struct {
	secret []byte
	users  IdentityRepository
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
// users is required: identities are always re-read from the store so that a
// deleted or deactivated account cannot connect with a still-valid token.
func NewJWTVerifier(secret []byte, users IdentityRepository) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, NewError(ErrCodeConfiguration, "JWT secret is required")
	}
	if users == nil {
		return nil, NewError(ErrCodeConfiguration, "IdentityRepository is required")
	}
	return &JWTVerifier{secret: secret, users: users}, nil
}

// Resolve implements IdentityVerifier.
func (v *JWTVerifier) Resolve(ctx context.Context, token string) (model.Identity, error) {
	claim, err := v.Claims(token)
	if err != nil {
		return model.Identity{}, err
	}

	user, err := v.users.FindByID(ctx, claim.Subject)
	if err != nil {
		if IsNoData(err) {
			return model.Identity{}, NewErrorWithCause(ErrCodeIdentityNotFound, "identity not found", err)
		}
		return model.Identity{}, NewErrorWithCause(ErrCodeDatabase, "failed to load identity", err)
	}
	if !user.IsActive {
		return model.Identity{}, NewError(ErrCodeIdentityNotFound, "identity is inactive")
	}

	return user.Identity(), nil
}

// Claims verifies the token signature and expiry and returns its claims
// without consulting the user store.
func (v *JWTVerifier) Claims(token string) (*TokenClaim, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claim := &TokenClaim{}
	parsed, err := jwt.ParseWithClaims(token, claim, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeAuthentication, "invalid token", err)
	}
	if !parsed.Valid || claim.Subject == "" {
		return nil, NewError(ErrCodeAuthentication, "invalid token")
	}

	return claim, nil
}

// SignToken issues an HS256 token for identity, valid for ttl.
func SignToken(secret []byte, identity model.Identity, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claim := TokenClaim{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  identity.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claim).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
