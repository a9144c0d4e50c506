package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/kuitang/notekeep/internal/errs"
	"golang.org/x/oauth2"
)

// ErrMissingToken is returned when no access token is supplied.
var ErrMissingToken = errors.New("access token is required")

// Resolver turns an access token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*Identity, error)
}

// UserInfoResolver resolves identities through an OIDC provider's userinfo endpoint.
type UserInfoResolver struct {
	provider *oidc.Provider
}

// NewUserInfoResolver discovers the provider at issuer
// (e.g. https://accounts.google.com) and resolves through its userinfo endpoint.
func NewUserInfoResolver(ctx context.Context, issuer string) (*UserInfoResolver, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &UserInfoResolver{provider: provider}, nil
}

// NewUserInfoResolverForURL skips discovery and calls userInfoURL directly.
func NewUserInfoResolverForURL(ctx context.Context, issuer, userInfoURL string) *UserInfoResolver {
	cfg := &oidc.ProviderConfig{
		IssuerURL:   issuer,
		UserInfoURL: userInfoURL,
	}
	return &UserInfoResolver{provider: cfg.NewProvider(ctx)}
}

// Resolve fetches the profile for accessToken. Failures are PermissionDenied:
// the caller stays in guest mode.
func (r *UserInfoResolver) Resolve(ctx context.Context, accessToken string) (*Identity, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errs.Wrap(errs.InvalidArgument, "access token is required", ErrMissingToken)
	}

	info, err := r.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, errs.Wrap(errs.PermissionDenied, "sign-in failed", err)
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, errs.Wrap(errs.PermissionDenied, "sign-in failed", fmt.Errorf("failed to parse userinfo claims: %w", err))
	}
	if claims.Sub == "" {
		claims.Sub = info.Subject
	}
	if claims.Sub == "" {
		return nil, errs.New(errs.PermissionDenied, "sign-in failed: userinfo has no subject")
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return &Identity{
		ID:          claims.Sub,
		Email:       claims.Email,
		DisplayName: name,
		AvatarURL:   claims.Picture,
	}, nil
}

// StaticResolver returns a fixed identity for any non-empty token.
// Used for local development and tests.
type StaticResolver struct {
	Identity *Identity
}

func (s StaticResolver) Resolve(_ context.Context, accessToken string) (*Identity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errs.Wrap(errs.InvalidArgument, "access token is required", ErrMissingToken)
	}
	if s.Identity.IsGuest() {
		return nil, errs.New(errs.PermissionDenied, "sign-in failed")
	}
	id := *s.Identity
	return &id, nil
}
