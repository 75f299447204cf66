package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/si14444/roomie-backend/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// MemberIDKey is the context key for storing the acting member's id.
	MemberIDKey contextKey = "member_id"
	// TeamIDKey is the context key for storing the member's team id.
	TeamIDKey contextKey = "team_id"
)

// GetMemberID extracts the acting member id from the context.
// Returns empty string if not found.
func GetMemberID(ctx context.Context) string {
	memberID, _ := ctx.Value(MemberIDKey).(string)
	return memberID
}

// GetTeamID extracts the member's team id from the context.
// Returns empty string if not found.
func GetTeamID(ctx context.Context) string {
	teamID, _ := ctx.Value(TeamIDKey).(string)
	return teamID
}

// RequireAuth returns an interceptor that validates bearer tokens and
// requires authentication. It extracts the token from the Authorization
// header, validates it against the shared secret, and adds the member id
// and team id to the request context. Role resolution stays with the
// team directory; tokens carry identity only.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			claims, err := claimsFromHeader(jwtManager, req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			ctx = WithIdentity(ctx, claims.MemberID, claims.TeamID)
			return next(ctx, req)
		}
	}
}

// WithIdentity returns a context carrying the acting member's identity.
func WithIdentity(ctx context.Context, memberID, teamID string) context.Context {
	ctx = context.WithValue(ctx, MemberIDKey, memberID)
	return context.WithValue(ctx, TeamIDKey, teamID)
}

// ClaimsFromAuthorization validates a raw Authorization header value and
// returns the session claims. Used by streaming handlers, which cannot
// run unary interceptors.
func ClaimsFromAuthorization(jwtManager *auth.JWTManager, header string) (*auth.Claims, error) {
	return claimsFromHeader(jwtManager, header)
}

func claimsFromHeader(jwtManager *auth.JWTManager, header string) (*auth.Claims, error) {
	if header == "" {
		return nil, auth.ErrMissingToken
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, auth.ErrInvalidToken
	}

	return jwtManager.Validate(parts[1])
}
