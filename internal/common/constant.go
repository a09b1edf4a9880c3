package common

// TokenCookieName is the cookie that carries the session token.
const TokenCookieName = "token"

// AuthorizationHeader and BearerPrefix describe the header-based transport.
// The prefix match is case-sensitive.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

// TokenMetadataKey and AuthorizationMetadataKey are the gRPC metadata keys
// checked for a session token, in that order.
const (
	TokenMetadataKey         = "token"
	AuthorizationMetadataKey = "authorization"
)
