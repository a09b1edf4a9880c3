package auth

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

// ExtractToken returns the session token carried by r. A "token" cookie
// wins whenever it is present, even when empty; otherwise the
// Authorization header is used if it starts with "Bearer " (case-sensitive).
func ExtractToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(common.TokenCookieName); err == nil {
		return c.Value, true
	}
	return bearer(r.Header.Get(common.AuthorizationHeader))
}

// ExtractTokenFromMetadata is the gRPC counterpart of ExtractToken: the
// "token" key first, then "authorization" with the bearer prefix.
func ExtractTokenFromMetadata(md metadata.MD) (string, bool) {
	if v := md.Get(common.TokenMetadataKey); len(v) > 0 {
		return v[0], true
	}
	if v := md.Get(common.AuthorizationMetadataKey); len(v) > 0 {
		return bearer(v[0])
	}
	return "", false
}

func bearer(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok {
		return "", false
	}
	return token, true
}
