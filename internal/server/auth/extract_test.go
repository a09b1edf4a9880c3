package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name      string
		cookie    *http.Cookie
		header    string
		wantToken string
		wantOK    bool
	}{
		{name: "nothing", wantOK: false},
		{name: "cookie only", cookie: &http.Cookie{Name: "token", Value: "A"}, wantToken: "A", wantOK: true},
		{name: "cookie wins over header", cookie: &http.Cookie{Name: "token", Value: "A"}, header: "Bearer B", wantToken: "A", wantOK: true},
		{name: "empty cookie still wins", cookie: &http.Cookie{Name: "token", Value: ""}, header: "Bearer B", wantToken: "", wantOK: true},
		{name: "other cookie ignored", cookie: &http.Cookie{Name: "session", Value: "A"}, header: "Bearer B", wantToken: "B", wantOK: true},
		{name: "bearer header", header: "Bearer B", wantToken: "B", wantOK: true},
		{name: "bearer with empty token", header: "Bearer ", wantToken: "", wantOK: true},
		{name: "lowercase scheme", header: "bearer B", wantOK: false},
		{name: "no space", header: "BearerB", wantOK: false},
		{name: "basic auth", header: "Basic dXNlcjpwdw==", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, ok := ExtractToken(r)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestExtractTokenFromMetadata(t *testing.T) {
	token, ok := ExtractTokenFromMetadata(metadata.Pairs("token", "A", "authorization", "Bearer B"))
	assert.True(t, ok)
	assert.Equal(t, "A", token)

	token, ok = ExtractTokenFromMetadata(metadata.Pairs("authorization", "Bearer B"))
	assert.True(t, ok)
	assert.Equal(t, "B", token)

	_, ok = ExtractTokenFromMetadata(metadata.Pairs("authorization", "Token B"))
	assert.False(t, ok)

	_, ok = ExtractTokenFromMetadata(metadata.MD{})
	assert.False(t, ok)
}
