package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/rs/zerolog"
)

type bareRetryKey struct{}

// withBareRetry marks a request whose 401 may come from a stale bearer rather
// than from the request itself; it is sent once more without the header.
func withBareRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, bareRetryKey{}, true)
}

func bareRetry(ctx context.Context) bool {
	v, _ := ctx.Value(bareRetryKey{}).(bool)
	return v
}

// bearerTransport reads the stored access token on every request to the API
// origin so calls always carry the latest credentials. Other hosts never see
// the token.
type bearerTransport struct {
	base   http.RoundTripper
	store  credentials.Store
	origin *url.URL
	logger zerolog.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" || !t.sameOrigin(req.URL) {
		return t.base.RoundTrip(req)
	}

	token, found, err := t.store.Get(req.Context(), credentials.AccessTokenKey)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", req.URL.Path).Msg("unable to read access token, sending request without it")
		return t.base.RoundTrip(req)
	}
	if !found || token == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	resp, err := t.base.RoundTrip(clone)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !bareRetry(req.Context()) {
		return resp, err
	}

	bare := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return resp, nil
		}
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		bare.Body = body
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	t.logger.Debug().Str("path", req.URL.Path).Msg("stored access token rejected, retrying without it")
	return t.base.RoundTrip(bare)
}

func (t *bearerTransport) sameOrigin(u *url.URL) bool {
	return t.origin == nil || (u.Scheme == t.origin.Scheme && u.Host == t.origin.Host)
}
