// Remote verification client.
//
// The chat API does not re-implement signature checking and never holds the
// signing secret. It forwards the caller's Authorization header to the auth
// service /verify endpoint with a bounded timeout and maps the outcome onto
// the package's error taxonomy:
//
//   - 200           -> username
//   - any other 2xx -> ErrVerifierUnavailable (unexpected contract drift)
//   - 4xx           -> ErrUnauthorized
//   - 5xx           -> ErrVerifierUnavailable
//   - transport err -> ErrVerifierUnavailable
//
// There is no retry: a failed verification surfaces immediately, and retry
// policy belongs to the caller.
package token

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Verifier resolves an Authorization header value to a username.
type Verifier interface {
	Verify(ctx context.Context, authorization string) (string, error)
}

// RemoteVerifier calls the auth service /verify endpoint.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

// NewRemoteVerifier returns a verifier for the given /verify URL. The timeout
// bounds the whole round trip, connection establishment included.
func NewRemoteVerifier(url string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// verifyResponse mirrors the auth service's /verify success body.
type verifyResponse struct {
	Username string `json:"username"`
}

// Verify implements Verifier. Local header-shape errors are reported without
// a network round trip so that obviously broken requests do not consume the
// auth service's capacity.
func (v *RemoteVerifier) Verify(ctx context.Context, authorization string) (string, error) {
	if _, err := stripBearer(authorization); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return "", ErrVerifierUnavailable
	}
	req.Header.Set("Authorization", authorization)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", ErrVerifierUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Username == "" {
			return "", ErrVerifierUnavailable
		}
		return body.Username, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", ErrUnauthorized
	default:
		return "", ErrVerifierUnavailable
	}
}
