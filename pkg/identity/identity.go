// Package identity resolves bearer tokens to user ids against the external
// identity service. The token format is the identity service's business;
// this side only forwards it and reads the answer.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnauthenticated = errors.New("identity service rejected the token")

type Resolver interface {
	Resolve(ctx context.Context, bearerToken string) (uuid.UUID, error)
}

type httpResolver struct {
	baseUrl string
	hc      *http.Client
}

func NewHTTPResolver(baseUrl string, timeout time.Duration) Resolver {
	return &httpResolver{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

func (r *httpResolver) Resolve(ctx context.Context, bearerToken string) (uuid.UUID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseUrl+"/v1/me", nil)
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := r.hc.Do(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return uuid.Nil, ErrUnauthenticated
	default:
		return uuid.Nil, fmt.Errorf("identity service returned %d", resp.StatusCode)
	}

	var body struct {
		UserId uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return uuid.Nil, err
	}
	if body.UserId == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return body.UserId, nil
}
