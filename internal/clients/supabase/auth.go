package supabase

import (
	"context"
	"encoding/json"

	"github.com/stockfolio/backend/internal/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Authenticate exchanges email/password for the user's identity via the
// auth service's password grant.
func (c *Client) Authenticate(ctx context.Context, email, password string) (domain.AuthUser, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/auth/v1/token")
	if err != nil {
		return domain.AuthUser{}, domain.Wrap(domain.KindCollaborator, "auth request failed", err)
	}

	if resp.IsError() {
		c.log.Debug().Int("status", resp.StatusCode()).Msg("Authentication rejected")
		return domain.AuthUser{}, domain.Ef(domain.KindValidation, "authentication failed with status %d", resp.StatusCode())
	}

	var token tokenResponse
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return domain.AuthUser{}, domain.Wrap(domain.KindCollaborator, "auth response malformed", err)
	}

	if token.User.ID == "" {
		return domain.AuthUser{}, domain.E(domain.KindCollaborator, "auth response carried no user id")
	}

	return domain.AuthUser{ID: token.User.ID, Email: token.User.Email}, nil
}
