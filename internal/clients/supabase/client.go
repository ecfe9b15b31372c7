// Package supabase implements the record store contract against a hosted
// PostgREST-style REST interface, plus the password-grant call on the
// bundled auth service.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/storage"
)

// Config holds the connection settings injected at construction
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the hosted database over REST. It implements
// storage.Store.
type Client struct {
	client *resty.Client
	log    zerolog.Logger
}

// New creates a new client. The API key is attached to every request;
// row-level security on the hosted side scopes what it can reach.
func New(cfg Config, log zerolog.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client: client,
		log:    log.With().Str("client", "supabase").Logger(),
	}
}

// Select fetches rows from a collection into dest (a pointer to a slice)
func (c *Client) Select(ctx context.Context, collection string, filter storage.Filter, dest interface{}, opts ...storage.Option) error {
	var q storage.Query
	for _, opt := range opts {
		opt(&q)
	}

	req := c.client.R().SetContext(ctx).SetQueryParams(eqParams(filter))
	if q.Order != "" {
		req.SetQueryParam("order", q.Order)
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(q.Limit))
	}

	resp, err := req.Get("/rest/v1/" + collection)
	if err != nil {
		return domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store select on %s failed", collection), err)
	}

	if resp.IsError() {
		return c.statusError("select", collection, resp)
	}

	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store select on %s returned malformed rows", collection), err)
	}

	return nil
}

// Insert creates a row. When created is non-nil the stored
// representation (a JSON array of the new rows) is unmarshalled into it.
func (c *Client) Insert(ctx context.Context, collection string, record interface{}, created interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(record).
		Post("/rest/v1/" + collection)
	if err != nil {
		return domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store insert into %s failed", collection), err)
	}

	if resp.IsError() {
		return c.statusError("insert", collection, resp)
	}

	if created != nil {
		if err := json.Unmarshal(resp.Body(), created); err != nil {
			return domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store insert into %s returned malformed rows", collection), err)
		}
	}

	return nil
}

// Update patches all rows matching filter and returns how many rows were
// affected. Zero affected rows with a conditional filter means a
// concurrent writer won the race.
func (c *Client) Update(ctx context.Context, collection string, filter storage.Filter, fields interface{}) (int, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(eqParams(filter)).
		SetBody(fields).
		Patch("/rest/v1/" + collection)
	if err != nil {
		return 0, domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store update on %s failed", collection), err)
	}

	if resp.IsError() {
		return 0, c.statusError("update", collection, resp)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return 0, domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store update on %s returned malformed rows", collection), err)
	}

	return len(rows), nil
}

// Delete removes all rows matching filter
func (c *Client) Delete(ctx context.Context, collection string, filter storage.Filter) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(eqParams(filter)).
		Delete("/rest/v1/" + collection)
	if err != nil {
		return domain.Wrap(domain.KindCollaborator, fmt.Sprintf("record store delete on %s failed", collection), err)
	}

	if resp.IsError() {
		return c.statusError("delete", collection, resp)
	}

	return nil
}

func (c *Client) statusError(op, collection string, resp *resty.Response) error {
	c.log.Error().
		Str("op", op).
		Str("collection", collection).
		Int("status", resp.StatusCode()).
		Str("body", string(resp.Body())).
		Msg("Record store request rejected")

	return domain.Ef(domain.KindCollaborator, "record store %s on %s returned status %d", op, collection, resp.StatusCode())
}

// eqParams renders the filter as PostgREST equality predicates
func eqParams(filter storage.Filter) map[string]string {
	params := make(map[string]string, len(filter))
	for column, value := range filter {
		params[column] = "eq." + value
	}
	return params
}
