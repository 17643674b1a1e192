// Package explore is a GraphQL-over-HTTP client for the explorePublications
// query. It implements feed.ItemSource.
package explore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/unkn0wn-root/feedcache/feed"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrBody     = 512
)

const query = `query ExplorePublications($request: ExplorePublicationRequest!) {
  explorePublications(request: $request) {
    items {
      ... on Post {
        id
        createdAt
        profile { handle }
        metadata { content }
      }
    }
    pageInfo { next }
  }
}`

// GraphQLError carries the messages of a response's errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "explore: graphql: " + strings.Join(e.Messages, "; ")
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("explore: unexpected status %d: %s", e.Code, e.Body)
}

var ErrMalformed = errors.New("explore: malformed response")

type Config struct {
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	http     *http.Client
}

var _ feed.ItemSource = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	ep := strings.TrimSpace(cfg.Endpoint)
	if ep == "" {
		return nil, errors.New("explore: endpoint is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{endpoint: ep, http: hc}, nil
}

type variables struct {
	Request requestVars `json:"request"`
}

type requestVars struct {
	Where   whereVars    `json:"where"`
	OrderBy feed.OrderBy `json:"orderBy,omitempty"`
	Limit   feed.Limit   `json:"limit,omitempty"`
	Cursor  string       `json:"cursor,omitempty"`
}

type whereVars struct {
	PublicationTypes []feed.PublicationType `json:"publicationTypes,omitempty"`
	Metadata         *metadataVars          `json:"metadata,omitempty"`
}

type metadataVars struct {
	Tags tagsVars `json:"tags"`
}

type tagsVars struct {
	OneOf []string `json:"oneOf"`
}

type payload struct {
	Query     string    `json:"query"`
	Variables variables `json:"variables"`
}

func (c *Client) Explore(ctx context.Context, pr feed.PageRequest) (feed.Page, error) {
	body, err := json.Marshal(payload{
		Query: query,
		Variables: variables{Request: requestVars{
			Where:   where(pr),
			OrderBy: pr.OrderBy,
			Limit:   pr.Limit,
			Cursor:  pr.Cursor,
		}},
	})
	if err != nil {
		return feed.Page{}, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return feed.Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return feed.Page{}, fmt.Errorf("failed to query publications: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return feed.Page{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrBody {
			raw = raw[:maxErrBody]
		}
		return feed.Page{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return parse(raw)
}

func where(pr feed.PageRequest) whereVars {
	w := whereVars{PublicationTypes: pr.Types}
	if len(pr.Tags) > 0 {
		w.Metadata = &metadataVars{Tags: tagsVars{OneOf: pr.Tags}}
	}
	return w
}

func parse(raw []byte) (feed.Page, error) {
	if !gjson.ValidBytes(raw) {
		return feed.Page{}, ErrMalformed
	}
	res := gjson.ParseBytes(raw)

	if errs := res.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		ge := &GraphQLError{}
		errs.ForEach(func(_, e gjson.Result) bool {
			ge.Messages = append(ge.Messages, e.Get("message").String())
			return true
		})
		return feed.Page{}, ge
	}

	ep := res.Get("data.explorePublications")
	if !ep.Exists() {
		return feed.Page{}, ErrMalformed
	}

	var page feed.Page
	ep.Get("items").ForEach(func(_, it gjson.Result) bool {
		id := it.Get("id").String()
		if id == "" {
			return true
		}
		item := feed.Item{
			ID:      id,
			Author:  it.Get("profile.handle").String(),
			Content: it.Get("metadata.content").String(),
		}
		if ts := it.Get("createdAt").String(); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				item.CreatedAt = t
			}
		}
		page.Items = append(page.Items, item)
		return true
	})
	// pageInfo.next may be null or absent on the last page.
	page.Next = ep.Get("pageInfo.next").String()
	return page, nil
}
