package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aluiziolira/scope-dorker/fetch"
)

// GoogleOptions configures the Custom Search JSON API provider.
type GoogleOptions struct {
	BaseURL string
	APIKey  string
	CSEID   string
}

// Google queries the Custom Search JSON API.
type Google struct {
	client   *fetch.Client
	endpoint string
	apiKey   string
	cseID    string
}

// NewGoogle builds a provider over client. client should not retry 429s on
// its own; quota backoff is handled by Client.
func NewGoogle(client *fetch.Client, opts GoogleOptions) *Google {
	return &Google{
		client:   client,
		endpoint: strings.TrimSuffix(opts.BaseURL, "/") + "/customsearch/v1",
		apiKey:   opts.APIKey,
		cseID:    opts.CSEID,
	}
}

type googleResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search implements SearchProvider.
func (g *Google) Search(ctx context.Context, req Request) (*Page, error) {
	query := url.Values{}
	query.Set("key", g.apiKey)
	query.Set("cx", g.cseID)
	query.Set("q", req.Query)
	query.Set("num", strconv.Itoa(req.Num))
	query.Set("start", strconv.Itoa(req.Start))

	resp, err := g.client.Get(ctx, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		if body, code, ok := fetch.StatusBody(err); ok {
			return nil, parseGoogleError(code, body, err)
		}
		return nil, err
	}

	var decoded googleResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	page := &Page{Links: make([]string, 0, len(decoded.Items))}
	for _, item := range decoded.Items {
		if item.Link != "" {
			page.Links = append(page.Links, item.Link)
		}
	}
	if len(decoded.Queries.NextPage) > 0 {
		page.NextStart = decoded.Queries.NextPage[0].StartIndex
	}
	return page, nil
}

func parseGoogleError(code int, body []byte, cause error) error {
	apiErr := &APIError{StatusCode: code, Err: cause}

	var decoded googleError
	if err := json.Unmarshal(body, &decoded); err == nil {
		apiErr.Message = decoded.Error.Message
		for _, e := range decoded.Error.Errors {
			if e.Reason != "" {
				apiErr.Reasons = append(apiErr.Reasons, e.Reason)
			}
		}
	}
	return apiErr
}
