package scope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/scope-dorker/fetch"
	"github.com/aluiziolira/scope-dorker/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// PlatformHackerOne identifies scopes fetched from HackerOne.
const PlatformHackerOne = "hackerone"

// HackerOneOptions configures the HackerOne hacker API client.
type HackerOneOptions struct {
	BaseURL           string
	PageSize          int
	RequestsPerMinute int
	CacheSize         int
}

// HackerOne reads programs and structured scopes from the HackerOne hacker
// API, following links.next until the last page.
type HackerOne struct {
	client   *fetch.Client
	baseURL  string
	pageSize int
	limiter  *rate.Limiter
	cache    *lru.Cache[string, *models.Scope]
}

// NewHackerOne builds a source over client.
func NewHackerOne(client *fetch.Client, opts HackerOneOptions) (*HackerOne, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 600
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse hackerone base url: %w", err)
	}

	cache, err := lru.New[string, *models.Scope](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create scope cache: %w", err)
	}

	return &HackerOne{
		client:   client,
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
		limiter: rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)),
			opts.RequestsPerMinute,
		),
		cache: cache,
	}, nil
}

// Platform implements ScopeSource.
func (h *HackerOne) Platform() string {
	return PlatformHackerOne
}

type page[T any] struct {
	Data []struct {
		Attributes T `json:"attributes"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type programAttributes struct {
	Handle          string `json:"handle"`
	SubmissionState string `json:"submission_state"`
	OffersBounties  bool   `json:"offers_bounties"`
}

type structuredScopeAttributes struct {
	AssetType         string `json:"asset_type"`
	AssetIdentifier   string `json:"asset_identifier"`
	EligibleForBounty bool   `json:"eligible_for_bounty"`
}

// ListProgramHandles returns the handles of open programs that pay bounties.
func (h *HackerOne) ListProgramHandles(ctx context.Context, credential string) ([]string, error) {
	query := url.Values{}
	query.Set("page[size]", strconv.Itoa(h.pageSize))
	first := h.baseURL + "/v1/hackers/programs?" + query.Encode()

	var handles []string
	err := paginate(ctx, h, first, credential, func(attrs programAttributes) {
		if attrs.SubmissionState != "open" || !attrs.OffersBounties || attrs.Handle == "" {
			return
		}
		handles = append(handles, attrs.Handle)
	})
	if err != nil {
		return nil, models.Fatal("list hackerone programs", err)
	}

	slog.Debug("listed hackerone programs", slog.Int("handles", len(handles)))
	return handles, nil
}

// FetchScope returns the URL assets of one program. Out-of-scope and
// non-bounty assets are kept only when includeOutOfScope is set.
func (h *HackerOne) FetchScope(ctx context.Context, credential, handle string, includeOutOfScope bool) (*models.Scope, error) {
	key := handle + "|" + strconv.FormatBool(includeOutOfScope)
	if cached, ok := h.cache.Get(key); ok {
		slog.Debug("scope cache hit", slog.String("handle", handle))
		return cached, nil
	}

	query := url.Values{}
	query.Set("page[number]", "1")
	query.Set("page[size]", strconv.Itoa(h.pageSize))
	first := h.baseURL + "/v1/hackers/programs/" + url.PathEscape(handle) + "/structured_scopes?" + query.Encode()

	s := models.NewScope(PlatformHackerOne, handle)
	err := paginate(ctx, h, first, credential, func(attrs structuredScopeAttributes) {
		if attrs.AssetType != "URL" {
			return
		}
		if !includeOutOfScope && !attrs.EligibleForBounty {
			return
		}
		s.AddAsset(attrs.AssetIdentifier)
	})
	if err != nil {
		return nil, models.Fatal("fetch hackerone scope "+handle, err)
	}

	slog.Info("fetched program scope",
		slog.String("handle", handle),
		slog.Int("assets", s.Len()),
		slog.Bool("include_oos", includeOutOfScope),
	)
	h.cache.Add(key, s)
	return s, nil
}

func paginate[T any](ctx context.Context, h *HackerOne, next, credential string, visit func(T)) error {
	hdr := http.Header{}
	hdr.Set("Authorization", "Basic "+credential)

	for pages := 0; next != ""; pages++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}

		resp, err := h.client.Get(ctx, next, hdr)
		if err != nil {
			var unauthorized fetch.ErrUnauthorized
			if errors.As(err, &unauthorized) {
				return fmt.Errorf("%w: %w", ErrUnauthorized, err)
			}
			return fmt.Errorf("get %s: %w", next, err)
		}

		var p page[T]
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return fmt.Errorf("decode page %d: %w", pages+1, err)
		}
		for _, item := range p.Data {
			visit(item.Attributes)
		}
		next = p.Links.Next
	}
	return nil
}
