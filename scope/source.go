// Package scope fetches bounty program scopes from scope-listing platforms.
package scope

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/aluiziolira/scope-dorker/models"
)

// ErrUnauthorized is returned when the platform rejects the credential.
var ErrUnauthorized = errors.New("scope: unauthorized, check API credentials")

// ScopeSource lists programs and fetches their URL scopes from one platform.
type ScopeSource interface {
	Platform() string
	ListProgramHandles(ctx context.Context, credential string) ([]string, error)
	FetchScope(ctx context.Context, credential, handle string, includeOutOfScope bool) (*models.Scope, error)
}

// BasicCredential encodes username and API key as an HTTP Basic credential.
func BasicCredential(username, apiKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + apiKey))
}

// FetchAll fetches the scope of every listed program, in listing order.
func FetchAll(ctx context.Context, src ScopeSource, credential string, includeOutOfScope bool) ([]*models.Scope, error) {
	handles, err := src.ListProgramHandles(ctx, credential)
	if err != nil {
		return nil, err
	}
	slog.Info("fetching program scopes", slog.String("platform", src.Platform()), slog.Int("programs", len(handles)))
	return FetchHandles(ctx, src, credential, handles, includeOutOfScope)
}

// FetchHandles fetches the scopes of the given programs, in order.
func FetchHandles(ctx context.Context, src ScopeSource, credential string, handles []string, includeOutOfScope bool) ([]*models.Scope, error) {
	scopes := make([]*models.Scope, 0, len(handles))
	for _, handle := range handles {
		s, err := src.FetchScope(ctx, credential, handle, includeOutOfScope)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}
