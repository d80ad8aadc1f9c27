// Package models defines the data structures shared by the dorker stages.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Scope is the normalised set of in-scope web assets of one bounty program.
type Scope struct {
	Platform string
	Name     string

	assets map[string]struct{}
}

// NewScope builds a scope and adds every raw asset through AddAsset.
func NewScope(platform, name string, assets ...string) *Scope {
	s := &Scope{
		Platform: platform,
		Name:     name,
		assets:   make(map[string]struct{}, len(assets)),
	}
	for _, asset := range assets {
		s.AddAsset(asset)
	}
	return s
}

// AddAsset normalises raw and adds it to the scope. It reports whether the
// set grew; empty and duplicate identifiers are dropped.
func (s *Scope) AddAsset(raw string) bool {
	asset := NormalizeDomain(raw)
	if asset == "" {
		return false
	}
	if s.assets == nil {
		s.assets = make(map[string]struct{})
	}
	if _, ok := s.assets[asset]; ok {
		return false
	}
	s.assets[asset] = struct{}{}
	return true
}

// URLAssets returns the assets in lexicographic order.
func (s *Scope) URLAssets() []string {
	out := make([]string, 0, len(s.assets))
	for asset := range s.assets {
		out = append(out, asset)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of assets in the scope.
func (s *Scope) Len() int {
	return len(s.assets)
}

// Validate ensures the identifying fields are present.
func (s *Scope) Validate() error {
	if s == nil {
		return fmt.Errorf("scope is nil")
	}
	if strings.TrimSpace(s.Platform) == "" {
		return fmt.Errorf("scope missing platform")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scope missing name for platform %s", s.Platform)
	}
	return nil
}

type scopeJSON struct {
	Platform  string   `json:"platform"`
	Name      string   `json:"name"`
	URLAssets []string `json:"url_assets"`
}

// MarshalJSON emits the scope with its assets sorted.
func (s *Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(scopeJSON{
		Platform:  s.Platform,
		Name:      s.Name,
		URLAssets: s.URLAssets(),
	})
}

// UnmarshalJSON restores a persisted scope. Assets pass through AddAsset, so
// hand-edited dumps are normalised on load.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var raw scopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored := NewScope(raw.Platform, raw.Name, raw.URLAssets...)
	if err := restored.Validate(); err != nil {
		return err
	}
	*s = *restored
	return nil
}
