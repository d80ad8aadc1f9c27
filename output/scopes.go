package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aluiziolira/scope-dorker/models"
)

// WriteScopes encodes scopes as an indented JSON array.
func WriteScopes(w io.Writer, scopes []*models.Scope) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(scopes); err != nil {
		return fmt.Errorf("encode scopes: %w", err)
	}
	return nil
}

// SaveScopes writes a scope dump to filename, or stdout for "" or "-".
func SaveScopes(filename string, scopes []*models.Scope) error {
	out, closer, err := openOutput(filename)
	if err != nil {
		return err
	}
	if err := WriteScopes(out, scopes); err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// LoadScopes reads a scope dump. Entries missing a platform or name fail the
// whole load.
func LoadScopes(filename string) ([]*models.Scope, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read scopes: %w", err)
	}
	var scopes []*models.Scope
	if err := json.Unmarshal(data, &scopes); err != nil {
		return nil, models.Fatal("load scopes "+filename, err)
	}
	for i, s := range scopes {
		if err := s.Validate(); err != nil {
			return nil, models.Fatal(fmt.Sprintf("load scopes %s entry %d", filename, i), err)
		}
	}
	return scopes, nil
}
