package types

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EntityRecord is the exchange form of an entity.
type EntityRecord struct {
	ID         string     `json:"id" yaml:"id"`
	Type       EntityType `json:"type" yaml:"type"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
}

// RelationshipRecord is the exchange form of a relationship.
type RelationshipRecord struct {
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Types      []RelationType `json:"types" yaml:"types"`
	Attributes Attributes     `json:"attributes" yaml:"attributes"`
}

// AliasRecord maps an extra surface identifier to an entity id.
type AliasRecord struct {
	Alias string `json:"alias" yaml:"alias"`
	ID    string `json:"id" yaml:"id"`
}

// Batch is a unit of ingestion or export.
type Batch struct {
	Entities      []EntityRecord       `json:"entities" yaml:"entities"`
	Relationships []RelationshipRecord `json:"relationships" yaml:"relationships"`
	Aliases       []AliasRecord        `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Format selects the encoding of a Batch.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeBatch reads a Batch in the given format.
func DecodeBatch(r io.Reader, format Format) (*Batch, error) {
	var b Batch
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&b); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode yaml batch: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&b); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode json batch: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported batch format %q", format)
	}
	return &b, nil
}

// EncodeBatch writes a Batch in the given format.
func EncodeBatch(w io.Writer, b *Batch, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("failed to encode yaml batch: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("failed to encode json batch: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported batch format %q", format)
	}
}
