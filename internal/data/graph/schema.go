// Package graph is the Neo4j-backed product, edge and vector storage. Every
// operation borrows one session from the shared driver and returns it.
package graph

import (
	"fmt"
	"regexp"

	"github.com/abdelatifsd/Adjacent/internal/config"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema names the label, relationship type and vector index. They are
// interpolated into Cypher text, so each must be a plain identifier.
type Schema struct {
	ProductLabel string
	RelType      string
	VectorIndex  string
}

func DefaultSchema() Schema {
	return Schema{ProductLabel: "Product", RelType: "RECOMMENDATION", VectorIndex: "product_embedding"}
}

func NewSchema(cfg config.Neo4jConfig) (Schema, error) {
	s := DefaultSchema()
	if cfg.ProductLabel != "" {
		s.ProductLabel = cfg.ProductLabel
	}
	if cfg.RelType != "" {
		s.RelType = cfg.RelType
	}
	if cfg.VectorIndex != "" {
		s.VectorIndex = cfg.VectorIndex
	}
	return s, s.Validate()
}

func (s Schema) Validate() error {
	for _, f := range []struct{ name, v string }{
		{"product label", s.ProductLabel},
		{"relationship type", s.RelType},
		{"vector index", s.VectorIndex},
	} {
		if err := ValidateIdentifier(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

func ValidateIdentifier(name, v string) error {
	if !identRe.MatchString(v) {
		return fmt.Errorf("graph: invalid %s %q", name, v)
	}
	return nil
}
