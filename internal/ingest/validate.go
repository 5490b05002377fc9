package ingest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

//go:embed product.schema.json
var productSchemaJSON []byte

// MaxReportedErrors caps how many invalid records one ValidationError lists.
const MaxReportedErrors = 5

type Validator struct {
	resolved *jsonschema.Resolved
}

func NewValidator() (*Validator, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(productSchemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("ingest: parse product schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: resolve product schema: %w", err)
	}
	return &Validator{resolved: resolved}, nil
}

type RecordError struct {
	Line int
	Err  error
}

// ValidationError lists the first invalid records and how many there were in total.
type ValidationError struct {
	Source string
	Errors []RecordError
	Total  int
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema validation failed for %d record(s) in %s:", e.Total, e.Source)
	for _, re := range e.Errors {
		fmt.Fprintf(&b, "\n- line %d: %v", re.Line, re.Err)
	}
	if more := e.Total - len(e.Errors); more > 0 {
		fmt.Fprintf(&b, "\n(%d more invalid records)", more)
	}
	b.WriteString("\nexpected records like {\"id\":\"sku_123\",\"description\":\"...\",\"title\":\"...\",\"tags\":[\"...\"]}")
	return b.String()
}

func (v *Validator) Validate(rec Record) error {
	return v.resolved.Validate(rec.Raw)
}

// ValidateAll checks every record and fails if any is invalid.
func (v *Validator) ValidateAll(source string, recs []Record) error {
	verr := &ValidationError{Source: source}
	for _, rec := range recs {
		if err := v.Validate(rec); err != nil {
			verr.Total++
			if len(verr.Errors) < MaxReportedErrors {
				verr.Errors = append(verr.Errors, RecordError{Line: rec.Line, Err: err})
			}
		}
	}
	if verr.Total > 0 {
		return verr
	}
	return nil
}
