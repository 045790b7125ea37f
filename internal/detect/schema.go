package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidContext is returned by ValidateContext when a document does
// not match the pipeline-context schema.
var ErrInvalidContext = errors.New("invalid pipeline context")

// Schema returns the JSON Schema describing PipelineContext.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&PipelineContext{})
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.Title = "PipelineContext"
	return s
}

// SchemaJSON returns Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling pipeline context schema: %w", err)
	}
	return data, nil
}

// ValidateContext checks an arbitrary decoded JSON document (typically a
// tool argument) against the pipeline-context schema.
func ValidateContext(doc any) error {
	schema, err := SchemaJSON()
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validating pipeline context: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidContext, strings.Join(msgs, "; "))
}

// DecodeContext validates doc and converts it into a PipelineContext.
// The languages and versions supplied by the caller are kept as given.
func DecodeContext(doc any) (*PipelineContext, error) {
	if err := ValidateContext(doc); err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding pipeline context: %w", err)
	}
	var pc PipelineContext
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("decoding pipeline context: %w", err)
	}

	if pc.Matrix == nil {
		pc.Matrix = []MatrixEntry{}
	}
	if pc.Languages == nil {
		pc.Languages = []Language{}
	}
	if pc.Versions == nil {
		pc.Versions = map[Language]string{}
	}
	return &pc, nil
}
