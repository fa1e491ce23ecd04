package signing

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed credentials.schema.json
var credentialsSchema string

const credentialsSchemaURL = "credentials.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(credentialsSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to decode credentials schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(credentialsSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add credentials schema: %w", err)
	}
	return c.Compile(credentialsSchemaURL)
})

// Validate checks that all four signing values are present and non-empty.
// An incomplete set is reported as *IncompleteError.
func (c *SigningCredentials) Validate() error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	doc := make(map[string]any, len(PropertyKeys))
	for _, key := range PropertyKeys {
		doc[key] = c.Get(key)
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &IncompleteError{Missing: c.Missing()}
		}
		return err
	}
	return nil
}
