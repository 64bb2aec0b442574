package catalogs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/quarry_resources.schema.json
var resourcesSchemaJSON string

var (
	resourcesSchemaOnce sync.Once
	resourcesSchema     *jsonschema.Schema
	resourcesSchemaErr  error
)

func compiledResourcesSchema() (*jsonschema.Schema, error) {
	resourcesSchemaOnce.Do(func() {
		resourcesSchema, resourcesSchemaErr = jsonschema.CompileString("quarry_resources.schema.json", resourcesSchemaJSON)
	})
	return resourcesSchema, resourcesSchemaErr
}

// validateResources checks raw quarry_resources.json against the embedded schema
// and that every stack range is ordered.
func validateResources(raw []byte) error {
	s, err := compiledResourcesSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return err
	}

	var lists []ResourceListDef
	if err := json.Unmarshal(raw, &lists); err != nil {
		return err
	}
	for _, l := range lists {
		for _, r := range l.Resources {
			if r.StackCount.Max < r.StackCount.Min {
				return fmt.Errorf("list %s: %s: stack_count max < min", l.ID, r.ThingDef)
			}
		}
	}
	return nil
}
