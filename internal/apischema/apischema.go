// Package apischema validates JSON responses from external services against
// embedded JSON schemas before they are decoded into typed structs.
package apischema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MustCompile compiles the named schema file from fsys. It panics on error,
// since schemas are embedded at build time.
func MustCompile(fsys fs.FS, name string) *jsonschema.Schema {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	return jsonschema.MustCompileString("mem://apischema/"+name, string(data))
}

// Decode validates body against schema and unmarshals it into out.
func Decode(body []byte, schema *jsonschema.Schema, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("validate response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
