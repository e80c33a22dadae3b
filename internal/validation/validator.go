// Package validation checks request payload shapes against embedded JSON
// schemas before they are decoded into typed structs.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/skillsvault/backend/internal/ledger"
)

// Schema names, one per embedded file.
const (
	CreateRequest   = "create_request"
	ResolveRequest  = "resolve_request"
	SendMessage     = "send_message"
	RateTransaction = "rate_transaction"
	CreateSkill     = "create_skill"
	UpdateSkill     = "update_skill"
	VerifySkill     = "verify_skill"
	Register        = "register"
	UpdateProfile   = "update_profile"
	AdjustBalance   = "adjust_balance"
)

const maxBodyBytes = 1 << 20

//go:embed schemas/*.json
var schemaFS embed.FS

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		id := "https://skillsvault.app/schemas/" + name + ".json"
		schemas[name], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate checks body against the named schema. Failures wrap
// ledger.ErrValidation and name the first offending field.
func (v *Validator) Validate(schema string, body []byte) error {
	s, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	// UseNumber keeps integers exact for "type": "integer" checks.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON body", ledger.ErrValidation)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ledger.ErrValidation, describe(err))
	}
	return nil
}

// DecodeRequest reads the request body, validates it against schema and
// unmarshals it into dst.
func (v *Validator) DecodeRequest(r *http.Request, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read body", ledger.ErrValidation)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: request body is required", ledger.ErrValidation)
	}
	if err := v.Validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", ledger.ErrValidation)
	}
	return nil
}

// describe reduces a schema error to "field: message" for the deepest cause.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		field = "body"
	}
	return field + ": " + ve.Message
}
