package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"tinydoc/internal/shared"
)

const recordInputSchema = `{
	"type": "object",
	"required": ["name", "price"],
	"properties": {
		"name": {"type": "string"},
		"price": {"type": "number"},
		"tags": {"type": "array", "items": {"type": "string"}}
	}
}`

// Validator checks create/update bodies against the record input schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(recordInputSchema))
	if err != nil {
		return nil, fmt.Errorf("unmarshal record schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("record-input.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("record-input.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Problems []shared.Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = strings.Join(p.Loc, ".") + ": " + p.Msg
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// DecodeInput validates body and decodes it. Failures are *ValidationError.
func (v *Validator) DecodeInput(body []byte) (shared.RecordInput, error) {
	var in shared.RecordInput

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return in, &ValidationError{Problems: []shared.Problem{{
			Loc:  []string{"body"},
			Msg:  "JSON decode error",
			Type: "json_invalid",
		}}}
	}
	if err := v.schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return in, err
		}
		return in, &ValidationError{Problems: problems(ve)}
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return in, &ValidationError{Problems: []shared.Problem{{
			Loc:  []string{"body"},
			Msg:  err.Error(),
			Type: "value_error",
		}}}
	}
	return in, nil
}

// outputUnit mirrors the JSON form of jsonschema's basic output format.
type outputUnit struct {
	InstanceLocation string          `json:"instanceLocation"`
	KeywordLocation  string          `json:"keywordLocation"`
	Error            json.RawMessage `json:"error"`
	Errors           []outputUnit    `json:"errors"`
}

func problems(ve *jsonschema.ValidationError) []shared.Problem {
	fallback := []shared.Problem{{Loc: []string{"body"}, Msg: ve.Error(), Type: "value_error"}}

	raw, err := json.Marshal(ve.BasicOutput())
	if err != nil {
		return fallback
	}
	var root outputUnit
	if err := json.Unmarshal(raw, &root); err != nil {
		return fallback
	}

	var out []shared.Problem
	for _, u := range root.Errors {
		var msg string
		if err := json.Unmarshal(u.Error, &msg); err != nil || msg == "" {
			continue
		}
		loc := []string{"body"}
		for _, seg := range strings.Split(strings.Trim(u.InstanceLocation, "/"), "/") {
			if seg != "" {
				loc = append(loc, seg)
			}
		}
		out = append(out, shared.Problem{Loc: loc, Msg: msg, Type: keywordType(u.KeywordLocation)})
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// keywordType names a problem after the schema keyword that failed.
func keywordType(keywordLocation string) string {
	if i := strings.LastIndex(keywordLocation, "/"); i >= 0 && i+1 < len(keywordLocation) {
		return keywordLocation[i+1:]
	}
	return "value_error"
}
