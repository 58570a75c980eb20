package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchemas validates serialized payloads per kind.
type payloadSchemas map[string]*gojsonschema.Schema

func compileSchemas(raw map[string]string) (payloadSchemas, error) {
	out := make(payloadSchemas, len(raw))
	for kind, src := range raw {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("payload schema for %q: %w", kind, err))
		}
		out[kind] = schema
	}
	return out, nil
}

// validate checks payload against the schema registered for kind, if any.
func (s payloadSchemas) validate(kind string, payload []byte) error {
	schema, ok := s[kind]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return errors.Join(ErrValidation, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.Join(ErrValidation, fmt.Errorf("payload for %q: %s", kind, strings.Join(msgs, "; ")))
}
