package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

const schemaURL = "https://bioscan.schemas.local/analysis-response.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// JSONSchema mirrors ResponseSchema as a draft 2020-12 document. Optional
// strings may come back as null.
func JSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	optional := map[string]any{"type": []string{"string", "null"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paciente":    optional,
			"dataExame":   optional,
			"resumoGeral": str,
			"exames": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"nomeExame":           str,
						"valorMedido":         str,
						"unidade":             optional,
						"valorReferencia":     optional,
						"status":              map[string]any{"type": "string", "enum": statusEnum()},
						"significadoClinico":  str,
						"explicacaoDetalhada": str,
						"recomendacaoGeral":   optional,
					},
					"required": examRequired,
				},
			},
		},
		"required": topLevelRequired,
	}
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(JSONSchema())
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("analysis schema load failed: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Decode validates the model text against the schema and decodes it.
// Every failure is reported as exams.ErrParse.
func Decode(text string) (*exams.AnalysisResponse, error) {
	text = stripFences(text)
	if text == "" {
		return nil, exams.ErrEmptyResponse
	}

	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", exams.ErrUnexpected, err)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", exams.ErrParse, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", exams.ErrParse, err)
	}

	var out exams.AnalysisResponse
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", exams.ErrParse, err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// stripFences drops a ```json ... ``` wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
