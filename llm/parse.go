package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ParseError is returned when model output contains no recoverable JSON value.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm: response is not valid json (%d bytes)", len(e.Raw))
}

// Parser extracts structured payloads from free-form model output.
type Parser struct {
	log *zap.Logger
}

// NewParser returns a parser that logs the raw text of unparseable responses.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

var defaultParser = NewParser(nil)

// Extract returns the first candidate span of raw that is valid JSON.
// Candidates are tried in order: the whole text, the greedy span from the
// first '{' to the last '}', and that span with markdown fences removed.
func (p *Parser) Extract(raw string) (json.RawMessage, error) {
	for _, candidate := range candidates(raw) {
		if candidate != "" && json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}
	p.log.Warn("llm: unparseable model output", zap.String("raw", raw))
	return nil, &ParseError{Raw: raw}
}

// Parse decodes the first valid JSON candidate of raw into v.
func (p *Parser) Parse(raw string, v any) error {
	msg, err := p.Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, v); err != nil {
		p.log.Warn("llm: model output has unexpected shape", zap.String("raw", raw), zap.Error(err))
		return &ParseError{Raw: raw}
	}
	return nil
}

// Extract runs the package default parser, which does not log.
func Extract(raw string) (json.RawMessage, error) { return defaultParser.Extract(raw) }

// Parse runs the package default parser, which does not log.
func Parse(raw string, v any) error { return defaultParser.Parse(raw, v) }

func candidates(raw string) []string {
	out := []string{raw}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return out
	}
	span := raw[start : end+1]
	out = append(out, span, stripFences(span))
	return out
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
