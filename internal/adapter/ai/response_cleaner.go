package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RepairPass is a single named textual repair applied to a raw model reply.
// Passes are heuristic string rewrites: they can corrupt legitimate free text
// containing braces or quotes that leaks into the object region. That risk is
// accepted; the decoded candidate is schema-checked before being trusted.
type RepairPass struct {
	Name  string
	Apply func(string) string
}

var (
	emphasisBoldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	emphasisItalicRe = regexp.MustCompile(`\*([^*]+)\*`)
	bareKeyRe        = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuoteRe    = regexp.MustCompile(`([{\[,:]\s*)'([^']*)'`)
	trailingCommaRe  = regexp.MustCompile(`,(\s*[}\]])`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
)

// DefaultRepairPasses returns the repair sequence in application order.
func DefaultRepairPasses() []RepairPass {
	return []RepairPass{
		{Name: "strip_fences", Apply: stripFences},
		{Name: "strip_emphasis", Apply: stripEmphasis},
		{Name: "extract_object", Apply: extractObject},
		{Name: "quote_bare_keys", Apply: quoteBareKeys},
		{Name: "normalize_single_quotes", Apply: normalizeSingleQuotes},
		{Name: "strip_trailing_commas", Apply: stripTrailingCommas},
		{Name: "collapse_whitespace", Apply: collapseWhitespace},
	}
}

// Cleaner applies the repair passes to a raw model reply.
type Cleaner struct {
	passes []RepairPass
}

// NewCleaner creates a cleaner with the default pass sequence.
func NewCleaner() *Cleaner {
	return &Cleaner{passes: DefaultRepairPasses()}
}

// Clean runs every pass in order and returns the repaired candidate.
func (c *Cleaner) Clean(response string) string {
	for _, p := range c.passes {
		response = p.Apply(response)
	}
	return response
}

// IsValidJSON checks if a string is valid JSON.
func (c *Cleaner) IsValidJSON(response string) bool {
	var tmp any
	return json.Unmarshal([]byte(response), &tmp) == nil
}

// stripFences removes markdown code fence markers and stray backticks.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}

// stripEmphasis rewrites markdown emphasis wrappers into quoted strings.
func stripEmphasis(s string) string {
	s = emphasisBoldRe.ReplaceAllString(s, `"$1"`)
	s = emphasisItalicRe.ReplaceAllString(s, `"$1"`)
	return s
}

// extractObject cuts the substring bounded by the first '{' and its matching
// '}'. Without a balanced object the input is returned unchanged.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}

// quoteBareKeys wraps unquoted object keys in double quotes.
func quoteBareKeys(s string) string {
	return bareKeyRe.ReplaceAllString(s, `$1"$2":`)
}

// normalizeSingleQuotes rewrites single-quoted literals in key or value
// position to double-quoted ones.
func normalizeSingleQuotes(s string) string {
	return singleQuoteRe.ReplaceAllString(s, `$1"$2"`)
}

// stripTrailingCommas removes commas directly before a closing bracket.
func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, `$1`)
}

// collapseWhitespace flattens newlines and whitespace runs to single spaces.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(s, " "))
}
