package preprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Redactor rewrites sensitive values in log content into placeholders.
//
// Placeholders are derived from a hash of the value, so two lines that
// mention the same address still share a token after redaction and Drain
// groups them the same way. Spans matching the protected pattern (session
// identifiers such as HDFS block ids) are copied through untouched.
//
//	"Served block blk_-42 to /10.250.19.102" -> "Served block blk_-42 to /[IPV4:5c1e]"
type Redactor struct {
	patterns     []RedactionPattern
	protect      *regexp.Regexp
	placeholders map[string]string
	replaced     int
}

// NewRedactor returns a redactor for the named patterns, falling back to
// DefaultPatterns when none of the names resolve. A disabled redactor
// returns its input unchanged.
func NewRedactor(enabled bool, patternNames []string) *Redactor {
	r := &Redactor{placeholders: make(map[string]string)}
	if !enabled {
		return r
	}
	r.patterns = GetPatterns(patternNames)
	if len(r.patterns) == 0 {
		r.patterns = GetPatterns(DefaultPatterns())
	}
	return r
}

// Protect excludes every match of pattern from redaction. An empty pattern
// removes the protection.
func (r *Redactor) Protect(pattern string) error {
	if pattern == "" {
		r.protect = nil
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid protected pattern %q: %w", pattern, err)
	}
	r.protect = re
	return nil
}

// Redact returns text with every sensitive value outside the protected
// spans replaced.
func (r *Redactor) Redact(text string) string {
	if len(r.patterns) == 0 {
		return text
	}
	if r.protect == nil {
		return r.replace(text)
	}

	var sb strings.Builder
	sb.Grow(len(text))
	last := 0
	for _, span := range r.protect.FindAllStringIndex(text, -1) {
		sb.WriteString(r.replace(text[last:span[0]]))
		sb.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	sb.WriteString(r.replace(text[last:]))
	return sb.String()
}

func (r *Redactor) replace(text string) string {
	for _, p := range r.patterns {
		if text == "" {
			break
		}
		text = p.Regex.ReplaceAllStringFunc(text, func(v string) string {
			r.replaced++
			return r.placeholder(p.Type, v)
		})
	}
	return text
}

func (r *Redactor) placeholder(kind, value string) string {
	key := kind + "\x00" + normalize(kind, value)
	if p, ok := r.placeholders[key]; ok {
		return p
	}
	sum := sha256.Sum256([]byte(key))
	p := "[" + kind + ":" + hex.EncodeToString(sum[:2]) + "]"
	r.placeholders[key] = p
	return p
}

// Replaced is the number of values rewritten so far.
func (r *Redactor) Replaced() int {
	return r.replaced
}

// Distinct is the number of different values rewritten so far.
func (r *Redactor) Distinct() int {
	return len(r.placeholders)
}

// Addresses and mailboxes are case-insensitive; everything else is hashed
// as written.
func normalize(kind, value string) string {
	switch kind {
	case "EMAIL", "IPV4", "IPV6":
		return strings.ToLower(value)
	}
	return value
}
