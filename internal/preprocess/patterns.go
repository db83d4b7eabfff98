package preprocess

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RedactionPattern defines a built-in pattern for sensitive values in log
// content.
type RedactionPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Type        string // placeholder prefix, as in [IPV4:1a2b]
	Description string
}

const octet = `(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`

var patternTable = []RedactionPattern{
	{"ipv4", regexp.MustCompile(`\b` + octet + `\.` + octet + `\.` + octet + `\.` + octet + `\b`), "IPV4", "IPv4 addresses (HDFS src/dest, OpenStack hosts)"},
	// Full and compressed forms only; a bare "::" is left alone.
	{"ipv6", regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b|\b(?:[0-9a-fA-F]{1,4}:){1,6}:[0-9a-fA-F]{1,4}\b`), "IPV6", "IPv6 addresses"},
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "EMAIL", "Email addresses"},
	{"api_key", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|token|secret|password|passwd|pwd)["\s]*[:=]["\s]*[a-zA-Z0-9_\-]{8,}`), "SECRET", "Keys, tokens and passwords in key=value form"},
	{"aws_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), "AWS_KEY", "AWS access key ids"},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*\b`), "JWT", "JWT tokens"},
	{"credit_card", regexp.MustCompile(`\b(?:\d{4}[-\s]){3}\d{4}\b`), "CC", "Card numbers written in groups of four"},
	{"hdfs_path", regexp.MustCompile(`(?:hdfs://[^\s,]+|/(?:mnt|user|tmp)/hadoop[^\s,]*)`), "PATH", "HDFS file and job paths"},
	{"bgl_node", regexp.MustCompile(`\bR\d{2}-M[01]-[A-Z0-9]{1,2}(?:-[A-Z]:J\d{2}-U\d{2})?\b`), "NODE", "BlueGene/L node locations"},
	{"openstack_request", regexp.MustCompile(`\breq-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), "REQ", "OpenStack request ids"},
	// Instance ids are UUIDs too; redacting them breaks per-instance
	// analysis, so this is not a default.
	{"uuid", regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`), "UUID", "UUIDs"},
}

// BuiltInPatterns indexes the available patterns by name.
var BuiltInPatterns = func() map[string]RedactionPattern {
	m := make(map[string]RedactionPattern, len(patternTable))
	for _, p := range patternTable {
		m[p.Name] = p
	}
	return m
}()

// DefaultPatterns returns the patterns enabled when none are configured.
func DefaultPatterns() []string {
	return []string{"ipv4", "ipv6", "email", "api_key", "aws_key", "jwt"}
}

// GetPatterns returns the patterns matching the given names.
// Unknown pattern names are ignored; see ValidatePatterns.
func GetPatterns(names []string) []RedactionPattern {
	patterns := make([]RedactionPattern, 0, len(names))
	for _, name := range names {
		if pattern, ok := BuiltInPatterns[name]; ok {
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}

// PatternNames lists the built-in pattern names in sorted order.
func PatternNames() []string {
	names := make([]string, 0, len(BuiltInPatterns))
	for name := range BuiltInPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidatePatterns reports unknown pattern names.
func ValidatePatterns(names []string) error {
	var unknown []string
	for _, name := range names {
		if _, ok := BuiltInPatterns[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("unknown redaction patterns %s (available: %s)",
		strings.Join(unknown, ", "), strings.Join(PatternNames(), ", "))
}
