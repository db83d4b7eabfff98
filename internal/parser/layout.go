package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// HeaderContent names the free-text field that templates are mined from.
const HeaderContent = "Content"

// builtinLayouts are the header layouts of the supported raw log datasets.
var builtinLayouts = map[string]string{
	"hdfs":      "<Date> <Time> <Pid> <Level> <Component>: <Content>",
	"openstack": "<Logrecord> <Date> <Time> <Pid> <Level> <Component> [<ADDR>] <Content>",
	"bgl":       "<Label> <Timestamp> <Date> <Node> <Time> <NodeRepeat> <Type> <Component> <Level> <Content>",
}

// LayoutGeneric selects free-form parsing: JSON objects, or plain lines
// with an optional leading timestamp.
const LayoutGeneric = "generic"

// LayoutNames lists the built-in layout names.
func LayoutNames() []string {
	names := make([]string, 0, len(builtinLayouts))
	for n := range builtinLayouts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var headerPattern = regexp.MustCompile(`<[^<>]+>`)

// Layout describes how a raw log line splits into header fields.
//
// A layout string lists headers in angle brackets separated by literal
// text, e.g. "<Date> <Time> <Level> <Component>: <Content>". Runs of
// spaces match any whitespace; all other literal text matches exactly.
type Layout struct {
	Spec    string
	Headers []string
	re      *regexp.Regexp
}

// CompileLayout resolves a built-in layout name or compiles a custom
// layout string. The layout must contain a <Content> header.
func CompileLayout(spec string) (*Layout, error) {
	if builtin, ok := builtinLayouts[strings.ToLower(spec)]; ok {
		spec = builtin
	}

	locs := headerPattern.FindAllStringIndex(spec, -1)
	if len(locs) == 0 {
		return nil, fmt.Errorf("layout %q has no <Header> fields", spec)
	}

	var (
		sb      strings.Builder
		headers []string
		seen    = make(map[string]struct{})
		prev    int
	)
	sb.WriteString("^")
	for _, loc := range locs {
		sb.WriteString(literal(spec[prev:loc[0]]))

		name := spec[loc[0]+1 : loc[1]-1]
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("layout %q repeats header <%s>", spec, name)
		}
		seen[name] = struct{}{}
		headers = append(headers, name)
		fmt.Fprintf(&sb, "(?P<%s>.*?)", name)

		prev = loc[1]
	}
	sb.WriteString(literal(spec[prev:]))
	sb.WriteString("$")

	if _, ok := seen[HeaderContent]; !ok {
		return nil, fmt.Errorf("layout %q has no <%s> header", spec, HeaderContent)
	}

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compiling layout %q: %w", spec, err)
	}
	return &Layout{Spec: spec, Headers: headers, re: re}, nil
}

// ResolveLayout is CompileLayout, except that LayoutGeneric resolves to a
// nil layout, which New treats as free-form parsing.
func ResolveLayout(spec string) (*Layout, error) {
	if strings.EqualFold(strings.TrimSpace(spec), LayoutGeneric) {
		return nil, nil
	}
	return CompileLayout(spec)
}

func literal(s string) string {
	parts := strings.Split(s, " ")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	// Consecutive spaces leave empty parts; collapse them into one \s+.
	out := strings.Join(parts, `\s+`)
	for strings.Contains(out, `\s+\s+`) {
		out = strings.ReplaceAll(out, `\s+\s+`, `\s+`)
	}
	return out
}

// Split returns the header fields of line, or false when the line does not
// fit the layout.
func (l *Layout) Split(line string) (map[string]string, bool) {
	m := l.re.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, false
	}
	fields := make(map[string]string, len(l.Headers))
	for i, name := range l.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		fields[name] = m[i]
	}
	return fields, true
}
