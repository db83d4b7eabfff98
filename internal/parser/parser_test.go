package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bimmerbailey/logsplit/internal/config"
)

const (
	hdfsLine      = "081109 203615 148 INFO dfs.DataNode$PacketResponder: PacketResponder 1 for block blk_38865049064139660 terminating"
	openstackLine = "nova-api.log.1.2017-05-16_13:53:08 2017-05-16 00:00:00.008 25746 INFO nova.osapi_compute.wsgi.server [req-38101a0b-2096-447d-96ea-a692162415ae 113d3a99c3da401fbd62cc2caa5b96d2 54fadb412c4e40cdbaed9335e4c35a9e - - -] 10.11.10.1 \"GET /v2/54fadb412c4e40cdbaed9335e4c35a9e/servers/detail HTTP/1.1\" status: 200 len: 1893 time: 0.2477829"
	bglLine       = "- 1117838570 2005.06.03 R02-M1-N0-C:J12-U11 2005-06-03-15.42.50.363779 R02-M1-N0-C:J12-U11 RAS KERNEL INFO instruction cache parity error corrected"
)

func mustLayout(t *testing.T, spec string) *Layout {
	t.Helper()
	l, err := CompileLayout(spec)
	if err != nil {
		t.Fatalf("CompileLayout(%q) error = %v", spec, err)
	}
	return l
}

func TestCompileLayout(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		headers []string
		wantErr bool
	}{
		{"hdfs builtin", "hdfs", []string{"Date", "Time", "Pid", "Level", "Component", "Content"}, false},
		{"builtin case insensitive", "BGL", []string{"Label", "Timestamp", "Date", "Node", "Time", "NodeRepeat", "Type", "Component", "Level", "Content"}, false},
		{"custom", "<Date> <Level>  <Content>", []string{"Date", "Level", "Content"}, false},
		{"no headers", "plain text", nil, true},
		{"no content", "<Date> <Time>", nil, true},
		{"repeated header", "<Date> <Date> <Content>", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := CompileLayout(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CompileLayout() error = %v", err)
			}
			if strings.Join(l.Headers, ",") != strings.Join(tt.headers, ",") {
				t.Errorf("Headers = %v, want %v", l.Headers, tt.headers)
			}
		})
	}
}

func TestLayoutNames(t *testing.T) {
	got := strings.Join(LayoutNames(), ",")
	if got != "bgl,hdfs,openstack" {
		t.Errorf("LayoutNames() = %s", got)
	}
}

func TestResolveLayout(t *testing.T) {
	for _, spec := range []string{"generic", " Generic "} {
		l, err := ResolveLayout(spec)
		if err != nil || l != nil {
			t.Errorf("ResolveLayout(%q) = %v, %v; want nil layout", spec, l, err)
		}
	}

	l, err := ResolveLayout("bgl")
	if err != nil || l == nil || l.Headers[0] != "Label" {
		t.Errorf("ResolveLayout(bgl) = %v, %v", l, err)
	}
	if _, err := ResolveLayout("<Date> <Time>"); err == nil {
		t.Error("expected error for a layout without <Content>")
	}
}

func TestParser_ParseHDFS(t *testing.T) {
	p := New(mustLayout(t, "hdfs"), nil)

	entry, ok := p.ParseLine(hdfsLine, 7)
	if !ok {
		t.Fatal("expected line to match hdfs layout")
	}
	if entry.Line != 7 {
		t.Errorf("Line = %d, want 7", entry.Line)
	}
	if entry.Content != "PacketResponder 1 for block blk_38865049064139660 terminating" {
		t.Errorf("Content = %q", entry.Content)
	}
	if entry.Field("Component") != "dfs.DataNode$PacketResponder" {
		t.Errorf("Component = %q", entry.Field("Component"))
	}
	if entry.Level != config.LevelInfo {
		t.Errorf("Level = %v, want %v", entry.Level, config.LevelInfo)
	}
	want := time.Date(2008, 11, 9, 20, 36, 15, 0, time.UTC)
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", entry.Timestamp, want)
	}
}

func TestParser_ParseOpenStack(t *testing.T) {
	p := New(mustLayout(t, "openstack"), nil)

	entry, ok := p.ParseLine(openstackLine, 1)
	if !ok {
		t.Fatal("expected line to match openstack layout")
	}
	if entry.Field("Date") != "2017-05-16" || entry.Field("Time") != "00:00:00.008" {
		t.Errorf("Date/Time = %q %q", entry.Field("Date"), entry.Field("Time"))
	}
	if !strings.HasPrefix(entry.Field("ADDR"), "req-38101a0b") {
		t.Errorf("ADDR = %q", entry.Field("ADDR"))
	}
	if !strings.HasPrefix(entry.Content, "10.11.10.1 \"GET") {
		t.Errorf("Content = %q", entry.Content)
	}
	want := time.Date(2017, 5, 16, 0, 0, 0, 8_000_000, time.UTC)
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", entry.Timestamp, want)
	}
}

func TestParser_ParseBGL(t *testing.T) {
	p := New(mustLayout(t, "bgl"), nil)

	entry, ok := p.ParseLine(bglLine, 1)
	if !ok {
		t.Fatal("expected line to match bgl layout")
	}
	if entry.Field("Label") != "-" {
		t.Errorf("Label = %q, want -", entry.Field("Label"))
	}
	if entry.Content != "instruction cache parity error corrected" {
		t.Errorf("Content = %q", entry.Content)
	}
	want := time.Date(2005, 6, 3, 15, 42, 50, 363779000, time.UTC)
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", entry.Timestamp, want)
	}
}

func TestParser_UnixTimestampFallback(t *testing.T) {
	p := New(mustLayout(t, "<Timestamp> <Content>"), nil)

	entry, ok := p.ParseLine("1117838570 node down", 1)
	if !ok {
		t.Fatal("expected match")
	}
	if entry.Timestamp.Unix() != 1117838570 {
		t.Errorf("Timestamp = %v", entry.Timestamp)
	}
}

func TestParser_SkipsUnmatchedLines(t *testing.T) {
	p := New(mustLayout(t, "hdfs"), nil)

	input := hdfsLine + "\n" + "garbage without layout\n\n" + hdfsLine + "\n"
	entries, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if p.Unmatched() != 1 {
		t.Errorf("Unmatched() = %d, want 1", p.Unmatched())
	}
	if entries[1].Line != 4 {
		t.Errorf("entries[1].Line = %d, want 4", entries[1].Line)
	}
}

func TestParser_ParseJSON(t *testing.T) {
	p := New(nil, nil)

	entry, _ := p.ParseLine(`{"timestamp": "2025-01-26T10:00:01Z", "level": "error", "message": "disk full", "host": "web-01"}`, 1)
	if entry.Content != "disk full" {
		t.Errorf("Content = %q, want %q", entry.Content, "disk full")
	}
	if entry.Level != config.LevelError {
		t.Errorf("Level = %v, want %v", entry.Level, config.LevelError)
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if entry.Field("host") != "web-01" {
		t.Errorf("host = %q", entry.Field("host"))
	}
}

func TestParser_ParseGeneric(t *testing.T) {
	p := New(nil, nil)

	line := "2025-01-26 10:00:01 ERROR Something went wrong"
	entry, ok := p.ParseLine(line, 1)
	if !ok {
		t.Fatal("generic parsing never skips")
	}
	if entry.Content != line {
		t.Errorf("Content = %q, want the whole line", entry.Content)
	}
	if entry.Level != config.LevelError {
		t.Errorf("Level = %v, want %v", entry.Level, config.LevelError)
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestParser_CustomTimestampFormats(t *testing.T) {
	p := New(nil, []string{"01/02/2006 15:04:05"})

	entry, _ := p.ParseLine("01/26/2025 10:00:01 ERROR Custom timestamp format", 1)
	if entry.Timestamp.IsZero() {
		t.Error("Expected non-zero timestamp with custom format")
	}
}

func TestParser_ParseStreamEarlyTermination(t *testing.T) {
	p := New(nil, nil)
	input := "line 1\nline 2\nline 3\n"

	count := 0
	err := p.ParseStream(strings.NewReader(input), func(config.LogEntry) error {
		count++
		if count >= 2 {
			return errors.New("stop")
		}
		return nil
	})
	if err == nil {
		t.Error("Expected error from early termination")
	}
	if count != 2 {
		t.Errorf("callback called %d times, want 2", count)
	}
}

func TestParser_LongLine(t *testing.T) {
	p := New(nil, nil)

	// Longer than the default bufio.Scanner buffer (64KB)
	longMessage := strings.Repeat("x", 100*1024)
	entries, err := p.Parse(strings.NewReader(longMessage))
	if err != nil {
		t.Fatalf("Parse() error on long line = %v", err)
	}
	if len(entries) != 1 || len(entries[0].Content) != len(longMessage) {
		t.Fatalf("long line not preserved")
	}
}

func BenchmarkParser_ParseHDFS(b *testing.B) {
	l, _ := CompileLayout("hdfs")
	p := New(l, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ParseLine(hdfsLine, i)
	}
}
