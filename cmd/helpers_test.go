package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir string, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

var hdfsStructured = []string{
	`LineId,Date,Time,Pid,Level,Component,Content,EventId,EventTemplate`,
	`1,081109,203518,143,INFO,dfs.DataNode$DataXceiver,Receiving block blk_-1608999687919862906 src: /10.250.19.102:54106,E5,Receiving block <*> src: <*>`,
	`2,081109,203519,143,INFO,dfs.DataNode$DataXceiver,Receiving block blk_7503483334202473044 src: /10.251.215.16:55695,E5,Receiving block <*> src: <*>`,
	`3,081109,203519,145,INFO,dfs.DataNode$PacketResponder,Deleting block blk_3587508140051953248 file /mnt/hadoop/dfs,E9,Deleting block <*> file <*>`,
	`4,081109,203520,145,INFO,dfs.DataNode$PacketResponder,Verification succeeded for blk_1,E3,Verification succeeded for <*>`,
	`5,081109,203521,145,INFO,dfs.DataNode$PacketResponder,Deleting block blk_7503483334202473044 file /mnt/hadoop/dfs,E9,Deleting block <*> file <*>`,
}

var hdfsLabels = []string{
	`BlockId,Label`,
	`blk_-1608999687919862906,Normal`,
	`blk_7503483334202473044,Anomaly`,
	`blk_3587508140051953248,Normal`,
	`blk_1,Normal`,
}
