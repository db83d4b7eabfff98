// Package preprocess turns raw log lines into a structured log table.
//
// The pipeline has three stages:
//
//  1. Layout parsing - split each line into header fields (see parser)
//  2. Secret redaction - replace PII and credentials in Content with
//     correlation-preserving placeholders, leaving session ids intact
//  3. Template extraction (Drain) - cluster Content into event templates
//
// Basic usage:
//
//	layout, _ := parser.CompileLayout("hdfs")
//	s := preprocess.New(layout,
//	    preprocess.WithRedaction([]string{"ipv4", "email"}, `blk_-?\d+`),
//	)
//	_ = s.AddFile("HDFS.log")
//	_ = s.WriteCSV(out)
//
// The output has columns LineId, the layout headers, EventId and
// EventTemplate, which is the input the split command reads.
package preprocess
