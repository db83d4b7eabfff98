package partition

// Unit names what a partition counts.
type Unit string

const (
	UnitSessions Unit = "sessions"
	UnitLines    Unit = "lines"
)

// Stats summarizes a split. Percentages of empty partitions are zero and
// flagged by TrainEmpty/TestEmpty.
type Stats struct {
	Unit            Unit    `json:"unit" yaml:"unit"`
	Total           int     `json:"total" yaml:"total"`
	TrainCount      int     `json:"train_count" yaml:"train_count"`
	TrainAnomalies  int     `json:"train_anomalies" yaml:"train_anomalies"`
	TrainAnomalyPct float64 `json:"train_anomaly_pct" yaml:"train_anomaly_pct"`
	TrainEmpty      bool    `json:"train_empty,omitempty" yaml:"train_empty,omitempty"`
	TestCount       int     `json:"test_count" yaml:"test_count"`
	TestAnomalies   int     `json:"test_anomalies" yaml:"test_anomalies"`
	TestAnomalyPct  float64 `json:"test_anomaly_pct" yaml:"test_anomaly_pct"`
	TestEmpty       bool    `json:"test_empty,omitempty" yaml:"test_empty,omitempty"`
}

func newStats(unit Unit, total, trainN, trainAnom, testN, testAnom int) Stats {
	return Stats{
		Unit:            unit,
		Total:           total,
		TrainCount:      trainN,
		TrainAnomalies:  trainAnom,
		TrainAnomalyPct: Percent(trainAnom, trainN),
		TrainEmpty:      trainN == 0,
		TestCount:       testN,
		TestAnomalies:   testAnom,
		TestAnomalyPct:  Percent(testAnom, testN),
		TestEmpty:       testN == 0,
	}
}

// Percent returns 100*part/whole, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
