package stress

// Report is the machine-readable summary of a stress run. Latencies are
// whole milliseconds.
type Report struct {
	Duration   string                    `json:"duration"`
	Runs       RunCounts                 `json:"runs"`
	RPS        float64                   `json:"rps"`
	ErrorRate  float64                   `json:"errorRate"`
	Latency    LatencyMs                 `json:"latency"`
	Thresholds []ThresholdResult         `json:"thresholds"`
	Scenarios  map[string]ScenarioReport `json:"scenarios,omitempty"`
}

type RunCounts struct {
	Total    int64 `json:"total"`
	Success  int64 `json:"success"`
	Failed   int64 `json:"failed"`
	Timeouts int64 `json:"timeouts"`
}

type LatencyMs struct {
	P50    int64 `json:"p50"`
	P95    int64 `json:"p95"`
	P99    int64 `json:"p99"`
	Min    int64 `json:"min"`
	Max    int64 `json:"max"`
	Mean   int64 `json:"mean"`
	StdDev int64 `json:"stddev"`
}

type ScenarioReport struct {
	Total  int64 `json:"total"`
	Errors int64 `json:"errors"`
	P50    int64 `json:"p50"`
	P95    int64 `json:"p95"`
	P99    int64 `json:"p99"`
	Mean   int64 `json:"mean"`
}

// NewReport converts a Summary. Thresholds is never nil so that the JSON
// always carries the array.
func NewReport(s *Summary, thresholds []ThresholdResult) Report {
	if thresholds == nil {
		thresholds = []ThresholdResult{}
	}
	rep := Report{
		Duration: s.Duration.String(),
		Runs: RunCounts{
			Total:    s.TotalRequests,
			Success:  s.SuccessCount,
			Failed:   s.ErrorCount,
			Timeouts: s.TimeoutCount,
		},
		RPS:       s.RPS,
		ErrorRate: s.ErrorRate,
		Latency: LatencyMs{
			P50:    s.P50.Milliseconds(),
			P95:    s.P95.Milliseconds(),
			P99:    s.P99.Milliseconds(),
			Min:    s.Min.Milliseconds(),
			Max:    s.Max.Milliseconds(),
			Mean:   s.Mean.Milliseconds(),
			StdDev: s.StdDev.Milliseconds(),
		},
		Thresholds: thresholds,
	}
	for name, ss := range s.Scenarios {
		if rep.Scenarios == nil {
			rep.Scenarios = make(map[string]ScenarioReport, len(s.Scenarios))
		}
		rep.Scenarios[name] = ScenarioReport{
			Total:  ss.Total,
			Errors: ss.Errors,
			P50:    ss.P50.Milliseconds(),
			P95:    ss.P95.Milliseconds(),
			P99:    ss.P99.Milliseconds(),
			Mean:   ss.Mean.Milliseconds(),
		}
	}
	return rep
}
