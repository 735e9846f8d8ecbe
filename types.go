package main

// CoefficientTable defines the expected JSON schema for a calibration table.
type CoefficientTable struct {
	Segments []SegmentData `json:"segments"`
}

// SegmentData is one row of a CoefficientTable.
type SegmentData struct {
	Name string     `json:"name"`
	T0   float64    `json:"t0"`
	V0   float64    `json:"v0"`
	P    [4]float64 `json:"p"`
	Q    [3]float64 `json:"q"`
	VMin float64    `json:"v_min"`
	VMax float64    `json:"v_max"`
	TMin float64    `json:"t_min"`
	TMax float64    `json:"t_max"`
}

// SolveReport is the JSON schema written when --json-out is used.
type SolveReport struct {
	RunID       string        `json:"run_id"`
	GeneratedAt string        `json:"generated_at"`
	Fingerprint string        `json:"model_fingerprint"`
	Step        float64       `json:"step"`
	Tolerance   float64       `json:"tolerance"`
	ClusterGap  float64       `json:"cluster_gap"`
	CSVPath     string        `json:"csv_path,omitempty"`
	Results     []SolveRecord `json:"results"`
}

// SolveRecord is the per-target entry of a SolveReport.
type SolveRecord struct {
	Target   float64   `json:"target"`
	Segment  int       `json:"segment"`
	Voltages []float64 `json:"voltages"`
}
