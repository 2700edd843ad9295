package domain

type APIErrorBody struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SyncStep is one table-process invocation within a chain. Args, when
// present, are JSON-encoded into a single query parameter on the wire.
type SyncStep struct {
	Method string   `json:"method"`
	Args   []string `json:"args,omitempty"`
}

// ProcessDefinition is a compiled-in chain: fetch steps (parsers) first,
// sync steps (table processes) second, both in declared order.
type ProcessDefinition struct {
	Name      string     `json:"name"`
	Parsers   []string   `json:"parsers"`
	SyncSteps []SyncStep `json:"sync_steps"`
}

func (d ProcessDefinition) StepCount() int {
	return len(d.Parsers) + len(d.SyncSteps)
}

// CallResult is the outcome of a single business-API call. StatusCode is nil
// when no HTTP response was received at all.
type CallResult struct {
	Succeeded  bool
	Message    string
	StatusCode *int
}

// ChainResult is the outcome of one full chain run. Log holds one formatted
// entry per executed step; steps after the first failure never appear.
type ChainResult struct {
	ProcessName string   `json:"process_name"`
	Succeeded   bool     `json:"succeeded"`
	StatusCode  *int     `json:"status_code,omitempty"`
	Log         []string `json:"log"`
}

// StatusRecord is the persisted outcome of the most recent run of a process.
type StatusRecord struct {
	ProcessName  string `json:"process_name"`
	TimestampUTC string `json:"timestamp_utc"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
}
