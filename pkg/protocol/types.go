// Package protocol defines the wire types exchanged between the CLI and
// the daemon over the unix socket. Requests and responses are JSON-RPC
// 2.0 objects; these are the params/result payloads.
package protocol

import "encoding/json"

// Methods served by the daemon.
const (
	MethodGenerate = "plan/generate"
	MethodValidate = "plan/validate"
	MethodRun      = "plan/run"
	MethodGetRun   = "plan/getRun"
	MethodListRuns = "plan/listRuns"
	MethodStatus   = "daemon/status"
	MethodShutdown = "daemon/shutdown"
)

// GenerateParams asks for deterministic layouts, one per variant.
type GenerateParams struct {
	Requirements json.RawMessage `json:"requirements"`
	Variant      string          `json:"variant,omitempty"`
}

type GenerateResult struct {
	Layouts []json.RawMessage `json:"layouts"`
}

// ValidateParams scores one layout against the active rule catalog.
type ValidateParams struct {
	Layout       json.RawMessage `json:"layout"`
	Requirements json.RawMessage `json:"requirements"`
}

type ValidateResult struct {
	Result json.RawMessage `json:"result"`
	Cached bool            `json:"cached"`
}

// RunParams starts a full correction run.
type RunParams struct {
	Requirements json.RawMessage `json:"requirements"`
	Persist      bool            `json:"persist"`
}

type RunResult struct {
	RunID  int64           `json:"run_id,omitempty"`
	Result json.RawMessage `json:"result"`
}

type GetRunParams struct {
	ID int64 `json:"id"`
}

type ListRunsParams struct {
	Limit int `json:"limit,omitempty"`
}

type ListRunsResult struct {
	Runs []json.RawMessage `json:"runs"`
}

// StatusResult reports daemon health.
type StatusResult struct {
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Jurisdiction  string `json:"jurisdiction"`
	CacheEntries  int    `json:"cache_entries"`
	RunsPersisted bool   `json:"runs_persisted"`
}
