package provision

import (
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/site"
)

// State is a provisioning request's position in the pipeline.
//
//	requested → account_creating → account_created → wp_installing →
//	wp_installed → ftp_creating → registered
//
// StateFailed is reachable from any state; Result.FailedStage says where.
// Lifecycle projections skip the pipeline and end in StateApplied.
type State string

const (
	StateRequested       State = "requested"
	StateAccountCreating State = "account_creating"
	StateAccountCreated  State = "account_created"
	StateWPInstalling    State = "wp_installing"
	StateWPInstalled     State = "wp_installed"
	StateFTPCreating     State = "ftp_creating"
	StateRegistered      State = "registered"
	StateFailed          State = "failed"
	StateApplied         State = "applied"
)

// Stage names the step that failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageAccount   Stage = "account"
	StageDiscovery Stage = "discovery"
	StageWordPress Stage = "wordpress"
	StageRegistry  Stage = "registry"
	StageLifecycle Stage = "lifecycle"
)

// Result is returned by every orchestrator entry point, also on failure.
type Result struct {
	ID              string                `json:"id"`
	State           State                 `json:"state"`
	FailedStage     Stage                 `json:"failed_stage,omitempty"`
	TimeoutRecovery bool                  `json:"timeout_recovery"`
	Account         hosting.Account       `json:"account"`
	Installation    *hosting.Installation `json:"installation,omitempty"`
	Site            *site.Site            `json:"site,omitempty"`
	Affected        int64                 `json:"affected,omitempty"`
	Warnings        []Warning             `json:"warnings,omitempty"`
}

// Degraded reports whether any best-effort step failed.
func (r *Result) Degraded() bool { return len(r.Warnings) > 0 }

// ScanResult is the outcome of ScanAndRegister.
type ScanResult struct {
	User       string `json:"user"`
	Registered int    `json:"registered"`
	TotalFound int    `json:"total_found"`
}

// AccountScan is one line of a Reconcile summary.
type AccountScan struct {
	ScanResult
	Error string `json:"error,omitempty"`
}
