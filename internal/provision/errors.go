// internal/provision/errors.go
//
// Orchestrator error and warning types.
//
// Context
// -------
//   • ValidationError      – bad input, nothing was sent remotely.
//   • *StageError          – a required step failed; wraps the cause.
//   • *PartialSuccessError – remote resources exist but the registry write
//     failed.  Operators must reconcile.
//   • Warning              – a best-effort step failed; the request still
//     succeeded.
//
// Gateway errors (*gateway.TransportError, *gateway.RemoteRejection) stay
// reachable through errors.As on every wrapper.
package provision

import (
	"fmt"
	"strings"
)

// Problem is one failed input rule.
type Problem struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every input problem.
type ValidationError struct {
	Problems []Problem
}

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Rule))
	}
	return "provision: invalid input: " + strings.Join(parts, "; ")
}

// StageError is a fatal failure at one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("provision: %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PartialSuccessError reports remote side effects that have no local row.
type PartialSuccessError struct {
	Account string
	Domain  string
	Created []string
	Err     error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("provision: created %s for %s (%s) but could not register the site: %v",
		strings.Join(e.Created, ", "), e.Account, e.Domain, e.Err)
}

func (e *PartialSuccessError) Unwrap() error { return e.Err }

// Best-effort step names carried by Warning.Step.
const (
	StepSSL             = "ssl"
	StepBackupSchedule  = "backup_schedule"
	StepFTP             = "ftp"
	StepRemoteSuspend   = "remote_suspend"
	StepRemoteUnsuspend = "remote_unsuspend"
)

// Warning is a failed best-effort step.
type Warning struct {
	Step    string `json:"step"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (w Warning) String() string {
	if w.Target != "" {
		return fmt.Sprintf("%s (%s): %s", w.Step, w.Target, w.Message)
	}
	return w.Step + ": " + w.Message
}
