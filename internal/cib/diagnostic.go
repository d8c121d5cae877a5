package cib

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// DiagnosticKind identifies what a diagnostic reports. Message text for a
// kind is rendered by consumers from the diagnostic's parameters.
type DiagnosticKind string

const (
	// Ingestion failures, each of which produces an offline snapshot.
	KindNotInstalled     DiagnosticKind = "pacemaker-not-installed"
	KindNotExecutable    DiagnosticKind = "pacemaker-not-executable"
	KindPermissionDenied DiagnosticKind = "permission-denied"
	KindInvokeFailed     DiagnosticKind = "invoke-failed"
	KindParseFailed      DiagnosticKind = "parse-failed"

	// Structural anomalies.
	KindUnknownResource    DiagnosticKind = "unknown-resource-kind"
	KindEmptyContainer     DiagnosticKind = "empty-container"
	KindOrphanedHistory    DiagnosticKind = "orphaned-history"
	KindMultipleBoothSites DiagnosticKind = "multiple-booth-sites"

	// Operational state.
	KindNodeUnclean     DiagnosticKind = "node-unclean"
	KindOpFailed        DiagnosticKind = "op-failed"
	KindStonithDisabled DiagnosticKind = "stonith-disabled"
)

// Diagnostic is a structured error or warning raised while building a
// snapshot.
type Diagnostic struct {
	Kind     DiagnosticKind    `json:"kind"`
	Severity Severity          `json:"severity"`
	Params   map[string]string `json:"params,omitempty"`
}

// rcNames labels the OCF return codes for op-failed diagnostics.
var rcNames = map[int]string{
	0: "success",
	1: "generic error",
	2: "incorrect arguments",
	3: "unimplemented action",
	4: "insufficient permissions",
	5: "installation error",
	6: "configuration error",
	7: "not running",
	8: "running (master)",
	9: "failed (master)",
}

// RCName returns the label for an OCF return code, or "other".
func RCName(rc int) string {
	if name, ok := rcNames[rc]; ok {
		return name
	}
	return "other"
}

// CountsAsError reports whether d moves the cluster status to errors.
// Info records are tolerated anomalies that are only logged, and the
// stonith-disabled warning selects nostonith instead.
func (d Diagnostic) CountsAsError() bool {
	if d.Kind == KindStonithDisabled {
		return false
	}
	return d.Severity != SeverityInfo
}
