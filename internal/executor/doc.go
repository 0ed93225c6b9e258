// Package executor runs external commands under hard wall-clock deadlines and
// classifies every outcome as a value: success, timeout or failure with an
// exit code. RunWithRetry layers a bounded fixed-delay retry loop on top of
// single executions. Command output is captured for diagnostics and never
// parsed for control flow.
package executor
