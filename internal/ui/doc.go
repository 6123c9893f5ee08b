// Package ui renders the lightify CLI's terminal output.
//
// Output follows a "run once and exit" pattern built on Lipgloss: a command
// prints a header naming the operation and bridge, then either a table of
// groups or lights, or a result box.
//
//   - Header: command banner showing operation name and parameters
//   - Result: success, failure and warning boxes with ordered details
//   - RenderGroups / RenderLights: bordered tables of cached entities
//
// A Printer in JSON mode skips the decoration and writes entities as
// indented JSON, for scripts.
//
// Logging is controlled separately through LIGHTIFY_LOG_LEVEL; when unset,
// zap is silent so the styled output is displayed cleanly.
package ui
