// Package logging builds slog loggers for the CLI and its components.
//
// Two output formats are supported: a compact console format
// (timestamp level component: message key=value ...) and standard JSON.
// Components attach themselves with WithComponent so every line carries its
// origin without each call site repeating the attribute.
package logging
