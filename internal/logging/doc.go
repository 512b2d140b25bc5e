// Package logging configures the process-wide slog logger for htmlindex.
//
// Logs go to stderr, as text on a terminal and as JSON otherwise. With a
// log file configured, records are also appended to a size-rotated file.
package logging
