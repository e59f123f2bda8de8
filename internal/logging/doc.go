// Package logging configures slog for songbook.
//
// CLI commands log warnings to stderr. With --debug, JSON logs at debug
// level also go to a rotating file under ~/.songbook/logs/. The MCP server
// owns stdout for the protocol, so in serve mode logs go only to the file.
// `songbook logs` reads that file back through [Viewer].
package logging
