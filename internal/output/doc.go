// Package output renders songbook results and songs for the terminal.
//
// Highlighted segments from the search package are painted with lipgloss
// when the destination is a color terminal (go-isatty, NO_COLOR respected)
// and wrapped in a plain text marker otherwise. Status lines for commands
// go through [Writer].
package output
