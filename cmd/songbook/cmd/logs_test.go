package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-10-15T10:00:00.000Z","level":"INFO","msg":"corpus_loaded","records":2}
{"time":"2026-10-15T10:00:01.000Z","level":"DEBUG","msg":"search_complete","query":"jaya"}
{"time":"2026-10-15T10:00:02.000Z","level":"ERROR","msg":"corpus_reload_failed","error":"invalid json"}
`

func TestLogsCmd_Tail(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name:     "all entries",
			args:     nil,
			contains: []string{"corpus_loaded", "search_complete", "corpus_reload_failed"},
		},
		{
			name:     "level filter",
			args:     []string{"--level", "error"},
			contains: []string{"corpus_reload_failed"},
			excludes: []string{"corpus_loaded", "search_complete"},
		},
		{
			name:     "pattern filter",
			args:     []string{"--filter", "jaya"},
			contains: []string{"search_complete"},
			excludes: []string{"corpus_loaded"},
		},
		{
			name:     "last line only",
			args:     []string{"-n", "1"},
			contains: []string{"corpus_reload_failed"},
			excludes: []string{"search_complete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a log file
			p := newTestProject(t)
			logFile := filepath.Join(p.home, "songbook.log")
			writeFile(t, logFile, sampleLog)

			// When: viewing it
			args := append([]string{"logs", "--no-color", "--file", logFile}, tt.args...)
			stdout, stderr, err := execute(t, args...)

			// Then: matching entries are printed and the path goes to stderr
			require.NoError(t, err)
			assert.Contains(t, stderr, "Log file: "+logFile)
			for _, want := range tt.contains {
				assert.Contains(t, stdout, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, stdout, unwanted)
			}
		})
	}
}

func TestLogsCmd_NoLogFile(t *testing.T) {
	newTestProject(t)

	_, _, err := execute(t, "logs")

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no log file found"))
}
