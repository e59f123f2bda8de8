// Package profiling writes pprof and execution trace files for one CLI run,
// so slow searches and index rebuilds over large corpora can be inspected
// with 'go tool pprof' and 'go tool trace'.
package profiling

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output files. Empty paths disable that profile.
type Options struct {
	// CPU is written from Start until Stop.
	CPU string

	// Heap is a snapshot taken at Stop, after a GC.
	Heap string

	// Trace is the execution trace from Start until Stop.
	Trace string
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPU != "" || o.Heap != "" || o.Trace != ""
}

// Session is a running set of profiles.
type Session struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins the CPU profile and trace named in opts. A failure stops
// whatever was already started.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}

	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		s.cpuFile = f
	}

	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			_ = s.stopRunning()
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			_ = s.stopRunning()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		s.traceFile = f
	}

	if opts.Enabled() {
		slog.Debug("profiling_started",
			slog.String("cpu", opts.CPU),
			slog.String("heap", opts.Heap),
			slog.String("trace", opts.Trace))
	}
	return s, nil
}

// Stop ends the running profiles and writes the heap snapshot. It is safe
// to call on a nil session and more than once.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	err := s.stopRunning()

	if s.opts.Heap != "" {
		err = errors.Join(err, writeHeap(s.opts.Heap))
		s.opts.Heap = ""
	}
	return err
}

func (s *Session) stopRunning() error {
	var err error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		err = errors.Join(err, s.cpuFile.Close())
		s.cpuFile = nil
	}
	if s.traceFile != nil {
		trace.Stop()
		err = errors.Join(err, s.traceFile.Close())
		s.traceFile = nil
	}
	return err
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Live objects only.
	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
