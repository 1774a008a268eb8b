// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// Writer appends one "cv,HH:MM:SS" row per fix to a log file. Rows are
// flushed as they are written so a crash loses at most the row in flight.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
	rows uint64
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cv log open %s: %w", path, err)
	}
	return &Writer{file: f, csv: csv.NewWriter(f)}, nil
}

// Append writes rec and flushes it to the file.
func (w *Writer) Append(rec spoof.CVRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(rec.Fields()); err != nil {
		return fmt.Errorf("cv log write: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("cv log flush: %w", err)
	}
	w.rows++
	return nil
}

// Rows is the number of rows written by this Writer.
func (w *Writer) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	return w.file.Close()
}
