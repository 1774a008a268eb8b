// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// ErrSourceClosed is returned by Next once the underlying stream has ended.
var ErrSourceClosed = errors.New("gps source closed")

// Source is anything that can provide fixes over time: a live receiver on a
// serial port, a recorded NMEA log, or the mock sky.
type Source interface {
	Next() (Snapshot, error)
}

// NMEASource reads NMEA lines from r and assembles them into snapshots.
type NMEASource struct {
	reader  *bufio.Reader
	closer  io.Closer
	parser  *nmea.SentenceParser
	asm     *Assembler
	skipped int
	eof     bool
}

// NewNMEASource wraps r. If r is an io.Closer, Close closes it.
func NewNMEASource(r io.Reader) *NMEASource {
	s := &NMEASource{
		reader: bufio.NewReader(r),
		parser: newSentenceParser(),
		asm:    NewAssembler(),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSerial opens the receiver's serial port (8N1) and returns a source
// reading from it.
func OpenSerial(portName string, baud int) (*NMEASource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open gps serial port %s: %w", portName, err)
	}
	return NewNMEASource(port), nil
}

// OpenReplay returns a source that replays a recorded NMEA log.
func OpenReplay(path string) (*NMEASource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nmea replay file: %w", err)
	}
	return NewNMEASource(f), nil
}

// Next blocks until the next RMC sentence closes a fix.
func (s *NMEASource) Next() (Snapshot, error) {
	for !s.eof {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Snapshot{}, fmt.Errorf("gps read: %w", err)
			}
			s.eof = true
		}

		line = strings.TrimSpace(line)
		// NMEA sentences usually start with '$'
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := s.parser.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			s.skipped++
			continue
		}

		if snap, ok := s.asm.Feed(sentence); ok {
			return snap, nil
		}
	}
	return Snapshot{}, ErrSourceClosed
}

// Skipped is the number of lines that failed to parse.
func (s *NMEASource) Skipped() int {
	return s.skipped
}

func (s *NMEASource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
