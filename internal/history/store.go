// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

const verdictsBucket = "verdicts"

// Entry is one stored verdict.
type Entry struct {
	ID       uint64        `json:"id"`
	StoredAt time.Time     `json:"stored_at"`
	Verdict  spoof.Verdict `json:"verdict"`
}

// Store is a bounded journal of verdicts kept in a bbolt file. Keys are
// big-endian sequence numbers so iteration order is arrival order.
type Store struct {
	db         *bolt.DB
	maxRecords int
}

// Open opens or creates the journal at path. maxRecords <= 0 disables
// pruning.
func Open(path string, maxRecords int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(verdictsBucket)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", verdictsBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, maxRecords: maxRecords}, nil
}

// Append stores v and prunes the oldest entries beyond the limit.
func (s *Store) Append(v spoof.Verdict, at time.Time) (Entry, error) {
	entry := Entry{StoredAt: at, Verdict: v}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(verdictsBucket))

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry.ID = id

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal verdict: %w", err)
		}
		if err := b.Put(itob(id), data); err != nil {
			return err
		}

		if s.maxRecords <= 0 || id <= uint64(s.maxRecords) {
			return nil
		}
		// ids are sequential, so everything at or below the cutoff is surplus
		cutoff := id - uint64(s.maxRecords)
		c := b.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= cutoff; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, fmt.Errorf("history append: %w", err)
	}
	return entry, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(verdictsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(verdictsBucket)).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
