// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/switchboard/internal/logging"
)

// Key layout:
//
//	task/<id>                  -> JSON record
//	due/<20-digit unix ns>/<id> -> empty, ordered index by due time
const (
	prefixTask = "task/"
	prefixDue  = "due/"
)

// record is the stored form of a task plus its current index position.
type record struct {
	Task  *Task `json:"task"`
	DueNs int64 `json:"dueNs"`
}

// BadgerQueue is a Queue persisted in BadgerDB.
type BadgerQueue struct {
	db *badger.DB

	// mu serializes Due so two pollers cannot lease the same task.
	mu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

var _ Queue = (*BadgerQueue)(nil)

// OpenBadgerQueue opens (or creates) a queue at path. An empty path opens
// an in-memory database.
func OpenBadgerQueue(path string) (*BadgerQueue, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.SyncWrites = true

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Msg("Scheduler queue opened")
	return &BadgerQueue{db: db}, nil
}

func taskKey(id string) []byte {
	return []byte(prefixTask + id)
}

func dueKey(dueNs int64, id string) []byte {
	if dueNs < 0 {
		dueNs = 0
	}
	return []byte(fmt.Sprintf("%s%020d/%s", prefixDue, dueNs, id))
}

// parseDueKey splits a due key into its timestamp and task ID.
func parseDueKey(key []byte) (int64, string, error) {
	rest := strings.TrimPrefix(string(key), prefixDue)
	ts, id, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, "", fmt.Errorf("malformed due key %q", key)
	}
	ns, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed due key %q: %w", key, err)
	}
	return ns, id, nil
}

func readRecord(txn *badger.Txn, id string) (*record, error) {
	item, err := txn.Get(taskKey(id))
	if err != nil {
		return nil, err
	}
	var rec record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &rec, nil
}

func writeRecord(txn *badger.Txn, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := txn.Set(taskKey(rec.Task.ID), data); err != nil {
		return err
	}
	return txn.Set(dueKey(rec.DueNs, rec.Task.ID), nil)
}

// Enqueue implements Queue.
func (q *BadgerQueue) Enqueue(_ context.Context, task *Task) error {
	err := q.db.Update(func(txn *badger.Txn) error {
		old, err := readRecord(txn, task.ID)
		switch {
		case err == nil:
			if err := txn.Delete(dueKey(old.DueNs, task.ID)); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		cp := *task
		return writeRecord(txn, &record{Task: &cp, DueNs: task.RunAt.UnixNano()})
	})
	return q.mapErr("enqueue", err)
}

// Due implements Queue.
func (q *BadgerQueue) Due(_ context.Context, now time.Time, max int, lease time.Duration) ([]*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*Task
	err := q.db.Update(func(txn *badger.Txn) error {
		var ids []string
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(prefixDue)
		nowNs := now.UnixNano()
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(ids) < max; it.Next() {
			ns, id, err := parseDueKey(it.Item().KeyCopy(nil))
			if err != nil {
				it.Close()
				return err
			}
			if ns > nowNs {
				break
			}
			ids = append(ids, id)
		}
		it.Close()

		leaseNs := now.Add(lease).UnixNano()
		for _, id := range ids {
			rec, err := readRecord(txn, id)
			if err != nil {
				return err
			}
			if err := txn.Delete(dueKey(rec.DueNs, id)); err != nil {
				return err
			}
			rec.DueNs = leaseNs
			if err := writeRecord(txn, rec); err != nil {
				return err
			}
			out = append(out, rec.Task)
		}
		return nil
	})
	if err != nil {
		return nil, q.mapErr("lease", err)
	}
	return out, nil
}

// Ack implements Queue.
func (q *BadgerQueue) Ack(_ context.Context, id string) error {
	err := q.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(dueKey(rec.DueNs, id)); err != nil {
			return err
		}
		return txn.Delete(taskKey(id))
	})
	return q.mapErr("ack", err)
}

// Len implements Queue.
func (q *BadgerQueue) Len(_ context.Context) (int, error) {
	n := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixTask)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, q.mapErr("count", err)
}

// Close implements Queue.
func (q *BadgerQueue) Close() error {
	q.closeOnce.Do(func() {
		q.closeErr = q.db.Close()
	})
	return q.closeErr
}

func (q *BadgerQueue) mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return fmt.Errorf("scheduler %s: %w", op, err)
}
