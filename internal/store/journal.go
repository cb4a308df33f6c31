package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/pri-23-03/Gptrader/internal/bus"
)

// scanPage bounds how many rows a Scan holds open at once. Rows are
// released before they are yielded, so a consumer may publish or commit
// from inside the loop over the single connection.
const scanPage = 256

var _ bus.Journal = (*Store)(nil)

// Append implements bus.Journal. The partition's row count and the inserts
// run in one IMMEDIATE transaction, so offsets stay dense across processes.
func (s *Store) Append(topic string, partition int, records []json.RawMessage) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if partition < 0 {
		return 0, fmt.Errorf("%w: %d", bus.ErrInvalidPartition, partition)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var first int64
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM records WHERE topic = ? AND part = ?`,
		topic, partition,
	).Scan(&first); err != nil {
		return 0, fmt.Errorf("append: count: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO records (topic, part, seq, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("append: prepare: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if !json.Valid(rec) {
			return 0, fmt.Errorf("append: record %d is not valid JSON", i)
		}
		if _, err := stmt.Exec(topic, partition, first+int64(i), string(rec)); err != nil {
			return 0, fmt.Errorf("append: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append: commit: %w", err)
	}
	return first, nil
}

// Scan implements bus.Journal. The end of the partition is fixed when the
// scan starts; rows appended afterwards are not yielded.
func (s *Store) Scan(topic string, partition int, from int64) iter.Seq2[bus.Record, error] {
	return func(yield func(bus.Record, error) bool) {
		var end int64
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM records WHERE topic = ? AND part = ?`,
			topic, partition,
		).Scan(&end); err != nil {
			yield(bus.Record{}, fmt.Errorf("scan: count: %w", err))
			return
		}

		for next := from; next < end; {
			page, err := s.readPage(topic, partition, next, min(end, next+scanPage))
			if err != nil {
				yield(bus.Record{}, err)
				return
			}
			if len(page) == 0 {
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			next = page[len(page)-1].Offset + 1
		}
	}
}

// readPage returns the records with from <= seq < to, in seq order.
func (s *Store) readPage(topic string, partition int, from, to int64) ([]bus.Record, error) {
	rows, err := s.db.Query(`
		SELECT seq, payload FROM records
		WHERE topic = ? AND part = ? AND seq >= ? AND seq < ?
		ORDER BY seq ASC
	`, topic, partition, from, to)
	if err != nil {
		return nil, fmt.Errorf("scan: query: %w", err)
	}
	defer rows.Close()

	var page []bus.Record
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan: row: %w", err)
		}
		if !json.Valid([]byte(payload)) {
			return nil, &bus.MalformedRecordError{
				Path: fmt.Sprintf("%s#records/%s/%d", s.path, topic, partition),
				Line: seq,
				Err:  errors.New("invalid JSON"),
			}
		}
		page = append(page, bus.Record{Offset: seq, Payload: json.RawMessage(payload)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: rows: %w", err)
	}
	return page, nil
}

var _ bus.OffsetStore = (*Store)(nil)

// Load implements bus.OffsetStore.
func (s *Store) Load(group, topic string, partition int) (int64, error) {
	var next int64
	err := s.db.QueryRow(
		`SELECT next_seq FROM offsets WHERE group_name = ? AND topic = ? AND part = ?`,
		group, topic, partition,
	).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load offset: %w", err)
	}
	return next, nil
}

// Store implements bus.OffsetStore.
func (s *Store) Store(group, topic string, partition int, offset int64) error {
	_, err := s.db.Exec(`
		INSERT INTO offsets (group_name, topic, part, next_seq) VALUES (?, ?, ?, ?)
		ON CONFLICT(group_name, topic, part) DO UPDATE SET next_seq = excluded.next_seq
	`, group, topic, partition, offset)
	if err != nil {
		return fmt.Errorf("store offset: %w", err)
	}
	return nil
}

// Delete implements bus.OffsetStore.
func (s *Store) Delete(group, topic string, partition int) error {
	_, err := s.db.Exec(
		`DELETE FROM offsets WHERE group_name = ? AND topic = ? AND part = ?`,
		group, topic, partition,
	)
	if err != nil {
		return fmt.Errorf("delete offset: %w", err)
	}
	return nil
}
