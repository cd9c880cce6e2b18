package storage

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahrav/go-ballot/infrastructure/codec"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// SaveSession replaces the respondent's engine snapshot.
func (s *Store) SaveSession(ctx context.Context, respondentID string, snap domain.Snapshot) error {
	const op = "SaveSession"
	if s.isClosed() {
		return ports.NewStoreError(respondentID, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := codec.EncodeSnapshot(snap)
	if err != nil {
		return ports.NewStoreError(respondentID, op, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(respondentID), data)
	}); err != nil {
		return ports.NewStoreError(respondentID, op, err)
	}
	return nil
}

// LoadSession returns the respondent's snapshot, if one exists.
func (s *Store) LoadSession(ctx context.Context, respondentID string) (domain.Snapshot, bool, error) {
	const op = "LoadSession"
	if s.isClosed() {
		return domain.Snapshot{}, false, ports.NewStoreError(respondentID, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, false, err
	}

	var snap domain.Snapshot
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(respondentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			var err error
			snap, err = codec.DecodeSnapshot(val)
			return err
		})
	})
	if err != nil {
		return domain.Snapshot{}, false, ports.NewStoreError(respondentID, op, err)
	}
	return snap, found, nil
}

// DeleteSession removes the respondent's snapshot.
func (s *Store) DeleteSession(ctx context.Context, respondentID string) error {
	const op = "DeleteSession"
	if s.isClosed() {
		return ports.NewStoreError(respondentID, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(respondentID))
	}); err != nil {
		return ports.NewStoreError(respondentID, op, err)
	}
	return nil
}

// CountSessions returns the number of stored snapshots.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	const op = "CountSessions"
	if s.isClosed() {
		return 0, ports.NewStoreError(sessionPrefix, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(sessionPrefix), false, func(*badger.Item) error {
			count++
			return nil
		})
	})
	if err != nil {
		return 0, ports.NewStoreError(sessionPrefix, op, err)
	}
	return count, nil
}

var _ ports.SessionStore = (*Store)(nil)
