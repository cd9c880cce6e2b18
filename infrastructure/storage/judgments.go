package storage

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// AppendJudgment records j under the next value of the global sequence.
// The key is new on every call, so an entry is never overwritten.
func (s *Store) AppendJudgment(ctx context.Context, j domain.Judgment) (uint64, error) {
	const op = "AppendJudgment"
	if s.isClosed() {
		return 0, ports.NewStoreError(j.RespondentID, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	seq, err := s.seq.Next()
	if err != nil {
		return 0, ports.NewStoreError(j.RespondentID, op, err)
	}

	key := judgmentKey(j.RespondentID, seq)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return setRecord(txn, key, j)
	}); err != nil {
		return 0, ports.NewStoreError(string(key), op, err)
	}
	return seq, nil
}

// ListJudgments returns one respondent's judgments in append order.
func (s *Store) ListJudgments(ctx context.Context, respondentID string) ([]domain.Judgment, error) {
	const op = "ListJudgments"
	if s.isClosed() {
		return nil, ports.NewStoreError(respondentID, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	judgments := []domain.Judgment{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, judgmentKeyPrefix(respondentID), true, func(item *badger.Item) error {
			var j domain.Judgment
			if err := item.Value(func(val []byte) error { return decode(val, &j) }); err != nil {
				return err
			}
			judgments = append(judgments, j)
			return nil
		})
	})
	if err != nil {
		return nil, ports.NewStoreError(respondentID, op, err)
	}
	return judgments, nil
}

var _ ports.JudgmentLog = (*Store)(nil)
