package storage

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// ReplaceAggregates resets the stored statistics and writes stats in one
// transaction, so readers see either the previous run or this one.
func (s *Store) ReplaceAggregates(ctx context.Context, stats []domain.AggregateStat) error {
	const op = "ReplaceAggregates"
	if s.isClosed() {
		return ports.NewStoreError(aggregatePrefix, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		if err := scan(txn, []byte(aggregatePrefix), false, func(item *badger.Item) error {
			stale = append(stale, item.KeyCopy(nil))
			return nil
		}); err != nil {
			return err
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, stat := range stats {
			if err := setRecord(txn, aggregateKey(stat.Item), stat); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ports.NewStoreError(aggregatePrefix, op, err)
	}
	return nil
}

// ListAggregates returns the stored statistics in item order.
func (s *Store) ListAggregates(ctx context.Context) ([]domain.AggregateStat, error) {
	const op = "ListAggregates"
	if s.isClosed() {
		return nil, ports.NewStoreError(aggregatePrefix, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := []domain.AggregateStat{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(aggregatePrefix), true, func(item *badger.Item) error {
			var stat domain.AggregateStat
			if err := item.Value(func(val []byte) error { return decode(val, &stat) }); err != nil {
				return err
			}
			stats = append(stats, stat)
			return nil
		})
	})
	if err != nil {
		return nil, ports.NewStoreError(aggregatePrefix, op, err)
	}
	return stats, nil
}

var _ ports.AggregateStore = (*Store)(nil)
