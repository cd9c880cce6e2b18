package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// CreateRespondent stores r and indexes it by remote address. It fails with
// ports.ErrDuplicateRecord if the ID is taken.
func (s *Store) CreateRespondent(ctx context.Context, r domain.Respondent) error {
	const op = "CreateRespondent"
	if s.isClosed() {
		return ports.NewStoreError(r.ID, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.Contains(r.ID, "/") || r.ID == "" {
		return ports.NewStoreError(r.ID, op, fmt.Errorf("%w: invalid respondent id", domain.ErrEmptyValue))
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing domain.Respondent
		found, err := getRecord(txn, respondentKey(r.ID), &existing)
		if err != nil {
			return err
		}
		if found {
			return ports.ErrDuplicateRecord
		}
		if err := setRecord(txn, respondentKey(r.ID), r); err != nil {
			return err
		}
		if r.IP != "" {
			return txn.Set(ipKey(r.IP, r.ID), nil)
		}
		return nil
	})
	if err != nil {
		return ports.NewStoreError(r.ID, op, err)
	}
	return nil
}

// GetRespondent returns the stored respondent.
func (s *Store) GetRespondent(ctx context.Context, id string) (domain.Respondent, error) {
	const op = "GetRespondent"
	if s.isClosed() {
		return domain.Respondent{}, ports.NewStoreError(id, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return domain.Respondent{}, err
	}

	var r domain.Respondent
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getRecord(txn, respondentKey(id), &r)
		return err
	})
	if err != nil {
		return domain.Respondent{}, ports.NewStoreError(id, op, err)
	}
	if !found {
		return domain.Respondent{}, ports.NewStoreError(id, op, domain.ErrRespondentNotFound)
	}
	return r, nil
}

// RespondentExistsForIP reports whether any respondent started from ip.
func (s *Store) RespondentExistsForIP(ctx context.Context, ip string) (bool, error) {
	const op = "RespondentExistsForIP"
	if s.isClosed() {
		return false, ports.NewStoreError(ip, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, ipKeyPrefix(ip), false, func(*badger.Item) error {
			exists = true
			return errStopScan
		})
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return false, ports.NewStoreError(ip, op, err)
	}
	return exists, nil
}

// SaveRanking attaches ranking to the respondent. Rankings are immutable
// once written, so a second save fails with ports.ErrDuplicateRecord.
func (s *Store) SaveRanking(ctx context.Context, id string, ranking domain.RankAssignment, at time.Time) error {
	const op = "SaveRanking"
	if s.isClosed() {
		return ports.NewStoreError(id, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var r domain.Respondent
		found, err := getRecord(txn, respondentKey(id), &r)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrRespondentNotFound
		}
		if r.Finalized() {
			return ports.ErrDuplicateRecord
		}
		at := at.UTC()
		r.Ranking = ranking.Clone()
		r.FinalizedAt = &at
		return setRecord(txn, respondentKey(id), r)
	})
	if err != nil {
		return ports.NewStoreError(id, op, err)
	}
	return nil
}

// ListFinalized returns every respondent holding a ranking, ordered by ID,
// read inside one transaction so the result is a consistent snapshot.
func (s *Store) ListFinalized(ctx context.Context) ([]domain.Respondent, error) {
	const op = "ListFinalized"
	if s.isClosed() {
		return nil, ports.NewStoreError(respondentPrefix, op, ports.ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Respondent
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(respondentPrefix), true, func(item *badger.Item) error {
			var r domain.Respondent
			if err := item.Value(func(val []byte) error { return decode(val, &r) }); err != nil {
				return fmt.Errorf("%s: %w", item.Key(), err)
			}
			if r.Finalized() {
				out = append(out, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, ports.NewStoreError(respondentPrefix, op, err)
	}
	return out, nil
}

var _ ports.RespondentStore = (*Store)(nil)
