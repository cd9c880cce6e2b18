package storage

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahrav/go-ballot/infrastructure/codec"
	"github.com/ahrav/go-ballot/internal/ports"
)

const (
	judgmentPrefix   = "judgment/"
	respondentPrefix = "respondent/"
	ipPrefix         = "ip/"
	sessionPrefix    = "session/"
	aggregatePrefix  = "aggregate/"
)

func judgmentKeyPrefix(respondentID string) []byte {
	return []byte(judgmentPrefix + respondentID + "/")
}

// judgmentKey appends the big-endian sequence so keys sort in log order.
func judgmentKey(respondentID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(judgmentKeyPrefix(respondentID), seq)
}

func respondentKey(id string) []byte { return []byte(respondentPrefix + id) }

func ipKeyPrefix(ip string) []byte { return []byte(ipPrefix + ip + "/") }

func ipKey(ip, id string) []byte { return append(ipKeyPrefix(ip), id...) }

func sessionKey(id string) []byte { return []byte(sessionPrefix + id) }

func aggregateKey(item int) []byte {
	return binary.BigEndian.AppendUint32([]byte(aggregatePrefix), uint32(item))
}

// errStopScan ends a scan early without reporting a failure.
var errStopScan = errors.New("stop scan")

// getRecord decodes the value at key into v. The boolean is false when the
// key does not exist.
func getRecord(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return decode(val, v)
	})
	return err == nil, err
}

func setRecord(txn *badger.Txn, key []byte, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func decode(data []byte, v any) error {
	if err := codec.Unmarshal(data, v); err != nil {
		return errors.Join(ports.ErrRecordCorrupted, err)
	}
	return nil
}

// scan calls fn for every key with the given prefix, in key order.
// Values are only read when withValues is set.
func scan(txn *badger.Txn, prefix []byte, withValues bool, fn func(item *badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = withValues

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return nil
}
