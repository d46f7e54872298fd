package store

import (
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const (
	prefixState    = "STATE:"
	prefixLogEntry = "LOG:ENTRY:"

	keyLogSequence     = "LOG:SEQUENCE"
	keyAppliedSequence = "LOG:APPLIED"
)

// KeyValue is one state entry as seen by range scans and dumps.
type KeyValue struct {
	Key   string
	Value []byte
}

// Write is a single buffered state mutation produced by an operation
// handler. A batch of writes is flushed atomically with the apply
// checkpoint, so a replica can never persist half an operation.
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// RawEntry is a committed log record in total order.
type RawEntry struct {
	Seq  uint64
	Data []byte
}

type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts = opts.WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			lsm, vlog := db.Size()
			if lsm > 1024*1024*8 || vlog > 1024*1024*32 {
				err := db.RunValueLogGC(0.5)
				zap.L().Debug("badger value log GC", zap.Error(err))
			}
			time.Sleep(5 * time.Minute)
		}
	}()

	return &BadgerStore{db: db}, nil
}

func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}

func (bs *BadgerStore) Badger() *badger.DB {
	return bs.db
}

func (bs *BadgerStore) WriteProperty(key, val []byte) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (bs *BadgerStore) ReadProperty(key []byte) ([]byte, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// StateGet returns the stored value for a state key, or nil if absent.
func (bs *BadgerStore) StateGet(key string) ([]byte, error) {
	return bs.ReadProperty([]byte(prefixState + key))
}

// StateScan returns all state entries whose key starts with prefix, in
// ascending key order.
func (bs *BadgerStore) StateScan(prefix string) ([]KeyValue, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixState + prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var kvs []KeyValue
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, KeyValue{
			Key:   string(item.Key()[len(prefixState):]),
			Value: val,
		})
	}
	return kvs, nil
}

// StateDump exports the complete state table, ordered by key. Two replicas
// that applied the same log produce byte-identical dumps.
func (bs *BadgerStore) StateDump() ([]KeyValue, error) {
	return bs.StateScan("")
}

// AppendEntry assigns the next sequence number and persists the entry at
// it, both in one transaction.
func (bs *BadgerStore) AppendEntry(data []byte) (uint64, error) {
	var seq uint64
	err := bs.db.Update(func(txn *badger.Txn) error {
		cur, err := readCounter(txn, keyLogSequence)
		if err != nil {
			return err
		}
		seq = cur + 1
		if err := txn.Set(entryKey(seq), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyLogSequence), seqToBytes(seq))
	})
	return seq, err
}

// ListEntriesSince returns up to limit committed entries with sequence
// strictly greater than after, in log order. limit <= 0 means no limit.
func (bs *BadgerStore) ListEntriesSince(after uint64, limit int) ([]RawEntry, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixLogEntry)
	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []RawEntry
	for it.Seek(entryKey(after + 1)); it.Valid(); it.Next() {
		item := it.Item()
		seq := binary.BigEndian.Uint64(item.Key()[len(prefixLogEntry):])
		data, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RawEntry{Seq: seq, Data: data})
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}

// ReadAppliedSequence returns the sequence of the last entry whose effects
// are in the state table.
func (bs *BadgerStore) ReadAppliedSequence() (uint64, error) {
	var seq uint64
	err := bs.db.View(func(txn *badger.Txn) error {
		var err error
		seq, err = readCounter(txn, keyAppliedSequence)
		return err
	})
	return seq, err
}

// ApplyWrites flushes a handler's buffered writes together with the new
// apply checkpoint in one transaction. A failed operation applies with an
// empty write set, advancing the checkpoint without touching state.
func (bs *BadgerStore) ApplyWrites(seq uint64, writes []Write) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		for _, w := range writes {
			key := []byte(prefixState + w.Key)
			if w.Delete {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(key, w.Value); err != nil {
				return err
			}
		}
		return txn.Set([]byte(keyAppliedSequence), seqToBytes(seq))
	})
}

func entryKey(seq uint64) []byte {
	return append([]byte(prefixLogEntry), seqToBytes(seq)...)
}

func seqToBytes(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func readCounter(txn *badger.Txn, key string) (uint64, error) {
	item, err := txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(val), nil
}
