package peer

import (
	"encoding/binary"
	"sync"
	"time"
)

const clockStorePropertyKey = "PEER:CLOCK:MONOTONIC"

// Clock issues strictly increasing timestamps for entries this peer
// appends, persisted across restarts so a clock stepping backwards can
// never produce an entry older than one already committed.
type Clock struct {
	sync.Mutex
	store propertyStore
	now   time.Time
}

type propertyStore interface {
	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)
}

func NewClock(store propertyStore) (*Clock, error) {
	bs, err := store.ReadProperty([]byte(clockStorePropertyKey))
	if err != nil {
		return nil, err
	}
	var ts time.Time
	if len(bs) == 8 {
		ts = time.Unix(0, int64(binary.BigEndian.Uint64(bs)))
	}
	if now := time.Now(); ts.Before(now) {
		ts = now
	}
	clock := new(Clock)
	clock.store = store
	clock.now = ts
	return clock, nil
}

func (c *Clock) Now() time.Time {
	c.Lock()
	defer c.Unlock()

	for {
		now := time.Now()
		if now.After(c.now) {
			c.now = now
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	val := binary.BigEndian.AppendUint64(nil, uint64(c.now.UnixNano()))
	for {
		err := c.store.WriteProperty([]byte(clockStorePropertyKey), val)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	return c.now
}
