package connpool

import (
	"fmt"

	"github.com/hashicorp/golang-lru/simplelru"
)

// connSet is an insertion-ordered set of records keyed by connection. It is
// not safe for concurrent use; the pool mutex guards every access.
//
// The LRU is only used for its ordered map: entries are never read with Get,
// so their order is exactly the order they were added in.
type connSet struct {
	size int
	lru  *simplelru.LRU
}

func newConnSet(size int) *connSet {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		panic(fmt.Sprintf("connpool: invalid set size %d: %v", size, err))
	}
	return &connSet{size: size, lru: lru}
}

func (s *connSet) len() int {
	return s.lru.Len()
}

// add appends r. The pool never holds more than size records in total, so
// an eviction means the capacity accounting is broken.
func (s *connSet) add(r connRecord) {
	if s.lru.Add(r.conn, r) {
		panic("connpool: connection set overflow, capacity accounting is broken")
	}
}

func (s *connSet) get(c Conn) (connRecord, bool) {
	v, ok := s.lru.Peek(c)
	if !ok {
		return connRecord{}, false
	}
	return v.(connRecord), true
}

func (s *connSet) remove(c Conn) (connRecord, bool) {
	r, ok := s.get(c)
	if ok {
		s.lru.Remove(c)
	}
	return r, ok
}

// removeOldest pops the record that was added first.
func (s *connSet) removeOldest() (connRecord, bool) {
	_, v, ok := s.lru.RemoveOldest()
	if !ok {
		return connRecord{}, false
	}
	return v.(connRecord), true
}

// records returns a snapshot of the set, oldest first.
func (s *connSet) records() []connRecord {
	keys := s.lru.Keys()
	out := make([]connRecord, 0, len(keys))
	for _, k := range keys {
		v, _ := s.lru.Peek(k)
		out = append(out, v.(connRecord))
	}
	return out
}

// retain builds a fresh set holding, in order, the records keep accepts and
// returns it with the rejected records. s itself is left unchanged.
func (s *connSet) retain(keep func(connRecord) bool) (*connSet, []connRecord) {
	fresh := newConnSet(s.size)
	var dropped []connRecord
	for _, r := range s.records() {
		if keep(r) {
			fresh.add(r)
		} else {
			dropped = append(dropped, r)
		}
	}
	return fresh, dropped
}

// drain empties the set and returns what it held, oldest first.
func (s *connSet) drain() []connRecord {
	out := s.records()
	s.lru.Purge()
	return out
}
