// Package proxy provides the optional ProxyYielder consumed by
// FetchDispatcher: a round-robin source of upstream proxy endpoints that
// degrades to direct connections when its list is empty.
package proxy

import "sync/atomic"

// Settings is one upstream proxy endpoint.
type Settings struct {
	Server   string
	Username string
	Password string
}

// Yielder produces the next proxy to use for a fetch, or nil for a direct
// connection.
type Yielder interface {
	Next() *Settings
}

// StaticYielder round-robins over a fixed list of proxies. An empty list
// always yields nil (direct connection).
type StaticYielder struct {
	proxies []Settings
	cursor  uint32
}

// NewStaticYielder returns a Yielder over a fixed proxy list.
func NewStaticYielder(proxies []Settings) *StaticYielder {
	return &StaticYielder{proxies: proxies}
}

func (y *StaticYielder) Next() *Settings {
	if len(y.proxies) == 0 {
		return nil
	}
	idx := atomic.AddUint32(&y.cursor, 1) - 1
	p := y.proxies[idx%uint32(len(y.proxies))]
	return &p
}
