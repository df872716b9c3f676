package cache

import "time"

// BytesCache is the contract the latest-signals endpoint uses to memoize
// rendered response bodies.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
