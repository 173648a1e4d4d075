// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pending tracks the single outbound message allowed in flight per
// device address.
package pending

import (
	"bytes"
	"sync"
	"time"

	"github.com/Thermoquad/fieldgate/pkg/rfframe"
)

// Entry is a payload awaiting its transmit outcome
type Entry struct {
	Address []byte
	Payload []byte
	Added   time.Time
}

// Registry holds at most one Entry per destination address. Operations on
// different addresses never contend with each other.
type Registry struct {
	entries sync.Map // hex address -> *Entry
	now     func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

func key(address []byte) string {
	return rfframe.FormatHex(address)
}

// TryAdd inserts payload for address and reports whether the slot was free.
// An occupied slot is left untouched.
func (r *Registry) TryAdd(address, payload []byte) bool {
	e := &Entry{
		Address: append([]byte(nil), address...),
		Payload: append([]byte(nil), payload...),
		Added:   r.clock(),
	}
	_, loaded := r.entries.LoadOrStore(key(address), e)
	return !loaded
}

// Remove frees the slot for address regardless of its payload
func (r *Registry) Remove(address []byte) {
	r.entries.Delete(key(address))
}

// Release frees the slot for address only if it still holds payload
func (r *Registry) Release(address, payload []byte) bool {
	k := key(address)
	v, ok := r.entries.Load(k)
	if !ok {
		return false
	}
	e := v.(*Entry)
	if !bytes.Equal(e.Payload, payload) {
		return false
	}
	return r.entries.CompareAndDelete(k, e)
}

// Get returns the entry pending for address
func (r *Registry) Get(address []byte) (Entry, bool) {
	v, ok := r.entries.Load(key(address))
	if !ok {
		return Entry{}, false
	}
	return *v.(*Entry), true
}

// Len returns the number of pending entries
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Expire removes entries added more than ttl before now and returns their
// addresses. A non-positive ttl disables expiry.
func (r *Registry) Expire(now time.Time, ttl time.Duration) [][]byte {
	if ttl <= 0 {
		return nil
	}
	var expired [][]byte
	r.entries.Range(func(k, v any) bool {
		e := v.(*Entry)
		if now.Sub(e.Added) >= ttl && r.entries.CompareAndDelete(k, e) {
			expired = append(expired, e.Address)
		}
		return true
	})
	return expired
}

func (r *Registry) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}
