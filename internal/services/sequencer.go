package services

import (
	"sync"
	"time"
)

// keyedMutex serializes work per key (participant + question) without a
// global lock. Entries are dropped when the last holder releases.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

var answerLocks = newKeyedMutex()

func answerKey(participantID, questionID string) string {
	return participantID + ":" + questionID
}

// nextGeneration picks the ordering token for a write. Clients send a
// per-question sequence; requests without one are ordered by arrival.
func nextGeneration(clientSeq int64) int64 {
	if clientSeq > 0 {
		return clientSeq
	}
	return time.Now().UnixNano()
}
