package core

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("alice")
	acquired := make(chan struct{})
	go func() {
		u := k.Lock("alice")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatalf("second lock on the same key must wait")
	case <-time.After(30 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second lock never acquired")
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("alice")
	defer unlock()

	done := make(chan struct{})
	go func() {
		k.Lock("bob")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("different keys must not block each other")
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("alice")()
		}()
	}
	wg.Wait()
	if n := k.size(); n != 0 {
		t.Fatalf("expected no retained keys, got %d", n)
	}
}
