package shutdown

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryReceiveEmpty(t *testing.T) {
	_, rx := New()
	if rx.TryReceive() {
		t.Fatal("TryReceive on a fresh channel = true, want false")
	}
}

func TestSendThenReceive(t *testing.T) {
	tx, rx := New()
	if !tx.Send() {
		t.Fatal("first Send = false, want true")
	}
	if !rx.TryReceive() {
		t.Fatal("TryReceive after Send = false, want true")
	}
	if rx.TryReceive() {
		t.Error("second TryReceive = true, want false (signal is consumed)")
	}
}

func TestSendIsOneShot(t *testing.T) {
	tx, rx := New()
	tx.Send()
	if tx.Send() {
		t.Error("second Send before receive = true, want false")
	}
	rx.TryReceive()
	if tx.Send() {
		t.Error("Send after the signal was consumed = true, want false")
	}
	if rx.TryReceive() {
		t.Error("TryReceive after ignored Send = true, want false")
	}
}

func TestSenderCopiesShareState(t *testing.T) {
	tx, rx := New()
	cp := tx
	cp.Send()
	if tx.Send() {
		t.Error("Send on the first copy after another copy sent = true, want false")
	}
	if !rx.TryReceive() {
		t.Error("TryReceive = false, want true")
	}
}

func TestConcurrentSendDeliversOnce(t *testing.T) {
	tx, rx := New()
	const n = 32

	var delivered atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			if tx.Send() {
				delivered.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := delivered.Load(); got != 1 {
		t.Errorf("successful sends = %d, want 1", got)
	}
	if !rx.TryReceive() {
		t.Error("TryReceive = false, want true")
	}
	if rx.TryReceive() {
		t.Error("second TryReceive = true, want false")
	}
}
