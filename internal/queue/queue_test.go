package queue

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestEnqueueTokensAreRandom(t *testing.T) {
	q := New()
	a, err := q.Enqueue([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := q.Enqueue([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("identical payloads must get distinct tokens")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("token %q is not a UUID: %v", a, err)
	}
}

func TestFIFOPeek(t *testing.T) {
	q := New()
	t1, _ := q.Enqueue([]byte("one"))
	t2, _ := q.Enqueue([]byte("two"))

	for i := 0; i < 3; i++ {
		got, ok := q.PeekFirst()
		if !ok || got != t1 {
			t.Fatalf("peek = %q, want %q", got, t1)
		}
	}
	if q.Len() != 2 {
		t.Errorf("len = %d, peek must not remove", q.Len())
	}

	if _, ok := q.TakeByToken(t1); !ok {
		t.Fatal("take t1 failed")
	}
	if got, _ := q.PeekFirst(); got != t2 {
		t.Errorf("peek = %q, want %q", got, t2)
	}
}

func TestTakeByTokenOnce(t *testing.T) {
	q := New()
	tok, _ := q.Enqueue([]byte("job"))

	data, ok := q.TakeByToken(tok)
	if !ok || string(data) != "job" {
		t.Fatalf("take = %q, %v", data, ok)
	}
	if _, ok := q.TakeByToken(tok); ok {
		t.Error("second take must fail")
	}
	if _, ok := q.PeekFirst(); ok {
		t.Error("queue should be empty")
	}
}

func TestTakeByTokenRemovesOnlyThatToken(t *testing.T) {
	q := New()
	t1, _ := q.Enqueue([]byte("one"))
	t2, _ := q.Enqueue([]byte("two"))
	t3, _ := q.Enqueue([]byte("three"))

	if _, ok := q.TakeByToken(t2); !ok {
		t.Fatal("take t2 failed")
	}
	got := q.Pending()
	if len(got) != 2 || got[0] != t1 || got[1] != t3 {
		t.Errorf("pending = %q, want [%s %s]", got, t1, t3)
	}
}

func TestTakeUnknownToken(t *testing.T) {
	q := New()
	_, _ = q.Enqueue([]byte("one"))
	for _, tok := range []string{"", "nope", "00000000-0000-0000-0000-000000000000"} {
		if _, ok := q.TakeByToken(tok); ok {
			t.Errorf("take %q succeeded", tok)
		}
	}
	if q.Len() != 1 {
		t.Errorf("len = %d", q.Len())
	}
}

func TestEnqueueCopiesBuffer(t *testing.T) {
	q := New()
	buf := []byte("abc")
	tok, _ := q.Enqueue(buf)
	buf[0] = 'z'

	data, _ := q.TakeByToken(tok)
	if string(data) != "abc" {
		t.Errorf("stored job changed to %q", data)
	}
}

func TestPendingIsSnapshot(t *testing.T) {
	q := New()
	_, _ = q.Enqueue([]byte("one"))
	snap := q.Pending()
	snap[0] = "mutated"
	if got, _ := q.PeekFirst(); got == "mutated" {
		t.Error("Pending must return a copy")
	}
}

func TestConcurrentEnqueueAndTake(t *testing.T) {
	q := New()
	const n = 100

	tokens := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := q.Enqueue([]byte("job"))
			if err != nil {
				t.Error(err)
				return
			}
			tokens <- tok
		}()
	}
	wg.Wait()
	close(tokens)

	var taken sync.Map
	var tw sync.WaitGroup
	for tok := range tokens {
		for j := 0; j < 2; j++ {
			tw.Add(1)
			go func(tok string) {
				defer tw.Done()
				if _, ok := q.TakeByToken(tok); ok {
					if _, dup := taken.LoadOrStore(tok, true); dup {
						t.Errorf("token %s delivered twice", tok)
					}
				}
			}(tok)
		}
	}
	tw.Wait()

	if q.Len() != 0 {
		t.Errorf("len = %d after draining", q.Len())
	}
}
