package pulse

import (
	"errors"
	"reflect"
	"testing"
)

func TestSignalBasic(t *testing.T) {
	count := NewSignal(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestSignalReplaysOnSubscribe(t *testing.T) {
	count := NewSignal(7)

	var got []int
	count.Subscribe(func(n int) { got = append(got, n) })
	if !reflect.DeepEqual(got, []int{7}) {
		t.Fatalf("expected replay of 7, got %v", got)
	}

	count.Set(8)
	if !reflect.DeepEqual(got, []int{7, 8}) {
		t.Errorf("expected [7 8], got %v", got)
	}
}

func TestEmptySignalDoesNotReplay(t *testing.T) {
	s := NewEmptySignal[string]()

	calls := 0
	s.Subscribe(func(string) { calls++ })
	if calls != 0 {
		t.Fatalf("unset signal should not replay, got %d calls", calls)
	}
	if _, ok := s.Lookup(); ok {
		t.Error("Lookup should report unset")
	}

	s.Set("")
	if calls != 1 {
		t.Errorf("first Set should notify even with the zero value, got %d calls", calls)
	}
	if !s.IsSet() {
		t.Error("signal should be set")
	}
}

func TestSignalEqualWriteIsSilent(t *testing.T) {
	s := NewSignal(1)
	calls := 0
	s.Subscribe(func(int) { calls++ })

	s.Set(1)
	s.Update(func(n int) int { return n })
	if calls != 1 {
		t.Errorf("equal writes should not notify, got %d calls", calls)
	}

	s.Set(2)
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestSignalEqualityPolicy(t *testing.T) {
	type point struct{ X, Y int }

	t.Run("struct by value", func(t *testing.T) {
		s := NewSignal(point{1, 2})
		calls := 0
		s.Subscribe(func(point) { calls++ })
		s.Set(point{1, 2})
		if calls != 1 {
			t.Errorf("equal struct should be silent, got %d calls", calls)
		}
	})

	t.Run("pointer by reference", func(t *testing.T) {
		p := &point{1, 2}
		s := NewSignal(p)
		calls := 0
		s.Subscribe(func(*point) { calls++ })
		s.Set(p)
		s.Set(&point{1, 2})
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("slice by reference", func(t *testing.T) {
		items := []int{1, 2}
		s := NewSignal(items)
		calls := 0
		s.Subscribe(func([]int) { calls++ })
		s.Set(items)
		if calls != 1 {
			t.Errorf("same slice should be silent, got %d calls", calls)
		}
		s.Set([]int{1, 2})
		if calls != 2 {
			t.Errorf("fresh slice should notify, got %d calls", calls)
		}
		s.Set(items[:1])
		if calls != 3 {
			t.Errorf("shorter view should notify, got %d calls", calls)
		}
	})

	t.Run("DeepEqual", func(t *testing.T) {
		s := NewSignal([]int{1, 2}).WithEquals(DeepEqual[[]int])
		calls := 0
		s.Subscribe(func([]int) { calls++ })
		s.Set([]int{1, 2})
		if calls != 1 {
			t.Errorf("DeepEqual should treat equal contents as equal, got %d calls", calls)
		}
	})

	t.Run("EqualNever", func(t *testing.T) {
		s := NewSignal(3).WithEquals(EqualNever[int])
		calls := 0
		s.Subscribe(func(int) { calls++ })
		s.Set(3)
		if calls != 2 {
			t.Errorf("EqualNever should notify every write, got %d calls", calls)
		}
	})

	t.Run("func never equal", func(t *testing.T) {
		fn := func() {}
		s := NewSignal(fn)
		calls := 0
		s.Subscribe(func(func()) { calls++ })
		s.Set(fn)
		if calls != 2 {
			t.Errorf("funcs should always notify, got %d calls", calls)
		}
	})

	t.Run("interface holding uncomparable", func(t *testing.T) {
		s := NewSignal[any]([]int{1})
		calls := 0
		s.Subscribe(func(any) { calls++ })
		s.Set(map[string]int{"a": 1})
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})
}

func TestSignalNotify(t *testing.T) {
	s := NewSignal("a")
	calls := 0
	s.Subscribe(func(string) { calls++ })

	s.Notify()
	if calls != 2 {
		t.Errorf("Notify should bypass equality, got %d calls", calls)
	}

	empty := NewEmptySignal[string]()
	empty.Subscribe(func(string) { t.Error("unset signal should not notify") })
	empty.Notify()
}

func TestSignalSameCallbackTwice(t *testing.T) {
	s := NewSignal(0)
	calls := 0
	fn := func(int) { calls++ }

	a := s.Subscribe(fn)
	s.Subscribe(fn)
	if s.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", s.SubscriberCount())
	}

	a.Dispose()
	a.Dispose()
	if s.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber after dispose, got %d", s.SubscriberCount())
	}

	calls = 0
	s.Set(1)
	if calls != 1 {
		t.Errorf("expected the remaining registration to run once, got %d", calls)
	}
}

func TestSignalPanicIsolated(t *testing.T) {
	rec := &recorder{}
	s := NewSignal(0, WithName("count"), WithReporter(rec))

	var got []int
	s.Subscribe(func(n int) {
		if n == 1 {
			panic("boom")
		}
	})
	s.Subscribe(func(n int) { got = append(got, n) })

	s.Set(1)

	if s.Get() != 1 {
		t.Errorf("value should not roll back, got %d", s.Get())
	}
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("second subscriber should still run, got %v", got)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 report, got %d", rec.count())
	}
	var cbErr *CallbackError
	if !errors.As(rec.errs[0], &cbErr) {
		t.Fatalf("expected *CallbackError, got %T", rec.errs[0])
	}
	if cbErr.Source != "count" || cbErr.Recovered != "boom" {
		t.Errorf("unexpected callback error %+v", cbErr)
	}
	if len(cbErr.Stack) == 0 {
		t.Error("expected a stack")
	}
}

func TestSignalPanicWithError(t *testing.T) {
	rec := &recorder{}
	sentinel := errors.New("sentinel")
	s := NewEmptySignal[int](WithReporter(rec))
	s.Subscribe(func(int) { panic(sentinel) })

	s.Set(1)

	if rec.count() != 1 || !errors.Is(rec.errs[0], sentinel) {
		t.Errorf("expected report wrapping sentinel, got %v", rec.errs)
	}
}

func TestSignalUnsubscribeDuringDispatch(t *testing.T) {
	s := NewEmptySignal[int]()

	var second *Subscription
	calls := 0
	s.Subscribe(func(int) { second.Dispose() })
	second = s.Subscribe(func(int) { calls++ })

	s.Set(1)
	if calls != 0 {
		t.Errorf("subscriber removed mid-dispatch should be skipped, got %d calls", calls)
	}
	if s.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", s.SubscriberCount())
	}
}

func TestSignalSubscribeDuringDispatch(t *testing.T) {
	s := NewEmptySignal[int]()

	var late []int
	added := false
	s.Subscribe(func(int) {
		if added {
			return
		}
		added = true
		s.Subscribe(func(n int) { late = append(late, n) })
	})

	s.Set(1)
	if !reflect.DeepEqual(late, []int{1}) {
		t.Errorf("late subscriber should only see its replay, got %v", late)
	}

	s.Set(2)
	if !reflect.DeepEqual(late, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", late)
	}
}

func TestSignalDepthFirst(t *testing.T) {
	s := NewEmptySignal[int]()

	s.Subscribe(func(n int) {
		if n < 3 {
			s.Set(n + 1)
		}
	})
	var seen []int
	s.Subscribe(func(n int) { seen = append(seen, n) })

	s.Set(1)

	if s.Get() != 3 {
		t.Errorf("expected final value 3, got %d", s.Get())
	}
	// Each nested Set completes before the outer dispatch resumes, and every
	// subscriber sees the value captured when its dispatch started.
	if !reflect.DeepEqual(seen, []int{3, 2, 1}) {
		t.Errorf("expected depth-first order [3 2 1], got %v", seen)
	}
}

func TestSignalDispose(t *testing.T) {
	s := NewSignal(1)
	var order []string
	s.Collect(
		DisposeFunc(func() { order = append(order, "a") }),
		DisposeFunc(func() { order = append(order, "b") }),
	)
	calls := 0
	s.Subscribe(func(int) { calls++ })

	s.Dispose()
	s.Dispose()

	if !reflect.DeepEqual(order, []string{"a", "b"}) {
		t.Errorf("expected collected disposables released once in order, got %v", order)
	}
	if s.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", s.SubscriberCount())
	}

	s.Set(2)
	if calls != 1 {
		t.Errorf("disposed signal should not notify, got %d calls", calls)
	}

	sub := s.Subscribe(func(int) { t.Error("disposed signal should not replay") })
	if sub.Active() {
		t.Error("subscription on a disposed signal should be closed")
	}

	released := false
	s.Collect(DisposeFunc(func() { released = true }))
	if !released {
		t.Error("Collect on a disposed signal should release immediately")
	}
}

func TestSignalNames(t *testing.T) {
	named := NewSignal(0, WithName("count"))
	if named.Name() != "count" {
		t.Errorf("expected name count, got %q", named.Name())
	}

	a, b := NewSignal(0), NewSignal(0)
	if a.Name() == b.Name() {
		t.Errorf("generated names should be unique, both %q", a.Name())
	}
}
