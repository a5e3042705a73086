package executor

import (
	"errors"
	"testing"
)

type stubProcess struct {
	err       error
	cancelled int
}

func (s *stubProcess) Done() <-chan struct{} { return nil }

func (s *stubProcess) Cancel() error {
	s.cancelled++
	return s.err
}

func TestRegistry(t *testing.T) {
	var r Registry
	a, b := &stubProcess{}, &stubProcess{}

	r.Add(a)
	r.Add(b)
	r.Add(a)
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	r.Remove(b)
	if r.Len() != 1 {
		t.Fatalf("Len() after Remove = %d, want 1", r.Len())
	}

	n, err := r.CancelAll()
	if n != 1 || err != nil {
		t.Errorf("CancelAll() = %d, %v; want 1, nil", n, err)
	}
	if a.cancelled != 1 || b.cancelled != 0 {
		t.Errorf("cancel counts a=%d b=%d, want 1 and 0", a.cancelled, b.cancelled)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after CancelAll = %d, want 0", r.Len())
	}

	if n, err := r.CancelAll(); n != 0 || err != nil {
		t.Errorf("second CancelAll() = %d, %v; want 0, nil", n, err)
	}
}

func TestRegistry_CancelErrors(t *testing.T) {
	var r Registry
	boom := errors.New("boom")
	r.Add(&stubProcess{err: boom})
	r.Add(&stubProcess{})

	n, err := r.CancelAll()
	if n != 2 {
		t.Errorf("CancelAll() n = %d, want 2", n)
	}
	if !errors.Is(err, boom) {
		t.Errorf("CancelAll() err = %v, want it to wrap boom", err)
	}
}
