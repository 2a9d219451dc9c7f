package events

import (
	"context"
	"testing"
)

func TestPublishRunsHandlersInOrder(t *testing.T) {
	var b Bus[string]
	var got []string

	b.Subscribe(func(_ context.Context, e string) { got = append(got, "a:"+e) })
	b.Subscribe(func(_ context.Context, e string) { got = append(got, "b:"+e) })

	if errs := b.Publish(context.Background(), "logout"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(got) != 2 || got[0] != "a:logout" || got[1] != "b:logout" {
		t.Fatalf("unexpected delivery order %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	var b Bus[int]
	calls := 0
	unsub := b.Subscribe(func(context.Context, int) { calls++ })

	b.Publish(context.Background(), 1)
	unsub()
	unsub()
	b.Publish(context.Background(), 2)

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if b.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", b.Len())
	}
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	var b Bus[int]
	reached := false
	b.Subscribe(func(context.Context, int) { panic("boom") })
	b.Subscribe(func(context.Context, int) { reached = true })

	errs := b.Publish(context.Background(), 1)
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if !reached {
		t.Fatal("second handler must still run")
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	var b Bus[int]
	var unsub func()
	calls := 0
	unsub = b.Subscribe(func(context.Context, int) {
		calls++
		unsub()
	})
	b.Subscribe(func(context.Context, int) { calls++ })

	b.Publish(context.Background(), 1)
	b.Publish(context.Background(), 2)

	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestNilHandler(t *testing.T) {
	var b Bus[int]
	b.Subscribe(nil)()
	if b.Len() != 0 {
		t.Fatal("nil handler must not subscribe")
	}
}
