package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitBus(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var mu sync.Mutex
	var got []int
	if err := b.Subscribe("n", Func(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Payload.(int))
		mu.Unlock()
	})); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	for i := 0; i < 100; i++ {
		b.Publish("n", i)
	}
	waitBus(t, b)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 100 {
		t.Fatalf("received=%d, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d]=%d, want %d", i, v, i)
		}
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var mu sync.Mutex
	counts := map[string]int{}
	for _, id := range []string{"a", "b", "c"} {
		id := id
		_ = b.Subscribe("x", func(_ context.Context, _ Event) {
			mu.Lock()
			counts[id]++
			mu.Unlock()
		})
	}
	_ = b.Subscribe("other", Func(func(Event) {
		mu.Lock()
		counts["other"]++
		mu.Unlock()
	}))
	if n := b.Subscribers("x"); n != 3 {
		t.Fatalf("Subscribers(x)=%d, want 3", n)
	}

	b.Publish("x", nil)
	b.Publish("x", nil)
	waitBus(t, b)

	mu.Lock()
	defer mu.Unlock()
	for _, id := range []string{"a", "b", "c"} {
		if counts[id] != 2 {
			t.Fatalf("counts[%s]=%d, want 2", id, counts[id])
		}
	}
	if counts["other"] != 0 {
		t.Fatalf("counts[other]=%d, want 0", counts["other"])
	}
}

func TestSlowHandlerDoesNotBlockPublisher(t *testing.T) {
	b := New(nil)
	defer b.Close()

	release := make(chan struct{})
	_ = b.Subscribe("slow", Func(func(Event) { <-release }))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish("slow", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on slow handler")
	}
	close(release)
	waitBus(t, b)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var mu sync.Mutex
	seen := 0
	_ = b.Subscribe("p", Func(func(ev Event) {
		if ev.Payload == "boom" {
			panic("boom")
		}
		mu.Lock()
		seen++
		mu.Unlock()
	}))
	b.Publish("p", "boom")
	b.Publish("p", "ok")
	waitBus(t, b)

	mu.Lock()
	defer mu.Unlock()
	if seen != 1 {
		t.Fatalf("seen=%d, want 1", seen)
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	b := New(nil)
	var mu sync.Mutex
	seen := 0
	_ = b.Subscribe("d", Func(func(Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen++
		mu.Unlock()
	}))
	for i := 0; i < 5; i++ {
		b.Publish("d", i)
	}
	b.Close()
	b.Close()

	mu.Lock()
	if seen != 5 {
		t.Fatalf("seen=%d, want 5", seen)
	}
	mu.Unlock()

	if err := b.Subscribe("d", Func(func(Event) {})); err != ErrClosed {
		t.Fatalf("Subscribe after Close err=%v, want ErrClosed", err)
	}
	b.Publish("d", 1)
}

func TestWaitReturnsOnDeadlineWithStuckHandler(t *testing.T) {
	b := New(nil)
	release := make(chan struct{})
	started := make(chan struct{})
	if err := b.Subscribe("stuck", Func(func(Event) {
		close(started)
		<-release
	})); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	b.Publish("stuck", nil)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	returned := make(chan error, 1)
	go func() {
		returned <- b.Wait(ctx)
	}()
	select {
	case err := <-returned:
		if err != context.DeadlineExceeded {
			t.Fatalf("Wait err=%v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after its deadline")
	}

	close(release)
	waitBus(t, b)
	b.Close()
}
