package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clawft/clawft/internal/sessions"
	"github.com/clawft/clawft/pkg/models"
)

func TestBusPublishInboundBackpressure(t *testing.T) {
	b := New(Config{InboundBuffer: 1, OutboundBuffer: 1, MaxConcurrentSessions: 1}, nil, nil)

	if err := b.PublishInbound(&models.Message{}); err != nil {
		t.Fatalf("first publish: unexpected error %v", err)
	}
	if err := b.PublishInbound(&models.Message{}); err != ErrBackpressure {
		t.Fatalf("second publish: expected ErrBackpressure, got %v", err)
	}
}

func TestBusDispatchOutboundBackpressure(t *testing.T) {
	b := New(Config{OutboundBuffer: 1}, nil, nil)

	if err := b.DispatchOutbound(&models.Message{}); err != nil {
		t.Fatalf("first dispatch: unexpected error %v", err)
	}
	if err := b.DispatchOutbound(&models.Message{}); err != ErrBackpressure {
		t.Fatalf("second dispatch: expected ErrBackpressure, got %v", err)
	}
}

func TestBusRunsHandlerPerMessage(t *testing.T) {
	b := New(Config{InboundBuffer: 8, MaxConcurrentSessions: 4}, nil, nil)

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.Start(ctx, func(ctx context.Context, msg *models.Message) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})

	for i := 0; i < 3; i++ {
		if err := b.PublishInbound(&models.Message{Channel: models.ChannelSlack, ChannelID: "c"}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler invocations")
	}

	if got := atomic.LoadInt32(&count); got != 3 {
		t.Fatalf("expected handler called 3 times, got %d", got)
	}
}

func TestBusSerializesPerSessionKey(t *testing.T) {
	locker := sessions.NewLocalLocker(time.Second)
	b := New(Config{InboundBuffer: 8, MaxConcurrentSessions: 4}, locker, nil)

	var mu sync.Mutex
	var inFlight int
	var maxInFlight int
	var wg sync.WaitGroup
	wg.Add(5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.Start(ctx, func(ctx context.Context, msg *models.Message) {
		defer wg.Done()
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		if err := b.PublishInbound(&models.Message{Channel: models.ChannelSlack, ChannelID: "same-session"}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler invocations")
	}

	if maxInFlight != 1 {
		t.Fatalf("expected at most 1 concurrent handler for the same session key, saw %d", maxInFlight)
	}
}

func TestBusStopWaitsForInFlight(t *testing.T) {
	b := New(Config{InboundBuffer: 1, MaxConcurrentSessions: 1}, nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.Start(ctx, func(ctx context.Context, msg *models.Message) {
		close(started)
		<-release
	})

	if err := b.PublishInbound(&models.Message{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started

	stopErr := make(chan error, 1)
	go func() {
		stopErr <- b.Stop(context.Background())
	}()

	select {
	case err := <-stopErr:
		t.Fatalf("Stop returned before in-flight handler finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-stopErr; err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
