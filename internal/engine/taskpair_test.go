package engine

import (
	"context"
	"testing"
	"time"
)

func TestRunPair_FirstToFinishCancelsTheOther(t *testing.T) {
	otherCanceled := make(chan struct{})

	start := time.Now()
	runPair(context.Background(), func(ctx context.Context) {
		// finishes immediately
	}, func(ctx context.Context) {
		<-ctx.Done()
		close(otherCanceled)
	})
	elapsed := time.Since(start)

	select {
	case <-otherCanceled:
	default:
		t.Fatal("expected the slower task's context to be canceled")
	}
	if elapsed > time.Second {
		t.Fatalf("runPair took too long to return: %v", elapsed)
	}
}

func TestRunPair_ParentCancellationPropagatesToBoth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	aDone := make(chan struct{})
	bDone := make(chan struct{})

	go func() {
		runPair(ctx, func(ctx context.Context) {
			<-ctx.Done()
			close(aDone)
		}, func(ctx context.Context) {
			<-ctx.Done()
			close(bDone)
		})
	}()

	cancel()

	select {
	case <-aDone:
	case <-time.After(time.Second):
		t.Fatal("task a never observed parent cancellation")
	}
	select {
	case <-bDone:
	case <-time.After(time.Second):
		t.Fatal("task b never observed parent cancellation")
	}
}
