package engine

import "context"

// runPair runs a and b concurrently, each given a context derived from ctx.
// The first to return triggers cancellation of the other's context; runPair
// waits for both to return before returning itself, so cleanup after
// runPair always observes both goroutines stopped. This is the Go
// realization of the "cooperative task pair, first to finish wins, cancel
// the rest" pattern used throughout the engine (host command handler vs.
// host metrics pusher, player interrupt task vs. player question task),
// generalizing the shape already present in
// _examples/tkahng-quick-sticks/broker.go's manageGameSession (ticker
// select against session.Context.Done()) and
// _examples/tkahng-quick-sticks/websocket/websocket.go's ServeWS
// (WriteForever/ReadForever sharing one cancellable context).
func runPair(ctx context.Context, a, b func(context.Context)) {
	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{}, 2)

	run := func(f func(context.Context)) {
		defer func() { done <- struct{}{} }()
		f(childCtx)
	}

	go run(a)
	go run(b)

	<-done
	cancel()
	<-done
}
