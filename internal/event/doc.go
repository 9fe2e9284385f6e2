// Package event provides a pub-sub event bus that decouples the
// orchestration engines from whoever watches a run.
//
// The dispatcher, debate engine and synthesizer publish progress events;
// the CLI progress printer, the TUI and the run logger subscribe to them.
//
// # Event Types
//
// Run lifecycle: run.started, run.phase, run.completed.
// Backend calls: backend.started, backend.completed, backend.failed.
// Debate: debate.started, debate.turn, debate.ended.
// Synthesis: synthesis.started, synthesis.finished.
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Dispatch workers publish from their own
// goroutines, so handlers are called concurrently and must synchronize any
// state they touch. A panicking handler is recovered and logged.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeBackendFailed, func(e event.Event) {
//	    failed := e.(event.BackendFailedEvent)
//	    fmt.Printf("%s failed: %s\n", failed.Name, failed.Kind)
//	})
package event
