package metrics

import "github.com/smazurov/pidone/internal/events"

// Subscribe updates the counters from bus events. Returns a function that
// removes the subscriptions.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.ProcessReapedEvent) {
			RecordReaped(e.Termination)
		}),
		bus.Subscribe(func(e events.SignalReceivedEvent) {
			RecordSignal(e.Signal)
		}),
		bus.Subscribe(func(e events.OrphanStateChangedEvent) {
			RecordOrphanTransition(e.To)
		}),
		bus.Subscribe(func(e events.CommandSpawnedEvent) {
			RecordSpawn(e.Command)
		}),
		bus.Subscribe(func(e events.CommandRekeyedEvent) {
			RecordRekey(e.Command)
		}),
		bus.Subscribe(func(e events.CommandDroppedEvent) {
			RecordDrop(e.Command, e.Code)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
