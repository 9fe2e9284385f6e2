package progress

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/quorum/internal/event"
)

// Run shows the progress view while work runs. Events published on bus
// are forwarded to the program. Quitting the view cancels work's context
// and waits for it to return. Run returns work's error.
func Run(ctx context.Context, bus *event.Bus, title string, work func(ctx context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(title, cancel), opts...)
	if bus != nil {
		id := bus.SubscribeAll(func(e event.Event) {
			p.Send(EventMsg{Event: e})
		})
		defer bus.Unsubscribe(id)
	}

	done := make(chan error, 1)
	go func() {
		err := work(ctx)
		done <- err
		p.Send(DoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return err
	}
	return <-done
}
