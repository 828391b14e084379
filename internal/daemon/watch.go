package daemon

import (
	"fmt"

	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/status"
	"go.uber.org/zap"
)

// watcher drives the status machine from inbox events.
type watcher struct {
	unsub func()
	quit  chan struct{}
	done  chan struct{}
}

func watch(b *bus.Bus, machine *status.Machine, logger *zap.Logger) *watcher {
	ch, unsub := b.Subscribe("", 64)
	w := &watcher{unsub: unsub, quit: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case evt := <-ch:
				handle(evt, machine, logger)
			case <-w.quit:
				return
			}
		}
	}()
	return w
}

// stop ends the watch and waits for the handler to return. Safe on nil.
func (w *watcher) stop() {
	if w == nil {
		return
	}
	w.unsub()
	close(w.quit)
	<-w.done
}

func handle(evt bus.Event, machine *status.Machine, logger *zap.Logger) {
	switch evt.Kind {
	case bus.DialogsUpdated:
		if machine.Advance(status.Ready, "") {
			logger.Info("session ready")
		}
	case bus.DialogsFailed:
		if machine.Advance(status.Degraded, fmt.Sprint(evt.Payload)) {
			logger.Warn("dialog sync degraded", zap.Any("error", evt.Payload))
		}
	case bus.SessionLoggedOut:
		machine.Advance(status.AuthRequired, "logged out")
		logger.Info("session logged out")
	}
}
