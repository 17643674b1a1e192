package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/feedcache/feed"
)

// UpdatedMsg signals that the loader changed; the model re-reads its snapshot.
type UpdatedMsg struct{}

// Notifier adapts feed loader updates to a channel for Bubble Tea. Sends
// never block: a pending signal already makes the model re-read the latest
// snapshot.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// OnUpdate is passed to feed.WithOnUpdate.
func (n *Notifier) OnUpdate(feed.Snapshot) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// wait returns a command that blocks until the next update.
func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return UpdatedMsg{}
	}
}
