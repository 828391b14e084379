package sync

import (
	"fmt"

	"github.com/matheus3301/soc/internal/backend"
)

// matchKey groups messages that the thread cannot tell apart without a
// server id. The sender is left out because it may be unknown locally;
// direction is still captured by the receiver.
func matchKey(m backend.Message) string {
	return fmt.Sprintf("%d|%s|%s", m.ReceiverID, m.Content, m.PictureURL)
}

// pendingMessage is a sent message the server snapshot has not shown yet.
// baseline is how many messages with the same matchKey were already
// expected (confirmed or pending) when the send went out; the message
// counts as confirmed once a snapshot holds more than that.
type pendingMessage struct {
	msg      backend.Message
	key      string
	baseline int
}

// threadState merges polled snapshots with locally sent messages. The
// snapshot is authoritative; pending messages stay at the tail until a
// snapshot accounts for them.
type threadState struct {
	confirmed []backend.Message
	pending   []pendingMessage
}

func (s *threadState) reset() {
	s.confirmed = nil
	s.pending = nil
}

func (s *threadState) confirmedCount(key string) int {
	n := 0
	for _, m := range s.confirmed {
		if matchKey(m) == key {
			n++
		}
	}
	return n
}

// expected is the number of messages with key the thread already knows
// about, confirmed or pending.
func (s *threadState) expected(key string) int {
	n := s.confirmedCount(key)
	for _, p := range s.pending {
		if p.key == key {
			n++
		}
	}
	return n
}

func (s *threadState) hasID(id int64) bool {
	if id == 0 {
		return false
	}
	for _, m := range s.confirmed {
		if m.ID == id {
			return true
		}
	}
	return false
}

// apply installs a new snapshot and drops the pending messages it covers.
func (s *threadState) apply(snapshot []backend.Message) {
	counts := make(map[string]int, len(snapshot))
	ids := make(map[int64]bool)
	for _, m := range snapshot {
		counts[matchKey(m)]++
		if m.ID != 0 {
			ids[m.ID] = true
		}
	}

	kept := s.pending[:0]
	for _, p := range s.pending {
		if (p.msg.ID != 0 && ids[p.msg.ID]) || counts[p.key] > p.baseline {
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
	s.confirmed = snapshot
}

// appendSent records a message returned by a send. draftKey and baseline
// come from before the send went out. If the snapshot has already grown
// past the baseline the message is confirmed and nothing is added.
func (s *threadState) appendSent(m backend.Message, draftKey string, baseline int) {
	if s.hasID(m.ID) {
		return
	}
	key := matchKey(m)
	if key != draftKey {
		baseline = s.expected(key)
	}
	if s.confirmedCount(key) > baseline {
		return
	}
	s.pending = append(s.pending, pendingMessage{msg: m, key: key, baseline: baseline})
}

// view returns the visible thread: snapshot first, then pending.
func (s *threadState) view() []backend.Message {
	out := make([]backend.Message, 0, len(s.confirmed)+len(s.pending))
	out = append(out, s.confirmed...)
	for _, p := range s.pending {
		out = append(out, p.msg)
	}
	return out
}
