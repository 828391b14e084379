package sync

import (
	"context"
	"strings"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

// Directory looks users up.
type Directory interface {
	SearchUsers(ctx context.Context, query string) ([]backend.UserSummary, error)
	ListUsers(ctx context.Context) ([]backend.UserSummary, error)
}

// Originator starts conversations with users who may have no dialog yet.
type Originator struct {
	dir     Directory
	ids     UserIDSource
	dialogs *Dialogs
	thread  *Thread
	logger  *zap.Logger
}

// NewOriginator creates an originator that selects new dialogs on thread
// and lists them in dialogs.
func NewOriginator(dir Directory, ids UserIDSource, dialogs *Dialogs, thread *Thread, logger *zap.Logger) *Originator {
	return &Originator{dir: dir, ids: ids, dialogs: dialogs, thread: thread, logger: logging.OrNop(logger)}
}

type userSource []backend.UserSummary

func (u userSource) String(i int) string {
	return u[i].DisplayName() + " " + u[i].Username
}

func (u userSource) Len() int { return len(u) }

// Search returns directory entries for query, best match first. An empty
// query lists everyone. The current user is left out.
func (o *Originator) Search(ctx context.Context, query string) ([]backend.UserSummary, error) {
	query = strings.TrimSpace(query)
	var (
		users []backend.UserSummary
		err   error
	)
	if query == "" {
		users, err = o.dir.ListUsers(ctx)
	} else {
		users, err = o.dir.SearchUsers(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	others := make(userSource, 0, len(users))
	for _, u := range users {
		if o.isMe(u.ID) {
			continue
		}
		others = append(others, u)
	}
	if query == "" || len(others) < 2 {
		return others, nil
	}

	// The server already filtered; fuzzy matching only reorders, and
	// entries it cannot match keep their server order at the end.
	matches := fuzzy.FindFrom(query, others)
	ranked := make([]backend.UserSummary, 0, len(others))
	used := make([]bool, len(others))
	for _, m := range matches {
		ranked = append(ranked, others[m.Index])
		used[m.Index] = true
	}
	for i, u := range others {
		if !used[i] {
			ranked = append(ranked, u)
		}
	}
	return ranked, nil
}

func (o *Originator) isMe(id int64) bool {
	if o.ids == nil {
		return false
	}
	me, ok := o.ids.UserID()
	return ok && me == id
}

// Originate selects a conversation with u. When the dialog list already
// has one it is reused; otherwise a local dialog with no preview and no
// unread messages is made and listed until the next dialog refresh.
func (o *Originator) Originate(ctx context.Context, u backend.UserSummary) backend.Dialog {
	dlg, ok := backend.Dialog{}, false
	if o.dialogs != nil {
		dlg, ok = o.dialogs.Find(u.ID)
	}
	if !ok {
		dlg = backend.Dialog{PeerID: u.ID, Name: u.DisplayName(), Avatar: u.Avatar}
		if o.dialogs != nil {
			o.dialogs.Insert(dlg)
		}
		o.logger.Info("dialog originated", zap.Int64("peer_id", u.ID))
	}
	o.thread.Select(ctx, dlg)
	return dlg
}
