package builtin

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// mailboxRegistry is a set of named, buffered channels standing in for
// the actor-style mailboxes spec.md §4.7 sketches as an out-of-core
// domain collaborator. One registry belongs to one RegisterMailbox call
// (and so, in practice, one engine instance).
type mailboxRegistry struct {
	mu    sync.Mutex
	boxes map[string]chan string
}

func newMailboxRegistry() *mailboxRegistry {
	return &mailboxRegistry{boxes: make(map[string]chan string)}
}

const defaultMailboxCapacity = 64

// RegisterMailbox installs the sys:mailbox built-ins.
func RegisterMailbox(preds *wam.PredicateTable) {
	const module = "sys"
	reg := newMailboxRegistry()

	// sys:mailbox_new(-Name): opens a fresh mailbox under a generated
	// name, for callers that don't want to pick their own.
	preds.LoadBuiltin(module, "mailbox_new", 1, func(s *wam.State, arity int) (bool, error) {
		name := uuid.NewString()
		reg.mu.Lock()
		reg.boxes[name] = make(chan string, defaultMailboxCapacity)
		reg.mu.Unlock()
		return unifyAtom(s, 0, name)
	})

	// sys:mailbox_open(+Name): opens (or reopens) a mailbox under a
	// caller-chosen name, idempotently.
	preds.LoadBuiltin(module, "mailbox_open", 1, func(s *wam.State, arity int) (bool, error) {
		name, err := atomArg(s, 0, predName(module, "mailbox_open", arity))
		if err != nil {
			return false, err
		}
		reg.mu.Lock()
		if _, ok := reg.boxes[name]; !ok {
			reg.boxes[name] = make(chan string, defaultMailboxCapacity)
		}
		reg.mu.Unlock()
		return true, nil
	})

	// sys:mailbox_send(+Name, +Text)
	preds.LoadBuiltin(module, "mailbox_send", 2, func(s *wam.State, arity int) (bool, error) {
		name, err := atomArg(s, 0, predName(module, "mailbox_send", arity))
		if err != nil {
			return false, err
		}
		text, err := atomArg(s, 1, predName(module, "mailbox_send", arity))
		if err != nil {
			return false, err
		}
		reg.mu.Lock()
		box, ok := reg.boxes[name]
		reg.mu.Unlock()
		if !ok {
			return false, wamerr.Existence("mailbox", name)
		}
		select {
		case box <- text:
			return true, nil
		default:
			return false, wamerr.Resource("mailbox_send: mailbox " + name + " is full")
		}
	})

	// sys:mailbox_recv(+Name, -Text): the one built-in allowed to block
	// (spec.md §5: "built-ins that perform I/O may block; the
	// interpreter treats them as atomic with respect to the WAM state").
	// It waits on the named channel until a message arrives rather than
	// failing when the mailbox is momentarily empty.
	preds.LoadBuiltin(module, "mailbox_recv", 2, func(s *wam.State, arity int) (bool, error) {
		name, err := atomArg(s, 0, predName(module, "mailbox_recv", arity))
		if err != nil {
			return false, err
		}
		reg.mu.Lock()
		box, ok := reg.boxes[name]
		reg.mu.Unlock()
		if !ok {
			return false, wamerr.Existence("mailbox", name)
		}
		text := <-box
		return unifyAtom(s, 1, text)
	})
}
