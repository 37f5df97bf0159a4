package interaction

import (
	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// Thread is a single conversation between agents: the root message plus
// every reply sharing its thread ID, in arrival order.
type Thread struct {
	id       string
	messages []protocol.Message
	byID     map[string]int
}

func newThread(root protocol.Message) *Thread {
	t := &Thread{
		id:   root.ThreadID,
		byID: make(map[string]int),
	}
	t.add(root)
	return t
}

func (t *Thread) add(msg protocol.Message) {
	t.byID[msg.ID] = len(t.messages)
	t.messages = append(t.messages, msg)
}

// ID returns the thread identifier, equal to the root message's ID.
func (t *Thread) ID() string {
	return t.id
}

// Root returns the message that started the thread.
func (t *Thread) Root() protocol.Message {
	return t.messages[0]
}

// Messages returns the thread's messages in chronological order.
func (t *Thread) Messages() []protocol.Message {
	out := make([]protocol.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Get returns a message in this thread by ID.
func (t *Thread) Get(messageID string) (protocol.Message, bool) {
	i, ok := t.byID[messageID]
	if !ok {
		return protocol.Message{}, false
	}
	return t.messages[i], true
}

// Depth returns the number of messages in the thread.
func (t *Thread) Depth() int {
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Thread) Last() protocol.Message {
	return t.messages[len(t.messages)-1]
}

// Participants returns the set of roles that sent messages in this
// thread.
func (t *Thread) Participants() map[string]bool {
	out := make(map[string]bool)
	for _, m := range t.messages {
		out[m.Sender] = true
	}
	return out
}

// Involves reports whether the agent sent any message in the thread.
func (t *Thread) Involves(agent string) bool {
	for _, m := range t.messages {
		if m.Sender == agent {
			return true
		}
	}
	return false
}

// Resolved reports whether the thread ended in agreement: its last
// message is an approval or acknowledgment, or a critique/review
// carrying approved=true.
func (t *Thread) Resolved() bool {
	last := t.Last()
	switch last.Type {
	case protocol.MessageApproval, protocol.MessageAcknowledgment:
		return true
	case protocol.MessageCritique, protocol.MessageReview:
		return last.Approved()
	}
	return false
}

// Disputed reports whether messages in the thread disagree on the
// approved flag.
func (t *Thread) Disputed() bool {
	var sawApprove, sawReject bool
	for _, m := range t.messages {
		if !m.HasApprovalStance() {
			continue
		}
		if m.Approved() {
			sawApprove = true
		} else {
			sawReject = true
		}
	}
	return sawApprove && sawReject
}

// ReplyChain returns the chain of messages leading to messageID,
// root-first, by following ReplyTo links within the thread.
func (t *Thread) ReplyChain(messageID string) []protocol.Message {
	var chain []protocol.Message
	current, ok := t.Get(messageID)
	for ok {
		chain = append(chain, current)
		if current.ReplyTo == "" {
			break
		}
		current, ok = t.Get(current.ReplyTo)
	}
	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
