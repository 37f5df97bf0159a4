// Package interaction tracks who talks to whom during a session. It
// maintains conversation threads keyed by thread ID and a directed
// edge count between agents, and answers structural queries the
// orchestrator uses for routing and health checks (disputed threads,
// circular arguments, unanswered messages).
package interaction

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// Edge identifies a directed sender→recipient pair.
type Edge struct {
	From string
	To   string
}

// Graph records every message exchanged in a session as a directed
// multigraph over agents, grouped into threads. Safe for concurrent
// use.
type Graph struct {
	mu      sync.Mutex
	threads map[string]*Thread
	order   []string
	edges   map[Edge]int
	sent    map[string]int
	recv    map[string]int
}

// NewGraph returns an empty interaction graph.
func NewGraph() *Graph {
	return &Graph{
		threads: make(map[string]*Thread),
		edges:   make(map[Edge]int),
		sent:    make(map[string]int),
		recv:    make(map[string]int),
	}
}

// Record adds a message to the graph, creating a new thread when its
// thread ID has not been seen before.
func (g *Graph) Record(msg protocol.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.threads[msg.ThreadID]
	if !ok {
		t = newThread(msg)
		g.threads[msg.ThreadID] = t
		g.order = append(g.order, msg.ThreadID)
	} else {
		t.add(msg)
	}

	g.edges[Edge{From: msg.Sender, To: msg.Recipient}]++
	g.sent[msg.Sender]++
	g.recv[msg.Recipient]++
}

// Thread returns the thread with the given ID.
func (g *Graph) Thread(threadID string) (*Thread, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.threads[threadID]
	return t, ok
}

// Threads returns all threads in creation order.
func (g *Graph) Threads() []*Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Thread, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.threads[id])
	}
	return out
}

// ThreadCount returns the number of threads.
func (g *Graph) ThreadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.threads)
}

// ActiveThreads returns threads that have not reached a resolution.
func (g *Graph) ActiveThreads() []*Thread {
	var out []*Thread
	for _, t := range g.Threads() {
		if !t.Resolved() {
			out = append(out, t)
		}
	}
	return out
}

// DisputedThreads returns threads containing both approving and
// rejecting messages.
func (g *Graph) DisputedThreads() []*Thread {
	var out []*Thread
	for _, t := range g.Threads() {
		if t.Disputed() {
			out = append(out, t)
		}
	}
	return out
}

// ThreadsInvolving returns threads in which the agent sent at least
// one message.
func (g *Graph) ThreadsInvolving(agent string) []*Thread {
	var out []*Thread
	for _, t := range g.Threads() {
		if t.Involves(agent) {
			out = append(out, t)
		}
	}
	return out
}

// ThreadsBetween returns threads whose participants include both
// agents.
func (g *Graph) ThreadsBetween(a, b string) []*Thread {
	var out []*Thread
	for _, t := range g.Threads() {
		p := t.Participants()
		if p[a] && p[b] {
			out = append(out, t)
		}
	}
	return out
}

// EdgeCount returns how many messages were sent from one agent to
// another.
func (g *Graph) EdgeCount(from, to string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edges[Edge{From: from, To: to}]
}

// SentCount returns the total number of messages the agent sent.
func (g *Graph) SentCount(agent string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent[agent]
}

// ReceivedCount returns the total number of messages the agent
// received.
func (g *Graph) ReceivedCount(agent string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recv[agent]
}

// MostActivePair returns the undirected agent pair with the most
// messages exchanged between them, along with the combined count.
// Returns empty strings when no messages have been recorded.
func (g *Graph) MostActivePair() (string, string, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	combined := make(map[Edge]int)
	for e, n := range g.edges {
		key := Edge{From: e.From, To: e.To}
		if key.From > key.To {
			key.From, key.To = key.To, key.From
		}
		combined[key] += n
	}

	var best Edge
	bestCount := 0
	keys := make([]Edge, 0, len(combined))
	for e := range combined {
		keys = append(keys, e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].From != keys[j].From {
			return keys[i].From < keys[j].From
		}
		return keys[i].To < keys[j].To
	})
	for _, e := range keys {
		if combined[e] > bestCount {
			best, bestCount = e, combined[e]
		}
	}
	if bestCount == 0 {
		return "", "", 0
	}
	return best.From, best.To, bestCount
}

// RelationshipMatrix returns directed message counts between every
// pair of agents seen so far, keyed "from->to".
func (g *Graph) RelationshipMatrix() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.edges))
	for e, n := range g.edges {
		out[fmt.Sprintf("%s->%s", e.From, e.To)] = n
	}
	return out
}

// CircularArguments returns threads that look like two agents going
// back and forth without progress: threads of at least minDepth
// messages whose trailing minDepth messages alternate between exactly
// two senders at least minDepth-1 times.
func (g *Graph) CircularArguments(minDepth int) []*Thread {
	if minDepth < 2 {
		minDepth = 2
	}
	var out []*Thread
	for _, t := range g.Threads() {
		msgs := t.Messages()
		if len(msgs) < minDepth {
			continue
		}
		tail := msgs[len(msgs)-minDepth:]

		senders := make(map[string]bool)
		for _, m := range tail {
			senders[m.Sender] = true
		}
		if len(senders) != 2 {
			continue
		}

		alternations := 0
		for i := 1; i < len(tail); i++ {
			if tail[i].Sender != tail[i-1].Sender {
				alternations++
			}
		}
		if alternations >= minDepth-1 {
			out = append(out, t)
		}
	}
	return out
}

// Unanswered returns every message addressed to agent that no other
// message references as its reply target, excluding terminal types.
// A forked reply chain can leave several such messages in one thread,
// and resolving a thread does not answer its side branches.
func (g *Graph) Unanswered(agent string) []protocol.Message {
	threads := g.Threads()

	repliedTo := make(map[string]bool)
	for _, t := range threads {
		for _, m := range t.Messages() {
			if m.ReplyTo != "" {
				repliedTo[m.ReplyTo] = true
			}
		}
	}

	var out []protocol.Message
	for _, t := range threads {
		for _, m := range t.Messages() {
			if m.Recipient != agent || repliedTo[m.ID] {
				continue
			}
			if protocol.TerminalMessageType(m.Type) {
				continue
			}
			out = append(out, m)
		}
	}
	return out
}

// Summary returns a short human-readable description of graph
// activity for status output.
func (g *Graph) Summary() string {
	g.mu.Lock()
	total := 0
	for _, n := range g.edges {
		total += n
	}
	threads := len(g.threads)
	g.mu.Unlock()

	active := len(g.ActiveThreads())
	disputed := len(g.DisputedThreads())
	return fmt.Sprintf("%d messages across %d threads (%d active, %d disputed)",
		total, threads, active, disputed)
}
