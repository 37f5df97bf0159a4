package transcript

import (
	"os"
	"strings"
	"testing"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

func testMessage(sender, recipient string, typ protocol.MessageType, round int) protocol.Message {
	m := protocol.New(sender, recipient, typ, "content of "+string(typ))
	m.Round = round
	return m
}

func TestStore_AppendAndQuery(t *testing.T) {
	store := NewStore(t.TempDir())

	plan := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1)
	critique := testMessage(protocol.RoleCritic, protocol.RoleDoer, protocol.MessageCritique, 1)
	plan2 := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 2)

	for _, m := range []protocol.Message{plan, critique, plan2} {
		if err := store.Append(m); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := store.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	if all[0].ID != plan.ID || all[2].ID != plan2.ID {
		t.Error("append order not preserved")
	}

	round1, err := store.Messages(Filter{Round: 1})
	if err != nil {
		t.Fatalf("Messages(round 1): %v", err)
	}
	if len(round1) != 2 {
		t.Errorf("round 1 should have 2 messages, got %d", len(round1))
	}

	plans, err := store.Messages(Filter{Sender: protocol.RoleDoer, Type: protocol.MessagePlan})
	if err != nil {
		t.Fatalf("Messages(plans): %v", err)
	}
	if len(plans) != 2 {
		t.Errorf("expected 2 plans, got %d", len(plans))
	}
}

func TestStore_Last(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, ok, err := store.Last(Filter{}); err != nil || ok {
		t.Fatalf("Last on empty store = ok=%v err=%v, want false, nil", ok, err)
	}

	first := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1)
	second := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1)
	if err := store.Append(first); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(second); err != nil {
		t.Fatal(err)
	}

	last, ok, err := store.Last(Filter{Type: protocol.MessagePlan})
	if err != nil || !ok {
		t.Fatalf("Last = ok=%v err=%v", ok, err)
	}
	if last.ID != second.ID {
		t.Error("Last should return the most recent matching message")
	}
}

func TestStore_ThreadFilter(t *testing.T) {
	store := NewStore(t.TempDir())

	root := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1)
	reply := protocol.NewReply(root, protocol.RoleCritic, protocol.MessageCritique, "no")
	other := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1)

	for _, m := range []protocol.Message{root, reply, other} {
		if err := store.Append(m); err != nil {
			t.Fatal(err)
		}
	}

	thread, err := store.Messages(Filter{ThreadID: root.ThreadID})
	if err != nil {
		t.Fatalf("Messages(thread): %v", err)
	}
	if len(thread) != 2 {
		t.Errorf("thread should contain 2 messages, got %d", len(thread))
	}
}

func TestStore_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	good := testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1)
	if err := store.Append(good); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(store.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	all, err := store.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("corrupt line should be skipped, got %d messages", len(all))
	}
}

func TestStore_RejectsIncompleteMessages(t *testing.T) {
	store := NewStore(t.TempDir())

	m := protocol.New("", protocol.RoleCritic, protocol.MessagePlan, "x")
	if err := store.Append(m); err == nil {
		t.Error("message without sender should be rejected")
	}

	m = protocol.New(protocol.RoleDoer, protocol.RoleCritic, "", "x")
	if err := store.Append(m); err == nil {
		t.Error("message without type should be rejected")
	}
}

func TestStore_CountBySenderAndBetween(t *testing.T) {
	store := NewStore(t.TempDir())

	msgs := []protocol.Message{
		testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1),
		testMessage(protocol.RoleCritic, protocol.RoleDoer, protocol.MessageCritique, 1),
		testMessage(protocol.RoleDoer, protocol.RoleArbiter, protocol.MessageEscalation, 1),
	}
	for _, m := range msgs {
		if err := store.Append(m); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.CountBySender()
	if err != nil {
		t.Fatal(err)
	}
	if counts[protocol.RoleDoer] != 2 || counts[protocol.RoleCritic] != 1 {
		t.Errorf("counts = %v", counts)
	}

	pair, err := store.Between(protocol.RoleDoer, protocol.RoleCritic)
	if err != nil {
		t.Fatal(err)
	}
	if len(pair) != 2 {
		t.Errorf("doer<->critic should have 2 messages, got %d", len(pair))
	}
}

func TestText_GroupsByRound(t *testing.T) {
	msgs := []protocol.Message{
		testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 1),
		testMessage(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, 2),
	}
	text := Text(msgs)
	if !strings.Contains(text, "ROUND 1") || !strings.Contains(text, "ROUND 2") {
		t.Errorf("rendered transcript missing round headers:\n%s", text)
	}

	if Text(nil) != "No messages yet." {
		t.Error("empty transcript should render placeholder")
	}
}
