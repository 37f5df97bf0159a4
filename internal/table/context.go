package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Iron-Ham/tribunal/internal/interaction"
	"github.com/Iron-Ham/tribunal/internal/negotiation"
	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/Iron-Ham/tribunal/internal/state"
	"github.com/Iron-Ham/tribunal/internal/transcript"
	"github.com/Iron-Ham/tribunal/internal/trust"
	"github.com/Iron-Ham/tribunal/internal/util"
)

// Caps keeping generated context prompts a manageable size.
const (
	maxListedNegotiations = 5
	maxListedThreads      = 5
	maxHistoryMessages    = 15
	historyPreviewRunes   = 300
	threadPreviewRunes    = 60
)

// ContextBuilder renders per-role markdown context prompts from the
// session's stores. Each builder method reads the current session state
// and transcript, so prompts always reflect the latest persisted facts.
type ContextBuilder struct {
	state *state.Store
	log   *transcript.Store
	trust *trust.Ledger
	negs  *negotiation.Manager
	graph *interaction.Graph
}

// NewContextBuilder wires a builder over the session's components. The
// trust ledger, negotiation manager, and graph may be nil; their
// sections are simply omitted.
func NewContextBuilder(st *state.Store, log *transcript.Store, ledger *trust.Ledger, negs *negotiation.Manager, graph *interaction.Graph) *ContextBuilder {
	return &ContextBuilder{state: st, log: log, trust: ledger, negs: negs, graph: graph}
}

// DoerContext renders the prompt for the doer: the task, the latest
// critique, review, and arbiter rulings, plus shared session sections.
func (c *ContextBuilder) DoerContext() (string, error) {
	st, err := c.state.Load()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Tribunal — Doer Context (Round %d)\n\n", st.CurrentRound)
	fmt.Fprintf(&b, "## Task\n\n%s\n\n", st.Task)
	fmt.Fprintf(&b, "## Current Phase: %s\n", st.CurrentPhase)

	c.trustSection(&b, protocol.RoleDoer)

	if critique, ok, err := c.lastFrom(protocol.RoleCritic, protocol.MessageCritique); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Latest Critique from Critic\n\n%s\n\n**Approved:** %t\n", critique.Content, critique.Approved())
	}
	if review, ok, err := c.lastFrom(protocol.RoleCritic, protocol.MessageReview); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Latest Review from Critic\n\n%s\n\n**Approved:** %t\n", review.Content, review.Approved())
	}
	if decision, ok, err := c.lastFrom(protocol.RoleArbiter, protocol.MessageDecision); err != nil {
		return "", err
	} else if ok {
		side := decision.SideWith()
		if side == "" {
			side = "n/a"
		}
		fmt.Fprintf(&b, "\n## Arbiter's Decision\n\n%s\n\n**Sides with:** %s\n", decision.Content, side)
	}
	if approval, ok, err := c.lastFrom(protocol.RoleArbiter, protocol.MessageApproval); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Arbiter Approval\n\n%s\n", approval.Content)
	}
	if rejection, ok, err := c.lastFrom(protocol.RoleArbiter, protocol.MessageRejection); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Arbiter Rejection\n\n%s\n", rejection.Content)
	}

	c.negotiationsSection(&b)
	c.threadsSection(&b, protocol.RoleDoer)
	if err := c.conversationHistory(&b, st.CurrentRound); err != nil {
		return "", err
	}

	b.WriteString("\n## Your Role\n\n" +
		"You are the **Doer**. Execute the task and respond to feedback.\n" +
		"- Address every point the critic raised before resubmitting\n" +
		"- Follow the arbiter's decisions; they are binding\n" +
		"- You can COUNTER-PROPOSE if you disagree with a critique\n" +
		"- You can REQUEST CLARIFICATION when feedback is ambiguous\n")

	return b.String(), nil
}

// CriticContext renders the prompt for the critic: the task, the doer's
// latest plan and implementation, plus shared session sections.
func (c *ContextBuilder) CriticContext() (string, error) {
	st, err := c.state.Load()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Tribunal — Critic Context (Round %d)\n\n", st.CurrentRound)
	fmt.Fprintf(&b, "## Task\n\n%s\n\n", st.Task)
	fmt.Fprintf(&b, "## Current Phase: %s\n", st.CurrentPhase)

	c.trustSection(&b, protocol.RoleCritic)

	if plan, ok, err := c.lastFrom(protocol.RoleDoer, protocol.MessagePlan); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Doer's Plan\n\n%s\n", plan.Content)
	}
	if impl, ok, err := c.lastFrom(protocol.RoleDoer, protocol.MessageImplementation); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Doer's Implementation\n\n%s\n", impl.Content)
	}
	if decision, ok, err := c.lastFrom(protocol.RoleArbiter, protocol.MessageDecision); err != nil {
		return "", err
	} else if ok {
		fmt.Fprintf(&b, "\n## Arbiter's Previous Decision\n\n%s\n", decision.Content)
	}

	c.negotiationsSection(&b)
	c.threadsSection(&b, protocol.RoleCritic)
	if err := c.conversationHistory(&b, st.CurrentRound); err != nil {
		return "", err
	}

	b.WriteString("\n## Your Role\n\n" +
		"You are the **Critic**. Review the Doer's work critically.\n" +
		"- Identify bugs, logic errors, security issues\n" +
		"- Suggest improvements\n" +
		"- State clearly if you APPROVE or REJECT\n" +
		"- If you reject, explain exactly what needs to change\n" +
		"- You can REQUEST CLARIFICATION if something is unclear\n" +
		"- You can COUNTER-PROPOSE an alternative approach\n")

	return b.String(), nil
}

// ArbiterContext renders the prompt for the arbiter: the task, trust
// scores for both sides, and the full conversation of the current round.
func (c *ContextBuilder) ArbiterContext() (string, error) {
	st, err := c.state.Load()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Tribunal — Arbiter Context (Round %d)\n\n", st.CurrentRound)
	fmt.Fprintf(&b, "## Task\n\n%s\n\n", st.Task)
	fmt.Fprintf(&b, "## Escalation #%d\n", st.EscalationCount)

	if c.trust != nil {
		doerW, derr := c.trust.Weight(protocol.RoleDoer)
		criticW, cerr := c.trust.Weight(protocol.RoleCritic)
		if derr == nil && cerr == nil {
			fmt.Fprintf(&b, "\n## Agent Trust Scores\n\n- Doer trust: **%.2f**\n- Critic trust: **%.2f**\n", doerW, criticW)
		}
	}

	c.negotiationsSection(&b)

	roundMsgs, err := c.log.Messages(transcript.Filter{Round: st.CurrentRound})
	if err != nil {
		return "", err
	}
	if len(roundMsgs) > 0 {
		b.WriteString("\n## Full Conversation This Round\n")
		for _, msg := range roundMsgs {
			indent := ""
			if msg.IsReply() {
				indent = "  > "
			}
			fmt.Fprintf(&b, "\n### %s%s -> %s (%s)\n\n%s\n", indent, msg.Sender, msg.Recipient, msg.Type, msg.Content)
		}
	}

	b.WriteString("\n## Your Role\n\n" +
		"You are the **Arbiter**. You have final authority.\n" +
		"- Read both the Doer's work and the Critic's feedback\n" +
		"- Consider each agent's trust score when weighing their arguments\n" +
		"- Make a fair, well-reasoned decision\n" +
		"- State which approach is correct and why\n" +
		"- Your decision is final; the Doer must follow it\n")

	return b.String(), nil
}

func (c *ContextBuilder) lastFrom(sender string, msgType protocol.MessageType) (protocol.Message, bool, error) {
	return c.log.Last(transcript.Filter{Sender: sender, Type: msgType})
}

func (c *ContextBuilder) trustSection(b *strings.Builder, agent string) {
	if c.trust == nil {
		return
	}
	weight, err := c.trust.Weight(agent)
	if err != nil {
		return
	}
	filled := int(weight * 10)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", 10-filled)
	fmt.Fprintf(b, "\n## Trust Score\n\nYour current trust weight: **%.2f** [%s]\n*(Higher trust = more influence in consensus decisions)*\n", weight, bar)
}

func (c *ContextBuilder) negotiationsSection(b *strings.Builder) {
	if c.negs == nil {
		return
	}
	active := c.negs.Active()
	if len(active) == 0 {
		return
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	b.WriteString("\n## Active Negotiations\n\n")
	for i, neg := range active {
		if i >= maxListedNegotiations {
			break
		}
		fmt.Fprintf(b, "- **%s** — status: `%s`, rounds: %d\n", neg.Subject, neg.Status, neg.RoundCount())
	}
}

func (c *ContextBuilder) threadsSection(b *strings.Builder, agent string) {
	if c.graph == nil {
		return
	}
	var relevant []*interaction.Thread
	for _, t := range c.graph.ActiveThreads() {
		if t.Involves(agent) {
			relevant = append(relevant, t)
		}
	}
	if len(relevant) == 0 {
		return
	}
	b.WriteString("\n## Open Conversation Threads\n\n")
	for i, t := range relevant {
		if i >= maxListedThreads {
			break
		}
		last := t.Last()
		id := t.ID()
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(b, "- Thread `%s` (%d msgs, last: %s->%s): %s\n",
			id, t.Depth(), last.Sender, last.Recipient, util.TruncateString(last.Content, threadPreviewRunes))
	}
}

func (c *ContextBuilder) conversationHistory(b *strings.Builder, round int) error {
	msgs, err := c.log.Messages(transcript.Filter{Round: round})
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > maxHistoryMessages {
		msgs = msgs[len(msgs)-maxHistoryMessages:]
	}
	b.WriteString("\n## Conversation History\n")
	for _, msg := range msgs {
		indent := ""
		if msg.IsReply() {
			indent = "  > "
		}
		fmt.Fprintf(b, "\n%s**%s** -> %s (%s)\n%s%s\n",
			indent, msg.Sender, msg.Recipient, msg.Type, indent, util.TruncateString(msg.Content, historyPreviewRunes))
	}
	return nil
}
