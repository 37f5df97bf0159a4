package transcript

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// Text renders messages as a plain-text log grouped by round.
func Text(messages []protocol.Message) string {
	if len(messages) == 0 {
		return "No messages yet."
	}

	var b strings.Builder
	currentRound := -1
	for _, msg := range messages {
		if msg.Round != currentRound {
			currentRound = msg.Round
			fmt.Fprintf(&b, "\n%s\n  ROUND %d\n%s\n\n", strings.Repeat("=", 60), currentRound, strings.Repeat("=", 60))
		}
		fmt.Fprintf(&b, "[%s] -> [%s] (%s)\n", msg.Sender, msg.Recipient, msg.Type)
		preview := msg.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		fmt.Fprintf(&b, "   %s\n\n", preview)
	}
	return b.String()
}
