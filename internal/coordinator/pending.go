package coordinator

import "context"

// pendingKind enumerates the special pending-input states the text
// turn algorithm's step 1 consults before running the normal
// injection pipeline.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingImageCount
	pendingTimerSpec
	pendingTimerPrompt
)

type pendingState struct {
	kind pendingKind
	// timerSpec stages the frequency/cron string between the two
	// /timer wizard steps.
	timerSpec string
}

// consumePending handles text as a reply to a pending special state
// (step 1 of the text turn algorithm), returning true if it consumed
// the message.
func (c *Coordinator) consumePending(ctx context.Context, chatID, text string) bool {
	c.mu.Lock()
	st := c.pending[chatID]
	c.mu.Unlock()
	if st == nil {
		return false
	}

	switch st.kind {
	case pendingImageCount:
		c.clearPending(chatID)
		c.sendPendingImages(ctx, chatID, text)
		return true
	case pendingTimerSpec:
		c.mu.Lock()
		st.kind = pendingTimerPrompt
		st.timerSpec = text
		c.mu.Unlock()
		c.reply(ctx, chatID, "Prompt to send on each tick?")
		return true
	case pendingTimerPrompt:
		spec := st.timerSpec
		c.clearPending(chatID)
		if c.Timer == nil {
			c.reply(ctx, chatID, "timer not configured")
			return true
		}
		if err := c.Timer.StartTimer(ctx, spec, text); err != nil {
			c.reply(ctx, chatID, "could not start timer: "+err.Error())
			return true
		}
		c.reply(ctx, chatID, "timer started")
		return true
	}
	return false
}

func (c *Coordinator) setPending(chatID string, kind pendingKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[chatID] = &pendingState{kind: kind}
}

func (c *Coordinator) clearPending(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, chatID)
}
