package chatbot

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runREPL(t *testing.T, bot *ChatBot, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := NewREPL(bot, "2349150524245").Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	return out.String()
}

func TestREPL_SubmitsPlainLines(t *testing.T) {
	fake := &fakeCompleter{}
	bot, _ := newTestBot(t, fake)

	out := runREPL(t, bot, "Hello\n\n/quit\nnever sent\n")

	assert.Contains(t, out, "Bot: echo: Hello")
	assert.Contains(t, out, "Goodbye!")
	assert.Equal(t, 1, fake.callCount())
	assert.Len(t, bot.Transcript(), 2)
}

func TestREPL_CooldownIsVisible(t *testing.T) {
	fake := &fakeCompleter{}
	bot, _ := newTestBot(t, fake)

	out := runREPL(t, bot, "one\ntwo\n")

	assert.Contains(t, out, "Bot: "+MsgCooldown)
	assert.Equal(t, 1, fake.callCount())
}

func TestREPL_Commands(t *testing.T) {
	fake := &fakeCompleter{}
	bot, _ := newTestBot(t, fake)

	out := runREPL(t, bot, "/help\n/suggestions\n/suggest 2\n/status\n/history\n/plan professional\n/exit\n")

	assert.Contains(t, out, "Available commands:")
	assert.Contains(t, out, "[1] What features does EduPro offer?")
	assert.Contains(t, out, "Bot: echo: How much does EduPro cost?")
	assert.Contains(t, out, "Health: connected")
	assert.Contains(t, out, "Processing: false")
	assert.Contains(t, out, "Context turns: 2")
	assert.Contains(t, out, "user: How much does EduPro cost?")
	assert.Contains(t, out, "https://wa.me/2349150524245?text=")
	assert.Contains(t, out, "Professional plan for ₦1,200,000")
}

func TestREPL_CommandErrors(t *testing.T) {
	fake := &fakeCompleter{}
	bot, _ := newTestBot(t, fake)

	out := runREPL(t, bot, "/suggest\n/suggest abc\n/suggest 9\n/plan gold\n/frobnicate\n")

	assert.Contains(t, out, "Error: usage: /suggest <n>")
	assert.Contains(t, out, `invalid suggestion number "abc"`)
	assert.Contains(t, out, "no suggestion 9")
	assert.Contains(t, out, "Error: unknown plan")
	assert.Contains(t, out, "unknown command: /frobnicate")
	assert.Zero(t, fake.callCount())
	assert.Empty(t, bot.Transcript())
}

func TestREPL_Probe(t *testing.T) {
	fake := &fakeCompleter{}
	bot, _ := newTestBot(t, fake)

	out := runREPL(t, bot, "/probe\n")
	assert.Contains(t, out, "Health: connected")
}

func TestREPL_StopsWhenContextCancelled(t *testing.T) {
	fake := &fakeCompleter{}
	bot, _ := newTestBot(t, fake)

	// The pipe never delivers a line, so only cancellation can end Run.
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- NewREPL(bot, "2349150524245").Run(ctx, in, &out) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Contains(t, out.String(), "Goodbye!")
	assert.Zero(t, fake.callCount())
}
