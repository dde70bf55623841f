package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pi-assistant/internal/models"
)

// fakeGenerator scripts model output and records what it was asked.
type fakeGenerator struct {
	mu       sync.Mutex
	output   string
	err      error
	loaded   bool
	delay    time.Duration
	calls    int
	prompts  []Prompt
	inFlight int32
	maxSeen  int32
	panicMsg string
}

func (g *fakeGenerator) Loaded() bool { return g.loaded }

func (g *fakeGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	n := atomic.AddInt32(&g.inFlight, 1)
	defer atomic.AddInt32(&g.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&g.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&g.maxSeen, seen, n) {
			break
		}
	}

	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, p)
	g.mu.Unlock()

	if g.panicMsg != "" {
		panic(g.panicMsg)
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	return g.output, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestPostProcess_TrimsToThreeSentences(t *testing.T) {
	raw := "The sky is blue. Grass is green. Snow is white. Coal is black. Fire is hot"
	assert.Equal(t, "The sky is blue. Grass is green. Snow is white.", PostProcess("colors", raw))
}

func TestPostProcess_AddsTrailingPeriod(t *testing.T) {
	assert.Equal(t, "Paris is the capital of France.", PostProcess("capital of france", "Paris is the capital of France"))
	assert.Equal(t, "Is that a question you have?", PostProcess("hmm", "Is that a question you have?"))
}

func TestPostProcess_StripsRoleLabels(t *testing.T) {
	raw := "Assistant: The weather looks sunny today.\nUser: thanks"
	assert.Equal(t, "The weather looks sunny today.", PostProcess("weather", raw))
}

func TestPostProcess_DegenerateOutputBecomesClarification(t *testing.T) {
	tests := []struct {
		name  string
		input string
		raw   string
	}{
		{"empty", "tell me something", ""},
		{"too short", "tell me something", "Okay sure."},
		{"exact echo", "tell me a long story please", "tell me a long story please"},
		{"echo different case", "Tell Me A Long Story Please", "tell me a long story please"},
		{"substring of input", "what is the meaning of life and everything", "meaning of life and everything"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, ClarificationResponse, PostProcess(tc.input, tc.raw))
		})
	}
}

func TestUnavailableResponse_RotatesByLength(t *testing.T) {
	assert.Equal(t, unavailableResponses[0], UnavailableResponse("abcd"))
	assert.Equal(t, unavailableResponses[1], UnavailableResponse("a"))
	assert.Equal(t, unavailableResponses[3], UnavailableResponse("abc"))
	assert.Equal(t, UnavailableResponse("xyz"), UnavailableResponse("abc"))
}

func TestBuildPrompt_UsesLastTwoExchanges(t *testing.T) {
	recent := []models.Exchange{
		{Prompt: "one", Response: "uno"},
		{Prompt: "two", Response: "dos"},
		{Prompt: "three", Response: "tres"},
	}

	p := BuildPrompt("four", recent)
	assert.Equal(t, SystemInstruction, p.System)
	assert.Equal(t, "four", p.Input)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "two"},
		{Role: models.RoleAssistant, Content: "dos"},
		{Role: models.RoleUser, Content: "three"},
		{Role: models.RoleAssistant, Content: "tres"},
	}, p.Turns)
}

func TestResponder_NoModelUsesCannedResponses(t *testing.T) {
	r := NewResponder(nil, 1, zap.NewNop())
	assert.False(t, r.ModelLoaded())
	assert.Equal(t, UnavailableResponse("hello"), r.Respond(context.Background(), "hello", nil))

	gen := &fakeGenerator{loaded: false}
	r = NewResponder(gen, 1, zap.NewNop())
	assert.Equal(t, UnavailableResponse("hello"), r.Respond(context.Background(), "hello", nil))
	assert.Equal(t, 0, gen.callCount())
}

func TestResponder_ModelErrors(t *testing.T) {
	gen := &fakeGenerator{loaded: true, err: errors.New("boom")}
	r := NewResponder(gen, 1, zap.NewNop())
	assert.Equal(t, ApologyResponse, r.Respond(context.Background(), "hello", nil))

	gen = &fakeGenerator{loaded: true, err: ErrModelUnavailable}
	r = NewResponder(gen, 1, zap.NewNop())
	assert.Equal(t, UnavailableResponse("hello"), r.Respond(context.Background(), "hello", nil))
}

func TestResponder_PassesContextWindow(t *testing.T) {
	gen := &fakeGenerator{loaded: true, output: "It is a lovely day outside."}
	r := NewResponder(gen, 1, zap.NewNop())

	recent := []models.Exchange{{Prompt: "hi", Response: "hello"}}
	got := r.Respond(context.Background(), "how is the day", recent)

	assert.Equal(t, "It is a lovely day outside.", got)
	require.Len(t, gen.prompts, 1)
	assert.Len(t, gen.prompts[0].Turns, 2)
	assert.Equal(t, "how is the day", gen.prompts[0].Input)
}

func TestResponder_SerializesModelAccess(t *testing.T) {
	gen := &fakeGenerator{loaded: true, output: "A perfectly fine answer.", delay: 10 * time.Millisecond}
	r := NewResponder(gen, 1, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Respond(context.Background(), "question", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, gen.callCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.maxSeen))
}

func TestResponder_CancelledWhileQueued(t *testing.T) {
	gen := &fakeGenerator{loaded: true, output: "A perfectly fine answer.", delay: 100 * time.Millisecond}
	r := NewResponder(gen, 1, zap.NewNop())

	go r.Respond(context.Background(), "first", nil)
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, ApologyResponse, r.Respond(ctx, "second", nil))
}
