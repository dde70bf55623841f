package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pi-assistant/internal/expression"
	"pi-assistant/internal/models"
	"pi-assistant/internal/repository"
)

type recordingFace struct {
	mu     sync.Mutex
	states []expression.State
}

func (f *recordingFace) Show(s expression.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
}

func (f *recordingFace) Available() bool { return false }

func (f *recordingFace) snapshot() []expression.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]expression.State(nil), f.states...)
}

func newTestAssistant(gen TextGenerator, kb []models.KnowledgeEntry, vocab []string) (*Assistant, *recordingFace, *repository.HistoryRepo) {
	face := &recordingFace{}
	history := repository.NewHistoryRepo(nil, nil, zap.NewNop())
	a := NewAssistant(
		NewNormalizer(vocab),
		NewKnowledgeBase(kb),
		NewResponder(gen, 1, zap.NewNop()),
		history,
		face,
		zap.NewNop(),
	)
	return a, face, history
}

func TestAssistant_KnowledgeHitSkipsModel(t *testing.T) {
	gen := &fakeGenerator{loaded: true, output: "This should never be used."}
	kb := []models.KnowledgeEntry{{Prompt: "What is your name?", Response: "I'm Pi, your desk assistant."}}
	a, face, _ := newTestAssistant(gen, kb, []string{"what", "is", "your", "name"})

	ex := a.Reply(context.Background(), "waht is yuor name")

	assert.Equal(t, "I'm Pi, your desk assistant.", ex.Response)
	assert.Equal(t, "waht is yuor name", ex.Prompt, "history keeps the original input")
	assert.Equal(t, 0, gen.callCount())
	assert.Equal(t, []expression.State{expression.Listening, expression.Speaking}, face.snapshot())
}

func TestAssistant_MissGoesToModelWithNormalizedInput(t *testing.T) {
	gen := &fakeGenerator{loaded: true, output: "I am doing well, thank you for asking!"}
	kb := []models.KnowledgeEntry{{Prompt: "what time is it", Response: "Time to chat."}}
	a, face, history := newTestAssistant(gen, kb, []string{"hello", "how", "are"})

	before := a.Status().ChatHistoryCount
	ex := a.Reply(context.Background(), "helo how r u")

	require.Equal(t, 1, gen.callCount())
	assert.Equal(t, "hello how are u", gen.prompts[0].Input)
	assert.Equal(t, "I am doing well, thank you for asking!", ex.Response)
	assert.Equal(t, before+1, a.Status().ChatHistoryCount)
	assert.Equal(t, 1, history.Count())
	assert.Equal(t,
		[]expression.State{expression.Listening, expression.Thinking, expression.Speaking},
		face.snapshot())
}

func TestAssistant_ContextIsLastTwoExchanges(t *testing.T) {
	gen := &fakeGenerator{loaded: true, output: "Another reasonable answer here."}
	a, _, _ := newTestAssistant(gen, nil, nil)
	ctx := context.Background()

	a.Reply(ctx, "first question")
	a.Reply(ctx, "second question")
	a.Reply(ctx, "third question")
	a.Reply(ctx, "fourth question")

	require.Equal(t, 4, gen.callCount())
	last := gen.prompts[3]
	require.Len(t, last.Turns, 4)
	assert.Equal(t, "second question", last.Turns[0].Content)
	assert.Equal(t, "third question", last.Turns[2].Content)
}

func TestAssistant_PanicBecomesApology(t *testing.T) {
	gen := &fakeGenerator{loaded: true, panicMsg: "model exploded"}
	a, face, history := newTestAssistant(gen, nil, nil)

	ex := a.Reply(context.Background(), "are you there")

	assert.Equal(t, ApologyResponse, ex.Response)
	assert.Equal(t, 1, history.Count())
	states := face.snapshot()
	assert.Equal(t, expression.Speaking, states[len(states)-1])
}

func TestAssistant_NoModelStillAnswers(t *testing.T) {
	a, _, _ := newTestAssistant(nil, nil, nil)

	ex := a.Reply(context.Background(), "hello")
	assert.Equal(t, UnavailableResponse("hello"), ex.Response)

	status := a.Status()
	assert.False(t, status.AIModelLoaded)
	assert.False(t, status.OLEDAvailable)
	assert.Equal(t, 1, status.ChatHistoryCount)
	assert.Len(t, a.History(context.Background()), 1)
}
