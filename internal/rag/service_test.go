package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbot/internal/document"
	"kbot/internal/index"
	"kbot/internal/memory"
	"kbot/internal/scrape"
	"kbot/internal/store"
)

// fakeRenderer serves canned HTML per URL.
type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	delay time.Duration
}

func (f *fakeRenderer) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("render %s: no such host", url)
	}
	return body, nil
}

func (f *fakeRenderer) SettleDelay() time.Duration     { return 0 }
func (f *fakeRenderer) LinkSettleDelay() time.Duration { return 0 }

// hashEngine produces deterministic pseudo-embeddings from text content, so
// similar texts (sharing words) land near each other.
type hashEngine struct{ dims int }

func (h *hashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, h.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var sum int
		for _, r := range word {
			sum += int(r)
		}
		v[sum%h.dims]++
	}
	return v, nil
}

func (h *hashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (h *hashEngine) Dimensions() int { return h.dims }
func (h *hashEngine) Name() string    { return "hash" }

// scriptedLLM returns a fixed answer and records the prompts it saw.
type scriptedLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (l *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func (l *scriptedLLM) Name() string { return "scripted" }

type serviceParts struct {
	service  *Service
	memory   *memory.Store
	llm      *scriptedLLM
	renderer *fakeRenderer
}

func newTestService(t *testing.T, pages map[string]string) *serviceParts {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := &hashEngine{dims: 64}
	renderer := &fakeRenderer{pages: pages}
	mem := memory.NewStore()
	client := &scriptedLLM{answer: "A helpful answer."}

	svc := NewService(
		scrape.New(renderer, 3, nil),
		document.NewLoader(document.NewSplitter(1000, 150), nil),
		engine,
		st,
		index.NewRetriever(st, engine, index.DefaultConfig(), nil),
		mem,
		client,
		20,
		nil,
	)
	return &serviceParts{service: svc, memory: mem, llm: client, renderer: renderer}
}

func TestAskBeforeIngestFailsNotReady(t *testing.T) {
	p := newTestService(t, nil)

	_, err := p.service.Ask(context.Background(), "c1", "anything loaded?")
	require.ErrorIs(t, err, index.ErrNotReady)

	// The question is recorded before retrieval can fail; no assistant
	// message may appear.
	history := p.memory.History("c1")
	require.Len(t, history, 1)
	assert.Equal(t, memory.RoleUser, history[0].Role)
	assert.Equal(t, "anything loaded?", history[0].Content)
}

func TestIngestThenAskRoundTrip(t *testing.T) {
	p := newTestService(t, map[string]string{
		"https://example.com/": "<html><body><p>The capital of Freedonia is Fredville.</p></body></html>",
	})
	ctx := context.Background()

	require.NoError(t, p.service.Ingest(ctx, []string{"https://example.com/"}, false))
	require.True(t, p.service.Ready())

	answer, err := p.service.Ask(ctx, "c1", "What is the capital of Freedonia?")
	require.NoError(t, err)
	assert.Equal(t, "A helpful answer.", answer)

	// The single chunk must be in the grounding context handed to the model.
	require.Len(t, p.llm.prompts, 1)
	assert.Contains(t, p.llm.prompts[0], "capital of Freedonia is Fredville")
	assert.Contains(t, p.llm.prompts[0], "What is the capital of Freedonia?")

	history := p.memory.History("c1")
	require.Len(t, history, 2)
	assert.Equal(t, memory.RoleUser, history[0].Role)
	assert.Equal(t, memory.RoleAssistant, history[1].Role)
	assert.Equal(t, "A helpful answer.", history[1].Content)
}

func TestAskIncludesPriorHistoryInPrompt(t *testing.T) {
	p := newTestService(t, map[string]string{
		"https://example.com/": "<p>Some indexed facts about gophers.</p>",
	})
	ctx := context.Background()
	require.NoError(t, p.service.Ingest(ctx, []string{"https://example.com/"}, false))

	_, err := p.service.Ask(ctx, "c1", "first question")
	require.NoError(t, err)
	_, err = p.service.Ask(ctx, "c1", "second question")
	require.NoError(t, err)

	require.Len(t, p.llm.prompts, 2)
	second := p.llm.prompts[1]
	assert.Contains(t, second, "user: first question")
	assert.Contains(t, second, "assistant: A helpful answer.")
	assert.Contains(t, second, "second question")
}

func TestModelFailureLeavesQuestionRecorded(t *testing.T) {
	p := newTestService(t, map[string]string{
		"https://example.com/": "<p>content to index</p>",
	})
	ctx := context.Background()
	require.NoError(t, p.service.Ingest(ctx, []string{"https://example.com/"}, false))

	p.llm.err = errors.New("backend exploded")
	_, err := p.service.Ask(ctx, "c1", "doomed question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model invocation failed")

	history := p.memory.History("c1")
	require.Len(t, history, 1)
	assert.Equal(t, "doomed question", history[0].Content)
}

func TestIngestNoContentFails(t *testing.T) {
	p := newTestService(t, map[string]string{
		"https://example.com/": "<html><body></body></html>",
	})
	err := p.service.Ingest(context.Background(), []string{"https://example.com/"}, false)
	require.ErrorIs(t, err, document.ErrNoContent)
	assert.False(t, p.service.Ready())
}

func TestIngestAllURLsFailingYieldsNoContent(t *testing.T) {
	p := newTestService(t, nil)
	err := p.service.Ingest(context.Background(), []string{"https://dead.example/"}, false)
	require.ErrorIs(t, err, document.ErrNoContent)
}

func TestIngestEmptyURLList(t *testing.T) {
	p := newTestService(t, nil)
	err := p.service.Ingest(context.Background(), nil, false)
	require.ErrorIs(t, err, ErrNoURLs)
}

func TestIngestFailurePreservesPreviousIndex(t *testing.T) {
	p := newTestService(t, map[string]string{
		"https://good.example/": "<p>good content stays indexed</p>",
	})
	ctx := context.Background()
	require.NoError(t, p.service.Ingest(ctx, []string{"https://good.example/"}, false))

	err := p.service.Ingest(ctx, []string{"https://empty.example/"}, false)
	require.Error(t, err)

	// The earlier index must still answer.
	require.True(t, p.service.Ready())
	_, err = p.service.Ask(ctx, "c1", "still there?")
	require.NoError(t, err)
	assert.Contains(t, p.llm.prompts[len(p.llm.prompts)-1], "good content stays indexed")
}

func TestConcurrentIngestRejected(t *testing.T) {
	p := newTestService(t, map[string]string{
		"https://slow.example/": "<p>slow page body</p>",
	})
	p.renderer.delay = 100 * time.Millisecond
	ctx := context.Background()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- p.service.Ingest(ctx, []string{"https://slow.example/"}, false)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	err := p.service.Ingest(ctx, []string{"https://slow.example/"}, false)
	require.ErrorIs(t, err, ErrIngestInProgress)

	require.NoError(t, <-done)
}
