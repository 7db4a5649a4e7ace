package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"surveyrag/config"
	"surveyrag/model"
	"surveyrag/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu       sync.Mutex
	inFlight int32
	maxSeen  int32
	calls    map[string]int
	failFor  map[string]int // element content -> number of failures before success
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{
		calls:   make(map[string]int),
		failFor: make(map[string]int),
	}
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, cur) {
			break
		}
	}

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	for content, failures := range f.failFor {
		if strings.Contains(prompt, content) {
			f.calls[content]++
			if f.calls[content] <= failures {
				return "", errors.New("model overloaded")
			}
		}
	}
	return "summary of: " + prompt[len(prompt)-10:], nil
}

type fakeVision struct{}

func (f *fakeVision) Chat(ctx context.Context, parts []model.ContentPart) (string, error) {
	return "image description", nil
}

func newTestSummarizer(llm model.Completer, concurrency, maxAttempts int) *Summarizer {
	s := New(llm, &fakeVision{}, config.SummarizeConfig{
		Concurrency: concurrency,
		MaxAttempts: maxAttempts,
	})
	s.backoff = time.Millisecond
	return s
}

func textElements(n int) []types.Element {
	els := make([]types.Element, n)
	for i := range els {
		els[i] = types.Element{Kind: types.KindText, Content: fmt.Sprintf("element %03d", i)}
	}
	return els
}

func TestBatchConcurrencyBound(t *testing.T) {
	llm := newFakeCompleter()
	s := newTestSummarizer(llm, 3, 1)

	pairs, err := s.Batch(context.Background(), textElements(20))
	require.NoError(t, err)
	assert.Len(t, pairs, 20)
	assert.LessOrEqual(t, llm.maxSeen, int32(3), "more than 3 calls were in flight")
}

func TestBatchDropsFailedElement(t *testing.T) {
	llm := newFakeCompleter()
	llm.failFor["element 001"] = 100 // never succeeds

	s := newTestSummarizer(llm, 2, 2)

	els := textElements(3)
	pairs, err := s.Batch(context.Background(), els)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, "element 000", pairs[0].Element.Content)
	assert.Equal(t, "element 002", pairs[1].Element.Content)
	assert.Equal(t, 2, llm.calls["element 001"], "failed element should be retried up to max attempts")
}

func TestBatchRetriesThenSucceeds(t *testing.T) {
	llm := newFakeCompleter()
	llm.failFor["element 000"] = 2 // fails twice, succeeds on third attempt

	s := newTestSummarizer(llm, 1, 3)

	pairs, err := s.Batch(context.Background(), textElements(1))
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 3, llm.calls["element 000"])
}

func TestBatchImagesUseVisionModel(t *testing.T) {
	s := newTestSummarizer(newFakeCompleter(), 2, 1)

	pairs, err := s.Batch(context.Background(), []types.Element{
		{Kind: types.KindImage, Content: "aGVsbG8="},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "image description", pairs[0].Summary)
}

func TestBatchEmptyInput(t *testing.T) {
	s := newTestSummarizer(newFakeCompleter(), 3, 1)

	pairs, err := s.Batch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
