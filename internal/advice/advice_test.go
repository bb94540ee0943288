package advice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	return f.text, f.err
}

func marchView() report.MonthlyView {
	expenses := []core.Transaction{
		core.NewExpense("e1", core.Money{Cents: 10000}, core.NewDate(2024, 3, 5), "groceries", ""),
		core.NewExpense("e2", core.Money{Cents: 5000}, core.NewDate(2024, 3, 10), "fun", ""),
	}
	incomes := []core.Transaction{
		core.NewIncome("i1", core.Money{Cents: 100000}, core.NewDate(2024, 3, 1), "salary"),
	}
	return report.Compute(expenses, incomes, core.NewYearMonth(2024, 3), nil)
}

func TestRequester_NoDataShortCircuits(t *testing.T) {
	gen := &fakeGenerator{text: "unused"}
	r := NewRequester(gen)

	_, err := r.Request(context.Background(), report.MonthlyView{}, "April 2024")

	var aerr *core.AdviceError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
	assert.Zero(t, gen.calls)
}

func TestRequester_Success(t *testing.T) {
	gen := &fakeGenerator{text: "  Spend less on fun.  "}
	r := NewRequester(gen)

	text, err := r.Request(context.Background(), marchView(), "March 2024")

	require.NoError(t, err)
	assert.Equal(t, "Spend less on fun.", text)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "March 2024")
	assert.Contains(t, gen.prompts[0], "Groceries: 100.00")
	assert.False(t, r.Busy())
}

func TestRequester_Failures(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		wantErr error
	}{
		{"transport failure", &fakeGenerator{err: errors.New("timeout")}, nil},
		{"empty text", &fakeGenerator{text: "   "}, core.ErrEmptyAdvice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRequester(tt.gen)
			_, err := r.Request(context.Background(), marchView(), "March 2024")

			var aerr *core.AdviceError
			require.ErrorAs(t, err, &aerr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, tt.gen.calls, "no retry")
			assert.False(t, r.Busy())
		})
	}
}

func TestRequester_SecondRequestWhileBusy(t *testing.T) {
	gen := &fakeGenerator{text: "ok", block: make(chan struct{}), entered: make(chan struct{})}
	r := NewRequester(gen)

	done := make(chan error, 1)
	go func() {
		_, err := r.Request(context.Background(), marchView(), "March 2024")
		done <- err
	}()
	<-gen.entered
	assert.True(t, r.Busy())

	_, err := r.Request(context.Background(), marchView(), "March 2024")
	assert.ErrorIs(t, err, core.ErrAdviceBusy)

	close(gen.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gen.calls)
}

func TestRequester_DisabledByDefault(t *testing.T) {
	_, err := NewRequester(nil).Request(context.Background(), marchView(), "March 2024")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	view := marchView()
	first := BuildPrompt(view, "March 2024")

	assert.Equal(t, first, BuildPrompt(view, "March 2024"))
	assert.Contains(t, first, "Total income: 1000.00")
	assert.Contains(t, first, "Total expenses: 150.00")
	assert.Contains(t, first, "Balance: 850.00")
	assert.Less(t, indexOf(first, "Groceries"), indexOf(first, "Fun"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
