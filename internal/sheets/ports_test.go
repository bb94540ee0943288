package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

func TestTabName(t *testing.T) {
	tests := []struct {
		path store.Path
		want string
	}{
		{store.Path{Namespace: "prod", PrincipalID: "alice", Kind: core.KindExpense}, "alice expenses"},
		{store.Path{Namespace: "prod", PrincipalID: "alice", Kind: core.KindIncome}, "alice incomes"},
		{store.Path{Namespace: "prod", PrincipalID: "a:b[1]", Kind: core.KindIncome}, "a_b(1) incomes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TabName(tt.path))
	}
}

func TestRows_Expenses(t *testing.T) {
	txs := []core.Transaction{
		core.NewExpense("e2", core.Money{Cents: 5000}, core.NewDate(2024, 3, 10), "fun", "concert"),
		core.NewExpense("e1", core.Money{Cents: 1250}, core.NewDate(2024, 3, 2), "groceries", ""),
		core.NewExpense("bad", core.Money{Cents: 0}, core.NewDate(2024, 3, 2), "groceries", ""),
		core.NewIncome("i1", core.Money{Cents: 100000}, core.NewDate(2024, 3, 1), "salary"),
		core.NewExpense("e3", core.Money{Cents: 700}, core.NewDate(2024, 3, 2), "mystery", ""),
	}

	rows := Rows(core.KindExpense, txs, nil)
	require.Len(t, rows, 4)
	assert.Equal(t, Header(core.KindExpense), rows[0])
	assert.Equal(t, []any{"e1", "2024-03-02", 12.5, "Groceries", ""}, rows[1])
	assert.Equal(t, []any{"e3", "2024-03-02", 7.0, core.FallbackLabel, ""}, rows[2])
	assert.Equal(t, []any{"e2", "2024-03-10", 50.0, "Fun", "concert"}, rows[3])
}

func TestRows_IncomesEmpty(t *testing.T) {
	rows := Rows(core.KindIncome, nil, core.DefaultRegistry)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"ID", "Date", "Amount", "Source"}, rows[0])
}
