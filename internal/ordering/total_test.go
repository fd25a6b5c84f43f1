package ordering

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateTotal(t *testing.T) {
	lines := []Line{
		{Key: LineKey{ProductID: "p1", Index: 0}, Quantity: 2},
		{Key: LineKey{ProductID: "p2", Index: 1}, Quantity: 3},
		{Key: LineKey{ProductID: "p3", Index: 2}, Quantity: 1},
	}
	recorded := dec("25.00")

	tests := []struct {
		name       string
		selections map[LineKey]Selection
		want       string
	}{
		{name: "empty mapping", selections: map[LineKey]Selection{}, want: "0"},
		{name: "nil mapping", selections: nil, want: "0"},
		{
			name: "falls back to price times quantity",
			selections: map[LineKey]Selection{
				lines[0].Key: {Price: dec("10.10")},
				lines[1].Key: {Price: dec("0.30")},
			},
			want: "21.10",
		},
		{
			name: "recorded total wins",
			selections: map[LineKey]Selection{
				lines[0].Key: {Price: dec("10"), Total: &recorded},
				lines[2].Key: {Price: dec("4.5")},
			},
			want: "29.5",
		},
		{
			name: "selections for unknown lines are ignored",
			selections: map[LineKey]Selection{
				{ProductID: "p1", Index: 9}: {Price: dec("100")},
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateTotal(tt.selections, lines)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}
