package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculator_EvaluatesArithmetic(t *testing.T) {
	tool := NewCalculatorTool(0)

	result, err := tool.Handler(context.Background(), map[string]interface{}{
		"expression": "(120000 * 0.11) + 50000",
	})
	require.NoError(t, err)
	require.Equal(t, float64(13200+50000), result.(map[string]interface{})["result"])
}

func TestCalculator_RejectsNonArithmetic(t *testing.T) {
	tool := NewCalculatorTool(0)

	cases := []string{
		`1; panic()`,
		`getOwner()`,
		`1 == 1`,
		`[1, 2, 3]`,
		`1 and 2`,
	}
	for _, expr := range cases {
		_, err := tool.Handler(context.Background(), map[string]interface{}{"expression": expr})
		require.Error(t, err, "expression %q should have been rejected", expr)
	}
}

func TestCalculator_RejectsOverlongInput(t *testing.T) {
	tool := NewCalculatorTool(5)

	_, err := tool.Handler(context.Background(), map[string]interface{}{"expression": "1 + 2 + 3 + 4"})
	require.Error(t, err)
}
