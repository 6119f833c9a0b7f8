package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its args",
		Required:    []string{"query"},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["query"], nil
		},
	}
}

func TestCatalog_Invoke(t *testing.T) {
	t.Run("dispatches to the registered handler", func(t *testing.T) {
		c := NewCatalog()
		c.Register(echoTool("echo"))

		result, err := c.Invoke(context.Background(), "echo", map[string]interface{}{"query": "hi"})
		require.NoError(t, err)
		require.Equal(t, "hi", result)
	})

	t.Run("unknown tool name returns ToolError without running a handler", func(t *testing.T) {
		c := NewCatalog()

		_, err := c.Invoke(context.Background(), "nope", nil)
		require.Error(t, err)

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		require.Equal(t, ErrorKindUnknownTool, toolErr.Kind)
	})

	t.Run("missing required argument returns ToolError without running the handler", func(t *testing.T) {
		called := false
		c := NewCatalog()
		c.Register(&Tool{
			Name:     "needs_query",
			Required: []string{"query"},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				called = true
				return nil, nil
			},
		})

		_, err := c.Invoke(context.Background(), "needs_query", map[string]interface{}{})
		require.Error(t, err)
		require.False(t, called)

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		require.Equal(t, ErrorKindInvalidArgs, toolErr.Kind)
	})

	t.Run("handler execution error is wrapped as ExecutionKind", func(t *testing.T) {
		c := NewCatalog()
		c.Register(&Tool{
			Name: "boom",
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return nil, errors.New("downstream failure")
			},
		})

		_, err := c.Invoke(context.Background(), "boom", nil)
		require.Error(t, err)

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		require.Equal(t, ErrorKindExecution, toolErr.Kind)
	})
}

func TestCatalog_Specs(t *testing.T) {
	c := NewCatalog()
	c.Register(echoTool("echo"))

	specs := c.Specs()
	require.Len(t, specs, 1)
	require.Equal(t, "echo", specs[0].Name)
}
