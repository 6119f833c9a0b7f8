package tools

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// NewCalculatorTool builds the calculator tool: pure numeric evaluation of a
// restricted grammar (four ops, parentheses, %). maxInputLen bounds the
// expression length before it is even parsed.
func NewCalculatorTool(maxInputLen int) *Tool {
	if maxInputLen <= 0 {
		maxInputLen = 200
	}
	return &Tool{
		Name:        "calculator",
		Description: "Evaluate a numeric arithmetic expression (+, -, *, /, %, parentheses only).",
		InputSchema: map[string]interface{}{
			"expression": map[string]interface{}{
				"type":        "string",
				"description": "An arithmetic expression, e.g. \"(120000 * 0.11) + 50000\".",
			},
		},
		Required: []string{"expression"},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			expression, _ := args["expression"].(string)
			if len(expression) > maxInputLen {
				return nil, fmt.Errorf("expression exceeds %d characters", maxInputLen)
			}
			if err := validateArithmeticOnly(expression); err != nil {
				return nil, err
			}

			result, err := expr.Eval(expression, nil)
			if err != nil {
				return nil, fmt.Errorf("evaluating expression: %w", err)
			}
			return map[string]interface{}{"result": result}, nil
		},
	}
}

// validateArithmeticOnly parses expression and walks its AST, rejecting
// anything besides literals, the four arithmetic operators and % (plus unary
// sign and the parenthetical grouping the parser already folds into
// precedence). No identifiers, no function calls, no member access — a
// calculator has no business resolving names.
func validateArithmeticOnly(expression string) error {
	tree, err := parser.Parse(expression)
	if err != nil {
		return fmt.Errorf("parsing expression: %w", err)
	}

	v := &arithmeticVisitor{}
	ast.Walk(&tree.Node, v)
	if v.err != nil {
		return v.err
	}
	return nil
}

type arithmeticVisitor struct {
	err error
}

func (v *arithmeticVisitor) Visit(node *ast.Node) {
	if v.err != nil || node == nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.IntegerNode, *ast.FloatNode:
		// literals are fine
	case *ast.UnaryNode:
		if n.Operator != "-" && n.Operator != "+" {
			v.err = fmt.Errorf("operator %q is not allowed in a calculator expression", n.Operator)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/", "%":
			// allowed
		default:
			v.err = fmt.Errorf("operator %q is not allowed in a calculator expression", n.Operator)
		}
	default:
		v.err = fmt.Errorf("expression contains a %T, only arithmetic literals and operators are allowed", n)
	}
}
