// Package quality measures generated JavaScript: complexity and syntax via
// tree-sitter, duplicated lines, ESLint error counts and diffs against the
// original file.
package quality

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// decisionNodes are the javascript grammar nodes that add a branch.
var decisionNodes = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

var shortCircuit = map[string]bool{"&&": true, "||": true, "??": true}

// #region analyze
// Analyze parses code once and reports complexity, duplication and syntax errors.
func Analyze(ctx context.Context, code string) (Report, error) {
	src := []byte(code)
	tree, err := parse(ctx, src)
	if err != nil {
		return Report{}, err
	}
	defer tree.Close()

	root := tree.RootNode()
	return Report{
		Complexity:   1 + countDecisions(root),
		Duplication:  Duplication(code),
		SyntaxErrors: countErrors(root),
	}, nil
}

// Complexity is McCabe complexity: one plus the number of branch points.
func Complexity(ctx context.Context, code string) (int, error) {
	r, err := Analyze(ctx, code)
	return r.Complexity, err
}

// SyntaxErrors counts ERROR and MISSING nodes in the parse tree.
func SyntaxErrors(ctx context.Context, code string) (int, error) {
	r, err := Analyze(ctx, code)
	return r.SyntaxErrors, err
}
// #endregion analyze

// #region tree-walk
func parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse javascript: %w", err)
	}
	return tree, nil
}

func countDecisions(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	n := 0
	switch t := node.Type(); {
	case decisionNodes[t]:
		n++
	case t == "binary_expression":
		if op := node.ChildByFieldName("operator"); op != nil && shortCircuit[op.Type()] {
			n++
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		n += countDecisions(node.Child(i))
	}
	return n
}

func countErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	if node.IsError() || node.IsMissing() {
		return 1
	}
	if !node.HasError() {
		return 0
	}
	n := 0
	for i := 0; i < int(node.ChildCount()); i++ {
		n += countErrors(node.Child(i))
	}
	return n
}
// #endregion tree-walk
