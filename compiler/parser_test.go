package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSrc(t *testing.T, src string) *Node {
	t.Helper()
	tree, err := Parse(append([]byte(src), 0))
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

func TestParseEmptyFunction(t *testing.T) {
	tree := parseSrc(t, "int main() {}")
	require.Equal(t, NodeTopLevel, tree.Kind)
	require.Len(t, tree.Children, 1)
	fn := tree.Children[0]
	assert.Equal(t, NodeFunction, fn.Kind)
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Children, 3)
	assert.Equal(t, NodeParams, fn.Children[1].Kind)
	assert.Equal(t, NodeBlock, fn.Children[2].Kind)
	assert.Empty(t, fn.Children[2].Children)
}

func TestParseParams(t *testing.T) {
	tree := parseSrc(t, "int add(int a, int b) { return a + b; }")
	fn := tree.Children[0]
	params := fn.Children[1]
	require.Len(t, params.Children, 2)
	assert.Equal(t, "a", params.Children[0].Name)
	assert.Equal(t, "b", params.Children[1].Name)
}

func TestParseBareSemicolonIsEmptyExprStatement(t *testing.T) {
	tree := parseSrc(t, "int f() { ; }")
	body := tree.Children[0].Children[2]
	require.Len(t, body.Children, 1)
	stmt := body.Children[0]
	assert.Equal(t, NodeExprStatement, stmt.Kind)
	assert.Empty(t, stmt.Children)
}

func TestParseAssignmentVsLookahead(t *testing.T) {
	tree := parseSrc(t, "int f() { int x; x = 1; x | 2; }")
	body := tree.Children[0].Children[2]
	require.Len(t, body.Children, 3)

	assignStmt := body.Children[1]
	require.Equal(t, NodeExprStatement, assignStmt.Kind)
	assign := assignStmt.Children[0].Children[0]
	assert.Equal(t, NodeAssign, assign.Kind)

	orStmt := body.Children[2]
	or := orStmt.Children[0].Children[0]
	assert.Equal(t, NodeBitOr, or.Kind)
}

func TestParseDeclarationWithAndWithoutInit(t *testing.T) {
	tree := parseSrc(t, "int f() { int a, b = 2; }")
	decl := tree.Children[0].Children[2].Children[0]
	require.Equal(t, NodeDeclaration, decl.Kind)
	require.Len(t, decl.Children, 2)
	assert.Equal(t, NodeNoInitDeclare, decl.Children[0].Kind)
	assert.Equal(t, NodeInitDeclare, decl.Children[1].Kind)
}

func TestParseIfElse(t *testing.T) {
	tree := parseSrc(t, "int f() { if (1) return 1; else return 0; }")
	ifNode := tree.Children[0].Children[2].Children[0]
	require.Equal(t, NodeIf, ifNode.Kind)
	require.Len(t, ifNode.Children, 3)
}

func TestParseWhileWithBreakContinue(t *testing.T) {
	tree := parseSrc(t, "int f() { while (1) { break; continue; } }")
	whileNode := tree.Children[0].Children[2].Children[0]
	require.Equal(t, NodeWhile, whileNode.Kind)
	body := whileNode.Children[1]
	require.Len(t, body.Children, 2)
	assert.Equal(t, NodeBreak, body.Children[0].Kind)
	assert.Equal(t, NodeContinue, body.Children[1].Kind)
}

func TestParseTopExprCommaOperator(t *testing.T) {
	tree := parseSrc(t, "int f() { 1, 2, 3; }")
	stmt := tree.Children[0].Children[2].Children[0]
	top := stmt.Children[0]
	require.Equal(t, NodeTopExpr, top.Kind)
	require.Len(t, top.Children, 3)
}

func TestParseCallWithArgs(t *testing.T) {
	tree := parseSrc(t, "int f() { g(1, 2, x); }")
	stmt := tree.Children[0].Children[2].Children[0]
	call := stmt.Children[0].Children[0]
	require.Equal(t, NodeCall, call.Kind)
	assert.Equal(t, "g", call.Children[0].Name)
	assert.Len(t, call.Children[1].Children, 3)
}

func TestParseUnaryPrecedence(t *testing.T) {
	tree := parseSrc(t, "int f() { return -!~x; }")
	ret := tree.Children[0].Children[2].Children[0]
	expr := ret.Children[0].Children[0]
	require.Equal(t, NodeNegate, expr.Kind)
	require.Equal(t, NodeLogicalNot, expr.Children[0].Kind)
	require.Equal(t, NodeBitNot, expr.Children[0].Children[0].Kind)
}

func TestParseDeclaratorParens(t *testing.T) {
	tree := parseSrc(t, "int f() { int (x); }")
	decl := tree.Children[0].Children[2].Children[0]
	assert.Equal(t, "x", decl.Children[0].Children[0].Name)
}

func TestParseMissingSemicolonIsSyntaxError(t *testing.T) {
	_, err := Parse([]byte("int f() { return 1 }\x00"))
	require.Error(t, err)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}

func TestParseUnexpectedEOFInBlock(t *testing.T) {
	_, err := Parse([]byte("int f() { return 1;\x00"))
	require.Error(t, err)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}
