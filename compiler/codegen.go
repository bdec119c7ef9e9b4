package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/barkwell/minicc/internal/flushio"
	"github.com/barkwell/minicc/internal/panicerr"
)

// argRegs32/argRegs64 are the System V AMD64 integer argument registers, in
// position order, in their 32-bit and 64-bit forms respectively.
var (
	argRegs32 = [6]string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}
	argRegs64 = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
)

const maxCallArgs = 6

// loopLabels names the jump targets break/continue resolve to: start is
// continue's target, end is break's.
type loopLabels struct {
	start, end string
}

// generator is a tree-recursive emitter. Expressions follow a stack-machine
// discipline: every expression pushes its 64-bit-widened result, and every
// binary/unary operator pops what it needs and pushes its own result.
// Statements never leave a value on the stack.
type generator struct {
	w        flushio.WriteFlusher
	scope    *scopeTable
	funcName string
	labelSeq int
	loops    []loopLabels
}

// Emit walks prog (the root NodeTopLevel from Parse) and writes GNU-assembler
// Intel-syntax x86-64 text to w.
func Emit(w io.Writer, prog *Node) (err error) {
	if prog.Kind != NodeTopLevel {
		return &InternalError{Msg: fmt.Sprintf("Emit expects a %v root, got %v", NodeTopLevel, prog.Kind)}
	}

	wf := flushio.NewWriteFlusher(w)
	g := &generator{w: wf}

	err = panicerr.Recover("codegen", func() {
		g.mustWrite("\t.intel_syntax noprefix\n")
		for _, fn := range prog.Children {
			if fn.Kind != NodeFunction {
				panic(&InternalError{Msg: fmt.Sprintf("top-level child has kind %v, want %v", fn.Kind, NodeFunction)})
			}
			if ferr := g.emitFunction(fn); ferr != nil {
				panic(ferr)
			}
		}
	})
	if err != nil {
		return err
	}
	return wf.Flush()
}

// mustWrite panics (to be recovered by Emit's panicerr.Recover) on an I/O
// failure; I/O errors writing to the destination stream are not part of the
// compiler's own error taxonomy but must still abort generation.
func (g *generator) mustWrite(s string) {
	if _, err := io.WriteString(g.w, s); err != nil {
		panic(err)
	}
}

func (g *generator) instr(mnemonic string, operands ...string) {
	var b strings.Builder
	b.WriteByte('\t')
	b.WriteString(mnemonic)
	if len(operands) > 0 {
		b.WriteByte('\t')
		b.WriteString(strings.Join(operands, ", "))
	}
	b.WriteByte('\n')
	g.mustWrite(b.String())
}

func (g *generator) rawLabel(name string) {
	g.mustWrite(name + ":\n")
}

// newLabels allocates n consecutive label indices and returns their text
// forms, ".<function><index>".
func (g *generator) newLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf(".%s%d", g.funcName, g.labelSeq)
		g.labelSeq++
	}
	return labels
}

func off(offset int) string {
	return fmt.Sprintf("[rbp - %d]", offset)
}

func dword(offset int) string {
	return "DWORD PTR " + off(offset)
}

// emitFunction lowers one function: prologue, parameter binding, body.
func (g *generator) emitFunction(fn *Node) error {
	if len(fn.Children) != 3 {
		return &InternalError{Msg: "function node does not have 3 children"}
	}
	name, params, body := fn.Children[0], fn.Children[1], fn.Children[2]
	if name.Kind != NodeIdentifier || params.Kind != NodeParams || body.Kind != NodeBlock {
		return &InternalError{Msg: "function node has unexpected child kinds"}
	}

	if len(params.Children) > maxCallArgs {
		return &SemanticError{Offset: fn.Offset, Msg: fmt.Sprintf("function %q has more than %d parameters", fn.Name, maxCallArgs)}
	}

	g.funcName = fn.Name
	g.labelSeq = 0
	g.loops = nil
	g.scope = newScopeTable()

	g.instr(".globl", fn.Name)
	g.rawLabel(fn.Name)
	g.instr("push", "rbp")
	g.instr("mov", "rbp", "rsp")

	g.scope.enter()
	for i, param := range params.Children {
		needsReserve, err := g.scope.declare(param.Name)
		if err != nil {
			return err
		}
		if needsReserve {
			g.instr("sub", "rsp", "16")
		}
		offset, _ := g.scope.resolve(param.Name)
		g.instr("mov", dword(offset), argRegs32[i])
	}

	definiteReturn, err := g.emitStatements(body.Children)
	if err != nil {
		return err
	}
	if !definiteReturn {
		if n := g.scope.exit(); n > 0 {
			g.instr("add", "rsp", fmt.Sprintf("%d", n))
		}
	}
	return nil
}

// emitStatements lowers a sequence of statements against the current scope,
// eliding dead code after a definite return. It does not push or pop a scope
// frame itself; callers that need a fresh frame (emitBlock) do so around the
// call.
func (g *generator) emitStatements(stmts []*Node) (definiteReturn bool, err error) {
	for _, s := range stmts {
		if err := g.emitStmt(s); err != nil {
			return false, err
		}
		if s.isDefiniteReturn() {
			return true, nil
		}
	}
	return false, nil
}

// emitBlock lowers a nested block: a fresh scope frame, statements with
// dead-code elision, and an exit whose "add rsp" is skipped exactly when the
// block definitely returns (its slots are reclaimed by the ret's own "mov
// rsp, rbp" instead).
func (g *generator) emitBlock(block *Node) error {
	g.scope.enter()
	definiteReturn, err := g.emitStatements(block.Children)
	if err != nil {
		g.scope.exit()
		return err
	}
	n := g.scope.exit()
	if !definiteReturn && n > 0 {
		g.instr("add", "rsp", fmt.Sprintf("%d", n))
	}
	return nil
}

func (g *generator) emitStmt(n *Node) error {
	switch n.Kind {
	case NodeBlock:
		return g.emitBlock(n)
	case NodeDeclaration:
		return g.emitDeclaration(n)
	case NodeExprStatement:
		return g.emitExprStatement(n)
	case NodeReturn:
		return g.emitReturn(n)
	case NodeBreak:
		return g.emitBreak(n)
	case NodeContinue:
		return g.emitContinue(n)
	case NodeIf:
		return g.emitIf(n)
	case NodeWhile:
		return g.emitWhile(n)
	default:
		return &InternalError{Msg: fmt.Sprintf("unexpected node kind %v in statement position", n.Kind)}
	}
}

func (g *generator) emitDeclaration(n *Node) error {
	for _, d := range n.Children {
		var ident *Node
		var init *Node
		switch d.Kind {
		case NodeInitDeclare:
			ident, init = d.Children[0], d.Children[1]
		case NodeNoInitDeclare:
			ident = d.Children[0]
		default:
			return &InternalError{Msg: fmt.Sprintf("unexpected declarator kind %v", d.Kind)}
		}

		needsReserve, err := g.scope.declare(ident.Name)
		if err != nil {
			if se, ok := err.(*SemanticError); ok {
				se.Offset = d.Offset
			}
			return err
		}
		if needsReserve {
			g.instr("sub", "rsp", "16")
		}
		if init != nil {
			if err := g.emitExpr(init); err != nil {
				return err
			}
			offset, _ := g.scope.resolve(ident.Name)
			g.instr("pop", "rax")
			g.instr("mov", dword(offset), "eax")
		}
	}
	return nil
}

func (g *generator) emitExprStatement(n *Node) error {
	if len(n.Children) == 0 {
		return nil
	}
	if err := g.emitTopExpr(n.Children[0]); err != nil {
		return err
	}
	g.instr("add", "rsp", "8")
	return nil
}

func (g *generator) emitReturn(n *Node) error {
	if len(n.Children) == 1 {
		if err := g.emitTopExpr(n.Children[0]); err != nil {
			return err
		}
		g.instr("pop", "rax")
	}
	g.instr("mov", "rsp", "rbp")
	g.instr("pop", "rbp")
	g.instr("ret")
	return nil
}

func (g *generator) emitBreak(n *Node) error {
	if len(g.loops) == 0 {
		return &SemanticError{Offset: n.Offset, Msg: "break outside of a loop"}
	}
	g.instr("jmp", g.loops[len(g.loops)-1].end)
	return nil
}

func (g *generator) emitContinue(n *Node) error {
	if len(g.loops) == 0 {
		return &SemanticError{Offset: n.Offset, Msg: "continue outside of a loop"}
	}
	g.instr("jmp", g.loops[len(g.loops)-1].start)
	return nil
}

func (g *generator) emitIf(n *Node) error {
	if len(n.Children) != 2 && len(n.Children) != 3 {
		return &InternalError{Msg: "if node does not have 2 or 3 children"}
	}
	cond, then := n.Children[0], n.Children[1]
	labels := g.newLabels(1)
	end := labels[0]

	if err := g.emitExpr(cond); err != nil {
		return err
	}
	g.instr("pop", "rax")
	g.instr("test", "eax", "eax")
	g.instr("je", end)
	if err := g.emitStmt(then); err != nil {
		return err
	}
	g.rawLabel(end)
	if len(n.Children) == 3 {
		if err := g.emitStmt(n.Children[2]); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitWhile(n *Node) error {
	if len(n.Children) != 2 {
		return &InternalError{Msg: "while node does not have 2 children"}
	}
	cond, body := n.Children[0], n.Children[1]
	labels := g.newLabels(2)
	start, end := labels[0], labels[1]

	g.rawLabel(start)
	if err := g.emitExpr(cond); err != nil {
		return err
	}
	g.instr("pop", "rax")
	g.instr("test", "eax", "eax")
	g.instr("je", end)

	g.loops = append(g.loops, loopLabels{start: start, end: end})
	err := g.emitStmt(body)
	g.loops = g.loops[:len(g.loops)-1]
	if err != nil {
		return err
	}

	g.instr("jmp", start)
	g.rawLabel(end)
	return nil
}

// emitTopExpr lowers a comma-operator sequence: every expression but the
// last is evaluated and immediately discarded (its 8 pushed bytes popped off
// again), leaving only the final expression's value on the stack. The net
// effect is the same "add rsp, 8*(n-1)" a single trailing instruction would
// give, but dropping each discarded value as soon as it is produced is the
// only option here, since a single trailing "add rsp" can only free bytes at
// the current top of stack, and the values that must be discarded sit
// underneath the final, most-recently-pushed result, not above it.
func (g *generator) emitTopExpr(n *Node) error {
	if n.Kind != NodeTopExpr {
		return &InternalError{Msg: fmt.Sprintf("expected %v, got %v", NodeTopExpr, n.Kind)}
	}
	if len(n.Children) == 0 {
		return &InternalError{Msg: "top-expr has no children"}
	}
	for i, c := range n.Children {
		if err := g.emitExpr(c); err != nil {
			return err
		}
		if i < len(n.Children)-1 {
			g.instr("add", "rsp", "8")
		}
	}
	return nil
}

func (g *generator) emitExpr(n *Node) error {
	switch n.Kind {
	case NodeNumber:
		g.instr("push", fmt.Sprintf("%d", n.Value))
		return nil

	case NodeIdentifier:
		offset, ok := g.scope.resolve(n.Name)
		if !ok {
			return &SemanticError{Offset: n.Offset, Msg: fmt.Sprintf("use of undeclared identifier %q", n.Name)}
		}
		g.instr("mov", "eax", dword(offset))
		g.instr("push", "rax")
		return nil

	case NodeAssign:
		return g.emitAssign(n)

	case NodeAdd, NodeSub, NodeMul:
		return g.emitArith(n)
	case NodeDiv, NodeMod:
		return g.emitDivMod(n)
	case NodeBitAnd, NodeBitOr, NodeBitXor:
		return g.emitBitwise(n)
	case NodeEq, NodeNe:
		return g.emitCompare(n)

	case NodeBitNot:
		return g.emitUnary(n, func() { g.instr("not", "eax") })
	case NodeNegate:
		return g.emitUnary(n, func() { g.instr("neg", "eax") })
	case NodeLogicalNot:
		return g.emitUnary(n, func() {
			g.instr("test", "eax", "eax")
			g.instr("sete", "al")
			g.instr("movzx", "eax", "al")
		})

	case NodeCall:
		return g.emitCall(n)

	default:
		return &InternalError{Msg: fmt.Sprintf("unexpected node kind %v in expression position", n.Kind)}
	}
}

func (g *generator) emitAssign(n *Node) error {
	if len(n.Children) != 2 {
		return &InternalError{Msg: "assign node does not have 2 children"}
	}
	ident, rhs := n.Children[0], n.Children[1]
	offset, ok := g.scope.resolve(ident.Name)
	if !ok {
		return &SemanticError{Offset: ident.Offset, Msg: fmt.Sprintf("use of undeclared identifier %q", ident.Name)}
	}
	if err := g.emitExpr(rhs); err != nil {
		return err
	}
	g.instr("mov", "rax", "QWORD PTR [rsp]")
	g.instr("mov", dword(offset), "eax")
	return nil
}

func (g *generator) emitBinaryOperands(n *Node) error {
	if len(n.Children) != 2 {
		return &InternalError{Msg: fmt.Sprintf("%v node does not have 2 children", n.Kind)}
	}
	if err := g.emitExpr(n.Children[0]); err != nil {
		return err
	}
	if err := g.emitExpr(n.Children[1]); err != nil {
		return err
	}
	g.instr("pop", "rbx")
	g.instr("pop", "rax")
	return nil
}

var arithMnemonic = map[NodeKind]string{
	NodeAdd: "add",
	NodeSub: "sub",
	NodeMul: "imul",
}

func (g *generator) emitArith(n *Node) error {
	if err := g.emitBinaryOperands(n); err != nil {
		return err
	}
	g.instr(arithMnemonic[n.Kind], "eax", "ebx")
	g.instr("push", "rax")
	return nil
}

func (g *generator) emitDivMod(n *Node) error {
	if err := g.emitBinaryOperands(n); err != nil {
		return err
	}
	g.instr("cdq")
	g.instr("idiv", "ebx")
	if n.Kind == NodeDiv {
		g.instr("push", "rax")
	} else {
		g.instr("push", "rdx")
	}
	return nil
}

var bitwiseMnemonic = map[NodeKind]string{
	NodeBitAnd: "and",
	NodeBitOr:  "or",
	NodeBitXor: "xor",
}

func (g *generator) emitBitwise(n *Node) error {
	if err := g.emitBinaryOperands(n); err != nil {
		return err
	}
	g.instr(bitwiseMnemonic[n.Kind], "eax", "ebx")
	g.instr("push", "rax")
	return nil
}

func (g *generator) emitCompare(n *Node) error {
	if err := g.emitBinaryOperands(n); err != nil {
		return err
	}
	g.instr("cmp", "rax", "rbx")
	if n.Kind == NodeEq {
		g.instr("sete", "al")
	} else {
		g.instr("setne", "al")
	}
	g.instr("movzx", "eax", "al")
	g.instr("push", "rax")
	return nil
}

func (g *generator) emitUnary(n *Node, op func()) error {
	if len(n.Children) != 1 {
		return &InternalError{Msg: fmt.Sprintf("%v node does not have 1 child", n.Kind)}
	}
	if err := g.emitExpr(n.Children[0]); err != nil {
		return err
	}
	g.instr("pop", "rax")
	op()
	g.instr("push", "rax")
	return nil
}

func (g *generator) emitCall(n *Node) error {
	if len(n.Children) != 2 {
		return &InternalError{Msg: "call node does not have 2 children"}
	}
	callee, args := n.Children[0], n.Children[1]
	if len(args.Children) > maxCallArgs {
		return &SemanticError{Offset: n.Offset, Msg: fmt.Sprintf("call to %q passes more than %d arguments", callee.Name, maxCallArgs)}
	}
	for i, arg := range args.Children {
		if err := g.emitExpr(arg); err != nil {
			return err
		}
		g.instr("pop", argRegs64[i])
	}
	g.instr("call", callee.Name)
	g.instr("push", "rax")
	return nil
}
