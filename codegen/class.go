package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/sema"
)

// compileClassLiteral compiles a class body into its runtime shape: a
// Prototype constant carrying the methods, and the constructor function
// whose "prototype" property references it. The constructor value is left
// in dst; the constructor's constant-pool index is returned so a class
// declaration can record it for later `extends` references.
func (g *Generator) compileClassLiteral(f *fnGen, n *ast.Node, dst int, name string) int {
	line := n.Token.Pos.Line
	sid := scopeOf(n)
	created := g.enterScope(f, sid, line)

	var extends *ast.Node
	var members []*ast.Node
	for c := n.Children; c != nil; c = c.Next {
		if c.Kind != ast.PropertyDef && extends == nil && len(members) == 0 {
			extends = c
			continue
		}
		members = append(members, c)
	}

	// The base class's constructor constant is only known statically when
	// `extends` names a class declared earlier in this unit; an arbitrary
	// base expression keeps -1 here and chains prototypes at runtime below.
	baseFnIdx := -1
	if extends != nil && extends.Kind == ast.Identifier {
		if ann, ok := extends.Annotation().(*sema.VarAnnotation); ok {
			if idx, ok := g.classCtor[ann.Var]; ok {
				baseFnIdx = idx
			}
		}
	}

	protoIdx := g.pool.Prototype(baseFnIdx)
	protoReg := f.alloc()
	f.emit(line, bytecode.OpLoadConst, protoReg, protoIdx)

	if extends != nil {
		baseReg := g.compileExpr(f, extends)
		baseProto := f.alloc()
		f.emit(line, bytecode.OpGetProp, baseProto, baseReg, g.pool.Str("prototype", false))
		f.emit(line, bytecode.OpSetProp, protoReg, g.pool.Str("prototype", false), baseProto)
		f.release(baseProto)
		f.release(baseReg)
	}

	ctorIdx := -1
	for _, m := range members {
		if m.Kind != ast.PropertyDef {
			continue
		}
		if m.Str == "constructor" {
			ctorIdx = g.compileConstructor(f, m, name)
			continue
		}
		g.compilePropertyDef(f, protoReg, m, m.Token.Pos.Line)
	}

	if ctorIdx < 0 {
		// The parser synthesizes an empty constructor for every class body,
		// so a missing one here means the tree was corrupted upstream.
		g.errorf(n.Token.Pos, "internal: class body has no constructor")
		f.release(protoReg)
		g.leaveScope(f, sid, created)
		return -1
	}

	f.emit(line, bytecode.OpLoadFun, dst, ctorIdx)
	f.emit(line, bytecode.OpSetProp, dst, g.pool.Str("prototype", false), protoReg)
	f.release(protoReg)

	g.leaveScope(f, sid, created)
	return ctorIdx
}

// compileConstructor compiles a class's constructor member, naming the
// CompiledFunction after the class (or "constructor" for an anonymous
// class literal) and flagging it so the VM knows to allocate `this`.
func (g *Generator) compileConstructor(f *fnGen, prop *ast.Node, className string) int {
	fnNode := prop.Children
	display := className
	if display == "" {
		display = "constructor"
	}
	idx := g.compileFunctionBody(f, fnNode, g.pool.Str(display, false))
	if fn := g.pool.Get(idx).Fn; fn != nil {
		fn.IsClassCtor = true
	}
	return idx
}
