package render

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var programs sync.Map // source -> *vm.Program

// CompileExpr compiles an expression that goes beyond what templates can
// express natively. Undefined names evaluate to nil.
func CompileExpr(src string) (*vm.Program, error) {
	if p, ok := programs.Load(src); ok {
		return p.(*vm.Program), nil
	}
	p, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	programs.Store(src, p)
	return p, nil
}

// eval runs src against the frame's arguments, captured values and the
// template variables visible at the call site, later ones shadowing
// earlier ones.
func eval(f *Frame, src string, vars map[string]any) (any, error) {
	p, err := CompileExpr(src)
	if err != nil {
		return nil, fmt.Errorf("[%s] expression %q: %w", f.unit.Name, src, err)
	}
	env := make(map[string]any, len(f.Args)+len(f.Vars)+len(vars))
	for k, v := range f.Args {
		env[k] = v
	}
	for k, v := range f.Vars {
		env[k] = v
	}
	for k, v := range vars {
		env[k] = v
	}
	out, err := expr.Run(p, env)
	if err != nil {
		return nil, fmt.Errorf("[%s] expression %q: %w", f.unit.Name, src, err)
	}
	return out, nil
}
