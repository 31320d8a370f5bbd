package exprlang

import (
	"encoding/json"
	"fmt"
	"time"

	"autonomy-core/internal/apperr"
)

const (
	// TimeBudget bounds evaluation wall-clock time per §4.5.
	TimeBudget = 50 * time.Millisecond
	// MemoryBudget bounds the JSON-serialized size of the result.
	MemoryBudget = 4 * 1024
	// stepBudget is an evaluation-step counter, cheap insurance for a
	// recursive-descent tree that has no loop construct to overrun in
	// the first place, but a deeply nested paren expression could still
	// blow the stack; capping steps catches that before TimeBudget would.
	stepBudget = 100000
)

// Env is the read/write environment an expression evaluates against:
// `state` (mutable across steps), `source` (read-only fetch result),
// and Extra, whose keys are looked up as additional top-level
// identifiers (miscellaneous clock/context values, e.g. "now").
type Env struct {
	State map[string]any
	Source map[string]any
	Extra  map[string]any
}

func (e Env) lookup(name string) (any, bool) {
	switch name {
	case "state":
		return e.State, true
	case "source":
		return e.Source, true
	default:
		if e.Extra != nil {
			if v, ok := e.Extra[name]; ok {
				return v, true
			}
		}
		return nil, false
	}
}

type evaluator struct {
	env   Env
	steps int
}

// Eval parses and evaluates expr against env, enforcing the time and
// memory bounds §4.5 requires. Exceeding either is a step failure, not
// a panic: the caller decides how to record it (workflow_step_failed).
func Eval(expr string, env Env) (any, error) {
	ast, err := parse(expr)
	if err != nil {
		return nil, apperr.Domain("", "malformed expression", fmt.Sprintf("parse %q: %v", expr, err), err)
	}

	type outcome struct {
		val any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ev := &evaluator{env: env}
		v, err := ev.eval(ast)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if err := checkMemoryBudget(o.val); err != nil {
			return nil, err
		}
		return o.val, nil
	case <-time.After(TimeBudget):
		return nil, apperr.Domain("", "expression exceeded time budget", fmt.Sprintf("eval %q exceeded %s", expr, TimeBudget), nil)
	}
}

func checkMemoryBudget(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apperr.Domain("", "expression result not serializable", err.Error(), err)
	}
	if len(b) > MemoryBudget {
		return apperr.Domain("", "expression result exceeded memory budget", fmt.Sprintf("result is %d bytes, budget %d", len(b), MemoryBudget), nil)
	}
	return nil
}

func (ev *evaluator) tick() error {
	ev.steps++
	if ev.steps > stepBudget {
		return apperr.Domain("", "expression exceeded step budget", "too many evaluation steps", nil)
	}
	return nil
}

func (ev *evaluator) eval(n node) (any, error) {
	if err := ev.tick(); err != nil {
		return nil, err
	}
	switch t := n.(type) {
	case numberLit:
		return t.value, nil
	case stringLit:
		return t.value, nil
	case boolLit:
		return t.value, nil
	case nullLit:
		return nil, nil
	case identifier:
		v, ok := ev.env.lookup(t.name)
		if !ok {
			return nil, apperr.Domain("", "unknown identifier", fmt.Sprintf("identifier %q not found", t.name), nil)
		}
		return v, nil
	case memberAccess:
		return ev.evalMember(t)
	case unaryOp:
		return ev.evalUnary(t)
	case binaryOp:
		return ev.evalBinary(t)
	case condExpr:
		cond, err := ev.eval(t.cond)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return ev.eval(t.then)
		}
		return ev.eval(t.els)
	case callExpr:
		return ev.evalCall(t)
	default:
		return nil, fmt.Errorf("unhandled node type %T", n)
	}
}

func (ev *evaluator) evalMember(m memberAccess) (any, error) {
	target, err := ev.eval(m.target)
	if err != nil {
		return nil, err
	}
	var keyStr string
	if id, ok := m.key.(identifier); ok {
		keyStr = id.name
	} else {
		key, err := ev.eval(m.key)
		if err != nil {
			return nil, err
		}
		s, ok := key.(string)
		if !ok {
			return nil, apperr.Domain("", "non-string member key", "member access key must be a string", nil)
		}
		keyStr = s
	}
	obj, ok := target.(map[string]any)
	if !ok {
		return nil, apperr.Domain("", "member access on non-object", "cannot index a non-object value", nil)
	}
	return obj[keyStr], nil
}

func (ev *evaluator) evalUnary(u unaryOp) (any, error) {
	x, err := ev.eval(u.x)
	if err != nil {
		return nil, err
	}
	switch u.op {
	case "not":
		return !truthy(x), nil
	case "-":
		f, err := toNumber(x)
		if err != nil {
			return nil, err
		}
		return -f, nil
	}
	return nil, fmt.Errorf("unknown unary op %q", u.op)
}

func (ev *evaluator) evalBinary(b binaryOp) (any, error) {
	switch b.op {
	case "and":
		x, err := ev.eval(b.x)
		if err != nil {
			return nil, err
		}
		if !truthy(x) {
			return false, nil
		}
		y, err := ev.eval(b.y)
		if err != nil {
			return nil, err
		}
		return truthy(y), nil
	case "or":
		x, err := ev.eval(b.x)
		if err != nil {
			return nil, err
		}
		if truthy(x) {
			return true, nil
		}
		y, err := ev.eval(b.y)
		if err != nil {
			return nil, err
		}
		return truthy(y), nil
	}

	x, err := ev.eval(b.x)
	if err != nil {
		return nil, err
	}
	y, err := ev.eval(b.y)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "==":
		return equalValues(x, y), nil
	case "!=":
		return !equalValues(x, y), nil
	case "+":
		if xs, ok := x.(string); ok {
			ys, ok := y.(string)
			if !ok {
				return nil, apperr.Domain("", "type mismatch", "cannot add string and non-string", nil)
			}
			return xs + ys, nil
		}
		return numericBinary(x, y, func(a, c float64) float64 { return a + c })
	case "-":
		return numericBinary(x, y, func(a, c float64) float64 { return a - c })
	case "*":
		return numericBinary(x, y, func(a, c float64) float64 { return a * c })
	case "/":
		yf, err := toNumber(y)
		if err != nil {
			return nil, err
		}
		if yf == 0 {
			return nil, apperr.Domain("", "division by zero", "division by zero", nil)
		}
		xf, err := toNumber(x)
		if err != nil {
			return nil, err
		}
		return xf / yf, nil
	case "%":
		yf, err := toNumber(y)
		if err != nil {
			return nil, err
		}
		if yf == 0 {
			return nil, apperr.Domain("", "modulo by zero", "modulo by zero", nil)
		}
		xf, err := toNumber(x)
		if err != nil {
			return nil, err
		}
		return float64(int64(xf) % int64(yf)), nil
	case "<", "<=", ">", ">=":
		xf, err := toNumber(x)
		if err != nil {
			return nil, err
		}
		yf, err := toNumber(y)
		if err != nil {
			return nil, err
		}
		switch b.op {
		case "<":
			return xf < yf, nil
		case "<=":
			return xf <= yf, nil
		case ">":
			return xf > yf, nil
		default:
			return xf >= yf, nil
		}
	}
	return nil, fmt.Errorf("unknown binary op %q", b.op)
}

func (ev *evaluator) evalCall(c callExpr) (any, error) {
	args := make([]any, 0, len(c.args))
	for _, a := range c.args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	switch c.fn {
	case "len":
		return callLen(args)
	case "float":
		return callFloat(args)
	case "int":
		return callInt(args)
	case "str":
		return callStr(args)
	case "abs":
		return callAbs(args)
	case "min":
		return callMinMax(args, false)
	case "max":
		return callMinMax(args, true)
	}
	return nil, fmt.Errorf("unknown built-in %q", c.fn)
}
