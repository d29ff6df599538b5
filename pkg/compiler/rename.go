package compiler

import (
	"fmt"

	"github.com/lumiis2/building-a-compiler/pkg/errors"
	"github.com/lumiis2/building-a-compiler/pkg/parser"
)

// Rename rewrites every bound variable in the expression to a globally
// unique name, so that later passes never have to reason about shadowing.
// Each binding occurrence of `x` becomes `x_N` for a strictly increasing N,
// and every use is rewritten to the name introduced by its nearest enclosing
// binder.
//
// The input tree is never mutated; Rename returns a fresh tree. A reference
// with no binding occurrence is a DefinitionError.
func Rename(exp parser.Expression) (parser.Expression, error) {
	r := &renamer{}
	return r.rename(exp, map[string]string{})
}

type renamer struct {
	counter int
}

// fresh mints a unique replacement for the given source name.
func (r *renamer) fresh(name string) string {
	r.counter++
	return fmt.Sprintf("%s_%d", name, r.counter)
}

// extend returns a copy of env with one extra binding. Environments are
// small (one entry per enclosing binder), so copying keeps the pass pure
// without any bookkeeping to undo bindings.
func extend(env map[string]string, name, fresh string) map[string]string {
	newEnv := make(map[string]string, len(env)+1)
	for k, v := range env {
		newEnv[k] = v
	}
	newEnv[name] = fresh
	return newEnv
}

func (r *renamer) rename(exp parser.Expression, env map[string]string) (parser.Expression, error) {
	switch e := exp.(type) {
	case *parser.NumberLiteral:
		return e, nil

	case *parser.BooleanLiteral:
		return e, nil

	case *parser.Identifier:
		fresh, ok := env[e.Value]
		if !ok {
			return nil, &errors.DefinitionError{
				Position: errors.Position{
					Line:     e.Token.Line,
					Column:   e.Token.Column,
					StartPos: e.Token.StartPos,
					EndPos:   e.Token.EndPos,
				},
				Msg: fmt.Sprintf("variable %q is not defined", e.Value),
			}
		}
		return &parser.Identifier{Token: e.Token, Value: fresh}, nil

	case *parser.PrefixExpression:
		operand, err := r.rename(e.Operand, env)
		if err != nil {
			return nil, err
		}
		return &parser.PrefixExpression{Token: e.Token, Operator: e.Operator, Operand: operand}, nil

	case *parser.InfixExpression:
		left, err := r.rename(e.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := r.rename(e.Right, env)
		if err != nil {
			return nil, err
		}
		return &parser.InfixExpression{Token: e.Token, Left: left, Operator: e.Operator, Right: right}, nil

	case *parser.IfExpression:
		cond, err := r.rename(e.Condition, env)
		if err != nil {
			return nil, err
		}
		cons, err := r.rename(e.Consequence, env)
		if err != nil {
			return nil, err
		}
		alt, err := r.rename(e.Alternative, env)
		if err != nil {
			return nil, err
		}
		return &parser.IfExpression{Token: e.Token, Condition: cond, Consequence: cons, Alternative: alt}, nil

	case *parser.LetExpression:
		// The definition is renamed in the outer scope: the new binding is
		// only visible in the body.
		def, err := r.rename(e.Def, env)
		if err != nil {
			return nil, err
		}
		fresh := r.fresh(e.Name.Value)
		body, err := r.rename(e.Body, extend(env, e.Name.Value, fresh))
		if err != nil {
			return nil, err
		}
		return &parser.LetExpression{
			Token: e.Token,
			Name:  &parser.Identifier{Token: e.Name.Token, Value: fresh},
			Def:   def,
			Body:  body,
		}, nil

	case *parser.FnLiteral:
		fresh := r.fresh(e.Param.Value)
		body, err := r.rename(e.Body, extend(env, e.Param.Value, fresh))
		if err != nil {
			return nil, err
		}
		return &parser.FnLiteral{
			Token: e.Token,
			Param: &parser.Identifier{Token: e.Param.Token, Value: fresh},
			Body:  body,
		}, nil

	case *parser.FunLiteral:
		// Both the function's own name and its formal are visible in the
		// body; the name is what makes recursion possible.
		freshName := r.fresh(e.Name.Value)
		freshParam := r.fresh(e.Param.Value)
		bodyEnv := extend(extend(env, e.Name.Value, freshName), e.Param.Value, freshParam)
		body, err := r.rename(e.Body, bodyEnv)
		if err != nil {
			return nil, err
		}
		return &parser.FunLiteral{
			Token: e.Token,
			Name:  &parser.Identifier{Token: e.Name.Token, Value: freshName},
			Param: &parser.Identifier{Token: e.Param.Token, Value: freshParam},
			Body:  body,
		}, nil

	case *parser.AppExpression:
		fn, err := r.rename(e.Function, env)
		if err != nil {
			return nil, err
		}
		arg, err := r.rename(e.Argument, env)
		if err != nil {
			return nil, err
		}
		return &parser.AppExpression{Token: e.Token, Function: fn, Argument: arg}, nil
	}

	panic(fmt.Sprintf("Compiler Error: rename of unknown node %T", exp))
}
