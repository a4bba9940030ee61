package schema

import "math"

// ComputeOp is one of the closed arithmetic operations a `compute` node may
// perform (spec §4.5). The set is deliberately closed — spec §1 states the
// core "is not a general expression language; arithmetic is closed over
// the enumerated operations".
type ComputeOp uint8

const (
	ComputeAdd ComputeOp = iota
	ComputeSub
	ComputeMul
	ComputeDiv
	ComputeMod
	ComputeIDiv
)

// Operand is one argument of a ComputeExpr: a `$name` reference, a numeric
// literal, or a nested compute expression (spec §4.5 "operands are either
// $name references, numeric literals, or nested computes").
type Operand struct {
	Ref     string // non-empty => $name reference
	Literal float64
	IsLiteral bool
	Nested  *ComputeExpr
}

func (o Operand) eval(sc *Scope) (float64, error) {
	switch {
	case o.Nested != nil:
		return o.Nested.Eval(sc)
	case o.Ref != "":
		v, err := sc.MustLookup(o.Ref)
		if err != nil {
			return 0, err
		}
		n, ok := v.Number()
		if !ok {
			return 0, errFieldf(ErrUndefinedVariable, "$%s is not numeric", o.Ref)
		}
		return n, nil
	default:
		return o.Literal, nil
	}
}

// ComputeExpr is a two-operand arithmetic node (spec §4.5 `compute`).
type ComputeExpr struct {
	Op   ComputeOp
	A, B Operand
}

// Eval evaluates the expression against the given scope.
func (c *ComputeExpr) Eval(sc *Scope) (float64, error) {
	a, err := c.A.eval(sc)
	if err != nil {
		return 0, err
	}
	b, err := c.B.eval(sc)
	if err != nil {
		return 0, err
	}

	switch c.Op {
	case ComputeAdd:
		return a + b, nil
	case ComputeSub:
		return a - b, nil
	case ComputeMul:
		return a * b, nil
	case ComputeDiv:
		if b == 0 {
			return math.NaN(), nil
		}
		return a / b, nil
	case ComputeMod:
		// mod/idiv coerce operands to integers (spec §4.5).
		ai, bi := int64(a), int64(b)
		if bi == 0 {
			return math.NaN(), nil
		}
		return float64(ai % bi), nil
	case ComputeIDiv:
		ai, bi := int64(a), int64(b)
		if bi == 0 {
			return math.NaN(), nil
		}
		return float64(ai / bi), nil
	default:
		return 0, errFieldf(ErrUnsupported, "unknown compute op %d", c.Op)
	}
}

// GuardOp is one comparison a guard predicate may use (spec §4.5).
type GuardOp uint8

const (
	GuardGt GuardOp = iota
	GuardGte
	GuardLt
	GuardLte
	GuardEq
	GuardNe
)

// GuardPredicate tests `$Ref <op> Value`.
type GuardPredicate struct {
	Ref   string
	Op    GuardOp
	Value float64
}

func (p GuardPredicate) eval(sc *Scope) (bool, error) {
	v, err := sc.MustLookup(p.Ref)
	if err != nil {
		return false, err
	}
	n, ok := v.Number()
	if !ok {
		return false, errFieldf(ErrUndefinedVariable, "$%s is not numeric", p.Ref)
	}
	switch p.Op {
	case GuardGt:
		return n > p.Value, nil
	case GuardGte:
		return n >= p.Value, nil
	case GuardLt:
		return n < p.Value, nil
	case GuardLte:
		return n <= p.Value, nil
	case GuardEq:
		return n == p.Value, nil
	case GuardNe:
		return n != p.Value, nil
	default:
		return false, errFieldf(ErrUnsupported, "unknown guard op %d", p.Op)
	}
}

// Guard is a conjunction of predicates gating a computation; if any
// predicate is false the computation is replaced by Else (spec §4.5).
type Guard struct {
	Predicates []GuardPredicate
	Else       Value
}

func (g *Guard) holds(sc *Scope) (bool, error) {
	for _, p := range g.Predicates {
		ok, err := p.eval(sc)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ComputedSpec is the payload of a FieldComputed field (spec §4.5). Exactly
// one of Ref-only, Polynomial (over Ref), or Compute is meaningful.
type ComputedSpec struct {
	Ref        string  // value is $Ref; modifier pipeline then applies
	Polynomial []float64 // coefficients highest-degree first, evaluated over Ref via Horner's method
	Compute    *ComputeExpr
	Guard      *Guard
}

// horner evaluates a polynomial with coefficients highest-degree first at x.
func horner(coeffs []float64, x float64) float64 {
	v := 0.0
	for _, c := range coeffs {
		v = v*x + c
	}
	return v
}

// Eval computes the raw (pre-modifier-pipeline) numeric value of a computed
// field, honoring its guard if one is set.
func (c *ComputedSpec) Eval(sc *Scope) (Value, error) {
	if c.Guard != nil {
		ok, err := c.Guard.holds(sc)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return c.Guard.Else, nil
		}
	}
	return c.evalCore(sc)
}

// evalCore computes the value without consulting the guard, used by callers
// that have already resolved the guard themselves (decodeComputed, so it can
// decide whether the modifier pipeline still applies).
func (c *ComputedSpec) evalCore(sc *Scope) (Value, error) {
	switch {
	case c.Compute != nil:
		v, err := c.Compute.Eval(sc)
		if err != nil {
			return Value{}, err
		}
		return Real(v), nil

	case len(c.Polynomial) > 0:
		x, err := sc.MustLookup(c.Ref)
		if err != nil {
			return Value{}, err
		}
		n, ok := x.Number()
		if !ok {
			return Value{}, errFieldf(ErrUndefinedVariable, "$%s is not numeric", c.Ref)
		}
		return Real(horner(c.Polynomial, n)), nil

	case c.Ref != "":
		return sc.MustLookup(c.Ref)

	default:
		return Value{}, errFieldf(ErrUnsupported, "computed field has no ref, polynomial, or compute")
	}
}
