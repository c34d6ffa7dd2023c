package expr

import (
	"errors"
	"fmt"
	"math"
)

var errDivisionByZero = errors.New("division by zero")

func isNumber(v Value) bool {
	switch v.(type) {
	case IntValue, FloatValue:
		return true
	}
	return false
}

func toFloat(v Value) float64 {
	switch t := v.(type) {
	case IntValue:
		return float64(t)
	case FloatValue:
		return float64(t)
	}
	return math.NaN()
}

// Equal reports whether two values are equal. Ints and floats compare
// numerically; lists and dictionaries compare element-wise.
func Equal(a, b Value) bool {
	if a == nil {
		a = NoneValue{}
	}
	if b == nil {
		b = NoneValue{}
	}
	if isNumber(a) && isNumber(b) {
		ai, aInt := a.(IntValue)
		bi, bInt := b.(IntValue)
		if aInt && bInt {
			return ai == bi
		}
		return toFloat(a) == toFloat(b)
	}
	switch at := a.(type) {
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case BoolValue:
		bt, ok := b.(BoolValue)
		return ok && at == bt
	case StringValue:
		bt, ok := b.(StringValue)
		return ok && at == bt
	case ListValue:
		bt, ok := b.(ListValue)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	case DictValue:
		bt, ok := b.(DictValue)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// compare orders numbers numerically and strings lexically.
func compare(op string, a, b Value) (Value, error) {
	var c int
	switch {
	case isNumber(a) && isNumber(b):
		ai, aInt := a.(IntValue)
		bi, bInt := b.(IntValue)
		if aInt && bInt {
			c = cmpOrdered(ai, bi)
		} else {
			af, bf := toFloat(a), toFloat(b)
			if math.IsNaN(af) || math.IsNaN(bf) {
				return BoolValue(false), nil
			}
			c = cmpOrdered(af, bf)
		}
	default:
		as, aok := a.(StringValue)
		bs, bok := b.(StringValue)
		if !aok || !bok {
			return nil, fmt.Errorf("cannot compare %s %s %s", TypeName(a), op, TypeName(b))
		}
		c = cmpOrdered(as, bs)
	}
	switch op {
	case "<":
		return BoolValue(c < 0), nil
	case "<=":
		return BoolValue(c <= 0), nil
	case ">":
		return BoolValue(c > 0), nil
	default:
		return BoolValue(c >= 0), nil
	}
}

func cmpOrdered[T ~int64 | ~float64 | ~string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func binaryOp(op string, a, b Value) (Value, error) {
	switch op {
	case "==", "===":
		return BoolValue(Equal(a, b)), nil
	case "!=", "!==":
		return BoolValue(!Equal(a, b)), nil
	case "<", "<=", ">", ">=":
		return compare(op, a, b)
	case "+":
		return add(a, b)
	case "-", "*", "/", "%":
		return arith(op, a, b)
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func add(a, b Value) (Value, error) {
	_, as := a.(StringValue)
	_, bs := b.(StringValue)
	if as || bs {
		return StringValue(a.String() + b.String()), nil
	}
	if al, ok := a.(ListValue); ok {
		if bl, ok := b.(ListValue); ok {
			out := make(ListValue, 0, len(al)+len(bl))
			out = append(out, al...)
			return append(out, bl...), nil
		}
	}
	return arith("+", a, b)
}

func arith(op string, a, b Value) (Value, error) {
	if !isNumber(a) || !isNumber(b) {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, TypeName(a), TypeName(b))
	}
	ai, aInt := a.(IntValue)
	bi, bInt := b.(IntValue)
	if aInt && bInt {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "/":
			if bi == 0 {
				return nil, errDivisionByZero
			}
			if ai%bi == 0 {
				return ai / bi, nil
			}
			return FloatValue(float64(ai) / float64(bi)), nil
		case "%":
			if bi == 0 {
				return nil, errDivisionByZero
			}
			return ai % bi, nil
		}
	}
	af, bf := toFloat(a), toFloat(b)
	switch op {
	case "+":
		return FloatValue(af + bf), nil
	case "-":
		return FloatValue(af - bf), nil
	case "*":
		return FloatValue(af * bf), nil
	case "/":
		if bf == 0 {
			return nil, errDivisionByZero
		}
		return FloatValue(af / bf), nil
	default:
		if bf == 0 {
			return nil, errDivisionByZero
		}
		return FloatValue(math.Mod(af, bf)), nil
	}
}

func unaryOp(op string, v Value) (Value, error) {
	switch op {
	case "!":
		return BoolValue(!v.Truth()), nil
	case "-":
		switch t := v.(type) {
		case IntValue:
			return -t, nil
		case FloatValue:
			return -t, nil
		}
	case "+":
		if isNumber(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("bad operand type for unary %s: %s", op, TypeName(v))
}
