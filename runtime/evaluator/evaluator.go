package evaluator

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidExpression is returned when an expression cannot be parsed or
// uses an unsupported construct.
var ErrInvalidExpression = errors.New("invalid expression")

var singleQuoted = regexp.MustCompile(`'([^']*)'`)

// Evaluator evaluates Go-like expressions against a variable map, for
// example `value + 1`, `len(payload.items) > 2 && node.meta.label == 'x'`.
// Parsed expressions are cached.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]ast.Expr
}

// New creates an evaluator.
func New() *Evaluator {
	return &Evaluator{cache: map[string]ast.Expr{}}
}

// Evaluate evaluates expr with variables. A `${...}` wrapper is accepted.
func (e *Evaluator) Evaluate(expr string, variables map[string]interface{}) (interface{}, error) {
	parsed, err := e.parse(expr)
	if err != nil {
		return nil, err
	}
	return eval(parsed, variables)
}

// Condition evaluates expr and reports whether the result is truthy.
func (e *Evaluator) Condition(expr string, variables map[string]interface{}) (bool, error) {
	result, err := e.Evaluate(expr, variables)
	if err != nil {
		return false, err
	}
	return Truthy(result), nil
}

func (e *Evaluator) parse(expr string) (ast.Expr, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "${") && strings.HasSuffix(expr, "}") {
		expr = strings.TrimSpace(expr[2 : len(expr)-1])
	}
	if expr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidExpression)
	}
	e.mu.RLock()
	parsed, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return parsed, nil
	}
	parsed, err := parser.ParseExpr(singleQuoted.ReplaceAllString(expr, `"$1"`))
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrInvalidExpression, expr, err)
	}
	e.mu.Lock()
	e.cache[expr] = parsed
	e.mu.Unlock()
	return parsed, nil
}

// Truthy mirrors loose boolean semantics: nil, false, zero numbers, empty
// strings and empty collections are false.
func Truthy(value interface{}) bool {
	switch actual := value.(type) {
	case nil:
		return false
	case bool:
		return actual
	case string:
		return actual != ""
	}
	if isIntType(value) || isFloatType(value) {
		return toFloat64(value) != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func eval(node ast.Expr, variables map[string]interface{}) (interface{}, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		return literal(n)
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil", "null":
			return nil, nil
		}
		return variables[n.Name], nil
	case *ast.ParenExpr:
		return eval(n.X, variables)
	case *ast.SelectorExpr:
		x, err := eval(n.X, variables)
		if err != nil {
			return nil, err
		}
		return getProperty(x, n.Sel.Name), nil
	case *ast.IndexExpr:
		x, err := eval(n.X, variables)
		if err != nil {
			return nil, err
		}
		index, err := eval(n.Index, variables)
		if err != nil {
			return nil, err
		}
		if key, ok := index.(string); ok {
			return getProperty(x, key), nil
		}
		return getArrayElement(x, toInt(index)), nil
	case *ast.CallExpr:
		return call(n, variables)
	case *ast.UnaryExpr:
		operand, err := eval(n.X, variables)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.SUB:
			if isIntType(operand) {
				return -toInt(operand), nil
			}
			return -toFloat64(operand), nil
		case token.NOT:
			return !Truthy(operand), nil
		case token.ADD:
			return operand, nil
		}
	case *ast.BinaryExpr:
		return binary(n, variables)
	}
	return nil, fmt.Errorf("%w: unsupported %T", ErrInvalidExpression, node)
}

func literal(n *ast.BasicLit) (interface{}, error) {
	var value interface{}
	var err error
	switch n.Kind {
	case token.INT:
		value, err = strconv.Atoi(n.Value)
		return value, err
	case token.FLOAT:
		value, err = strconv.ParseFloat(n.Value, 64)
		return value, err
	case token.STRING:
		value, err = strconv.Unquote(n.Value)
		return value, err
	case token.CHAR:
		return strings.Trim(n.Value, "'"), nil
	}
	return nil, fmt.Errorf("%w: literal %v", ErrInvalidExpression, n.Value)
}

func call(n *ast.CallExpr, variables map[string]interface{}) (interface{}, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok || len(n.Args) != 1 {
		return nil, fmt.Errorf("%w: unsupported call", ErrInvalidExpression)
	}
	arg, err := eval(n.Args[0], variables)
	if err != nil {
		return nil, err
	}
	switch fn.Name {
	case "len":
		return length(arg), nil
	case "string":
		return stringifyValue(arg), nil
	case "int":
		return toInt(arg), nil
	case "float":
		return toFloat64(arg), nil
	case "bool":
		return Truthy(arg), nil
	}
	return nil, fmt.Errorf("%w: unknown function %v", ErrInvalidExpression, fn.Name)
}

func binary(n *ast.BinaryExpr, variables map[string]interface{}) (interface{}, error) {
	x, err := eval(n.X, variables)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.LAND:
		if !Truthy(x) {
			return false, nil
		}
		y, err := eval(n.Y, variables)
		return Truthy(y), err
	case token.LOR:
		if Truthy(x) {
			return true, nil
		}
		y, err := eval(n.Y, variables)
		return Truthy(y), err
	}
	y, err := eval(n.Y, variables)
	if err != nil {
		return nil, err
	}
	xVal, yVal := convertToCompatibleTypes(x, y)
	switch n.Op {
	case token.ADD:
		return performAddition(xVal, yVal), nil
	case token.SUB:
		return performSubtraction(xVal, yVal), nil
	case token.MUL:
		return performMultiplication(xVal, yVal), nil
	case token.QUO:
		return performDivision(xVal, yVal), nil
	case token.REM:
		return performModulo(xVal, yVal), nil
	case token.EQL:
		return equal(xVal, yVal), nil
	case token.NEQ:
		return !equal(xVal, yVal), nil
	case token.LSS:
		return compareValues(xVal, yVal) < 0, nil
	case token.GTR:
		return compareValues(xVal, yVal) > 0, nil
	case token.LEQ:
		return compareValues(xVal, yVal) <= 0, nil
	case token.GEQ:
		return compareValues(xVal, yVal) >= 0, nil
	}
	return nil, fmt.Errorf("%w: operator %v", ErrInvalidExpression, n.Op)
}

func equal(x, y interface{}) bool {
	if xs, ok := x.(string); ok {
		ys, ok := y.(string)
		return ok && xs == ys
	}
	if (isIntType(x) || isFloatType(x)) && (isIntType(y) || isFloatType(y)) {
		return compareValues(x, y) == 0
	}
	return reflect.DeepEqual(x, y)
}

func length(value interface{}) int {
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}

// getProperty returns a map entry or struct field (case-insensitive).
func getProperty(obj interface{}, prop string) interface{} {
	if obj == nil {
		return nil
	}
	if mapObj, ok := obj.(map[string]interface{}); ok {
		return mapObj[prop]
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil
		}
		item := val.MapIndex(reflect.ValueOf(prop).Convert(val.Type().Key()))
		if !item.IsValid() || !item.CanInterface() {
			return nil
		}
		return item.Interface()
	case reflect.Struct:
	default:
		return nil
	}
	field := val.FieldByName(prop)
	if !field.IsValid() {
		typ := val.Type()
		for i := 0; i < typ.NumField(); i++ {
			if strings.EqualFold(typ.Field(i).Name, prop) {
				field = val.Field(i)
				break
			}
		}
		if !field.IsValid() {
			return nil
		}
	}
	if !field.CanInterface() {
		return nil
	}
	return field.Interface()
}

// getArrayElement extracts an element from an array or slice.
func getArrayElement(obj interface{}, index int) interface{} {
	if obj == nil {
		return nil
	}
	if arr, ok := obj.([]interface{}); ok {
		if index >= 0 && index < len(arr) {
			return arr[index]
		}
		return nil
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Array && val.Kind() != reflect.Slice {
		return nil
	}
	if index < 0 || index >= val.Len() {
		return nil
	}
	item := val.Index(index)
	if !item.CanInterface() {
		return nil
	}
	return item.Interface()
}
