package directive

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/nodeflow/model/graph"
)

// ExpressionPrefix marks a string transform payload as an expression.
const ExpressionPrefix = "expr:"

type (
	// TransformFunc maps the existing value to a new one.
	TransformFunc func(value interface{}) interface{}

	// Expression is a declarative transform evaluated with `value` bound
	// to the existing value.
	Expression struct {
		Expr string `json:"expr" yaml:"expr"`
	}

	// mutation computes the new value at the target from the existing one.
	mutation func(existing interface{}, exists bool) (interface{}, error)
)

// update writes the value produced by fn at path inside root. Every
// container on the way is shallow-copied, so siblings are preserved and
// the original root is left untouched.
func update(root map[string]interface{}, path Path, fn mutation) (map[string]interface{}, error) {
	if len(path) == 0 || path[0].IsIndex {
		return nil, fmt.Errorf("path must start with a key")
	}
	ret, err := updateValue(root, path, fn)
	if err != nil {
		return nil, err
	}
	return ret.(map[string]interface{}), nil
}

func updateValue(current interface{}, path Path, fn mutation) (interface{}, error) {
	step := path[0]
	if step.IsIndex {
		list, err := copySlice(current)
		if err != nil {
			return nil, fmt.Errorf("at %v: %w", step, err)
		}
		switch {
		case step.Index > len(list):
			return nil, fmt.Errorf("at %v: %w: length %d", step, ErrIndexOutOfRange, len(list))
		case step.Index == len(list):
			list = append(list, nil)
		}
		existing := list[step.Index]
		if len(path) == 1 {
			if list[step.Index], err = fn(existing, existing != nil); err != nil {
				return nil, err
			}
			return list, nil
		}
		if list[step.Index], err = updateValue(existing, path[1:], fn); err != nil {
			return nil, err
		}
		return list, nil
	}

	object, err := copyObject(current)
	if err != nil {
		return nil, fmt.Errorf("at %v: %w", step, err)
	}
	existing, exists := object[step.Key]
	if len(path) == 1 {
		if object[step.Key], err = fn(existing, exists); err != nil {
			return nil, err
		}
		return object, nil
	}
	if object[step.Key], err = updateValue(existing, path[1:], fn); err != nil {
		return nil, err
	}
	return object, nil
}

func copyObject(value interface{}) (map[string]interface{}, error) {
	switch actual := value.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		ret := make(map[string]interface{}, len(actual)+1)
		for k, v := range actual {
			ret[k] = v
		}
		return ret, nil
	}
	return nil, fmt.Errorf("cannot descend into %T", value)
}

func copySlice(value interface{}) ([]interface{}, error) {
	switch actual := value.(type) {
	case nil:
		return []interface{}{}, nil
	case []interface{}:
		return append([]interface{}{}, actual...), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot index into %T", value)
	}
	ret := make([]interface{}, rv.Len())
	for i := range ret {
		ret[i] = rv.Index(i).Interface()
	}
	return ret, nil
}

func setValue(payload interface{}) mutation {
	return func(existing interface{}, exists bool) (interface{}, error) {
		return payload, nil
	}
}

// mergeValue shallow-merges an object payload; anything else is set.
func mergeValue(payload interface{}) mutation {
	return func(existing interface{}, exists bool) (interface{}, error) {
		src, ok := payload.(map[string]interface{})
		if !ok {
			return payload, nil
		}
		dest, ok := existing.(map[string]interface{})
		if !ok {
			dest = nil
		}
		ret, err := copyObject(dest)
		if err != nil {
			return nil, err
		}
		for k, v := range src {
			ret[k] = v
		}
		return ret, nil
	}
}

// appendValue pushes onto a slice or concatenates onto a string; anything
// else is set.
func appendValue(payload interface{}) mutation {
	return func(existing interface{}, exists bool) (interface{}, error) {
		switch actual := existing.(type) {
		case string:
			if text, ok := payload.(string); ok {
				return actual + text, nil
			}
			return actual + fmt.Sprint(payload), nil
		case nil:
			return payload, nil
		}
		if rv := reflect.ValueOf(existing); rv.Kind() == reflect.Slice {
			list, err := copySlice(existing)
			if err != nil {
				return nil, err
			}
			return append(list, payload), nil
		}
		return payload, nil
	}
}

// transformValue runs a function or an expression over the existing value.
// Payloads that are neither are set.
func transformValue(payload interface{}, eval func(expr string, value interface{}) (interface{}, error)) mutation {
	return func(existing interface{}, exists bool) (interface{}, error) {
		switch fn := payload.(type) {
		case TransformFunc:
			return fn(existing), nil
		case func(interface{}) interface{}:
			return fn(existing), nil
		case Expression:
			return eval(fn.Expr, existing)
		case *Expression:
			return eval(fn.Expr, existing)
		case string:
			if strings.HasPrefix(fn, ExpressionPrefix) {
				return eval(strings.TrimPrefix(fn, ExpressionPrefix), existing)
			}
		case map[string]interface{}:
			if expr, ok := fn["expr"].(string); ok && len(fn) == 1 {
				return eval(expr, existing)
			}
		}
		return payload, nil
	}
}

func mutationFor(op graph.Operation, payload interface{}, eval func(expr string, value interface{}) (interface{}, error)) (mutation, error) {
	switch op {
	case graph.OperationSet:
		return setValue(payload), nil
	case graph.OperationMerge:
		return mergeValue(payload), nil
	case graph.OperationAppend:
		return appendValue(payload), nil
	case graph.OperationTransform:
		return transformValue(payload, eval), nil
	}
	return nil, fmt.Errorf("unsupported operation %q", op)
}
