package dao

// Parameter names understood by criteria filters.
const (
	ParamSource = "Source"
	ParamTarget = "Target"
	ParamNode   = "Node"
)

// Parameter is a named List filter.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a parameter; several values form an any-of match.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
