package graph

// Operation is the mutation a directive performs at its target path.
type Operation string

const (
	OperationSet       Operation = "set"
	OperationMerge     Operation = "merge"
	OperationAppend    Operation = "append"
	OperationTransform Operation = "transform"
)

type (
	// Directive lets one node's result mutate a field inside another node,
	// independent of connection based data flow.
	Directive struct {
		Type       string         `json:"type" yaml:"type" validate:"required"`
		Target     *Target        `json:"target" yaml:"target" validate:"required"`
		Payload    interface{}    `json:"payload" yaml:"payload"`
		Processing *Processing    `json:"processing" yaml:"processing" validate:"required"`
		Meta       *DirectiveMeta `json:"meta" yaml:"meta" validate:"required"`
	}

	Target struct {
		Section   string    `json:"section" yaml:"section" validate:"required,oneof=meta input output error plugin"`
		Path      string    `json:"path" yaml:"path" validate:"required"`
		Operation Operation `json:"operation" yaml:"operation" validate:"required,oneof=set merge append transform"`
	}

	Processing struct {
		Immediate   *bool  `json:"immediate,omitempty" yaml:"immediate,omitempty"`
		Priority    int    `json:"priority,omitempty" yaml:"priority,omitempty"`
		Conditional string `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	}

	DirectiveMeta struct {
		Source    string `json:"source" yaml:"source" validate:"required"`
		Timestamp string `json:"timestamp" yaml:"timestamp" validate:"required"`
		Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	}
)

// IsImmediate returns false only when processing.immediate is explicitly false.
func (d *Directive) IsImmediate() bool {
	if d == nil || d.Processing == nil || d.Processing.Immediate == nil {
		return true
	}
	return *d.Processing.Immediate
}

// FullPath returns section + "." + path.
func (d *Directive) FullPath() string {
	if d == nil || d.Target == nil {
		return ""
	}
	if d.Target.Path == "" {
		return d.Target.Section
	}
	return d.Target.Section + "." + d.Target.Path
}

// Priority returns processing.priority or zero.
func (d *Directive) Priority() int {
	if d == nil || d.Processing == nil {
		return 0
	}
	return d.Processing.Priority
}

// CloneDirectives copies the directive map and its slices; directives
// themselves are shared.
func CloneDirectives(src map[string][]*Directive) map[string][]*Directive {
	ret := make(map[string][]*Directive, len(src))
	for target, list := range src {
		ret[target] = append([]*Directive(nil), list...)
	}
	return ret
}
