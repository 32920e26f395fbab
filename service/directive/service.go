package directive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/internal/logging"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/runtime/evaluator"
	"github.com/viant/nodeflow/service/messaging"
	"github.com/viant/nodeflow/service/messaging/memory"
	"github.com/viant/nodeflow/service/registry"
)

var (
	// ErrInvalidDirective wraps structural validation failures.
	ErrInvalidDirective = errors.New("invalid directive")
	// ErrIndexOutOfRange is returned for an index past the end of a list;
	// an index equal to the length appends.
	ErrIndexOutOfRange = errors.New("index out of range")
	errSkipped         = errors.New("directive condition not met")
)

// Pending is a deferred directive waiting for Flush.
type Pending struct {
	EmitterID string
	TargetID  string
	Directive *graph.Directive
}

// Service validates and applies directives.
type Service struct {
	registry  *registry.Service
	evaluator *evaluator.Evaluator
	validate  *validator.Validate
	queue     *memory.Queue[Pending]
	logger    *slog.Logger
}

// Option customises a directive Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEvaluator(e *evaluator.Evaluator) Option {
	return func(s *Service) {
		s.evaluator = e
	}
}

func WithValidator(v *validator.Validate) Option {
	return func(s *Service) {
		s.validate = v
	}
}

// New creates a directive processor over registry.
func New(registry *registry.Service, opts ...Option) *Service {
	ret := &Service{registry: registry}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.evaluator == nil {
		ret.evaluator = evaluator.New()
	}
	if ret.validate == nil {
		ret.validate = validator.New()
	}
	if ret.logger == nil {
		ret.logger = logging.Discard()
	}
	ret.queue = memory.NewQueue[Pending](memory.DefaultConfig(), memory.WithLess(func(a, b *Pending) bool {
		return a.Directive.Priority() > b.Directive.Priority()
	}))
	return ret
}

// Validate checks the directive structure.
func (s *Service) Validate(d *graph.Directive) error {
	if d == nil {
		return fmt.Errorf("%w: directive was nil", ErrInvalidDirective)
	}
	if err := s.validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDirective, err)
	}
	if d.Payload == nil {
		return fmt.Errorf("%w: payload was nil", ErrInvalidDirective)
	}
	if _, err := ParsePath(d.Target.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDirective, err)
	}
	return nil
}

// Apply validates d and applies it to targetID, or queues it when
// processing.immediate is false. A failure is recorded on the emitting
// node as DIRECTIVE_PROCESSING_ERROR and returned.
func (s *Service) Apply(ctx context.Context, emitterID, targetID string, d *graph.Directive) error {
	if err := s.Validate(d); err != nil {
		return s.fail(ctx, emitterID, targetID, d, err)
	}
	if !d.IsImmediate() {
		return s.queue.Publish(ctx, &Pending{EmitterID: emitterID, TargetID: targetID, Directive: d})
	}
	if err := s.apply(ctx, targetID, d); err != nil {
		return s.fail(ctx, emitterID, targetID, d, err)
	}
	return nil
}

// ApplyAll applies directives keyed by target node id. Each directive is
// isolated: a failure does not stop the others.
func (s *Service) ApplyAll(ctx context.Context, emitterID string, directives map[string][]*graph.Directive) error {
	targets := make([]string, 0, len(directives))
	for target := range directives {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	var errs []error
	for _, target := range targets {
		for _, d := range directives[target] {
			if err := s.Apply(ctx, emitterID, target, d); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Flush applies every deferred directive by descending priority, then by
// arrival.
func (s *Service) Flush(ctx context.Context) error {
	var errs []error
	for {
		msg, err := s.queue.Consume(ctx)
		if errors.Is(err, messaging.ErrEmpty) {
			break
		}
		if err != nil {
			return err
		}
		pending := msg.T()
		if err = s.apply(ctx, pending.TargetID, pending.Directive); err != nil {
			errs = append(errs, s.fail(ctx, pending.EmitterID, pending.TargetID, pending.Directive, err))
			_ = msg.Nack(err)
			continue
		}
		_ = msg.Ack()
	}
	return errors.Join(errs...)
}

// Pending returns the number of deferred directives.
func (s *Service) Pending() int {
	return s.queue.Size()
}

// Failed returns the number of deferred directives that failed on Flush.
func (s *Service) Failed() int {
	return s.queue.DLQSize()
}

// Discard drops deferred and failed directives addressed to or emitted by nodeID.
func (s *Service) Discard(ctx context.Context, nodeID string) {
	involves := func(pending *Pending) bool {
		return pending.TargetID == nodeID || pending.EmitterID == nodeID
	}
	for _, msg := range s.queue.Drain() {
		pending := msg.T()
		if involves(pending) {
			_ = msg.Ack()
			continue
		}
		_ = s.queue.Publish(ctx, pending)
	}
	s.queue.PurgeDeadLetters(involves)
}

// Reset drops every deferred and failed directive.
func (s *Service) Reset() {
	s.queue.Reset()
}

func (s *Service) apply(ctx context.Context, targetID string, d *graph.Directive) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("directive panicked at %v: %v", d.FullPath(), r)
		}
	}()
	path, err := ParsePath(d.Target.Path)
	if err != nil {
		return err
	}
	_, err = s.registry.Mutate(ctx, targetID, func(node *graph.NodeData) error {
		section, err := node.Section(d.Target.Section)
		if err != nil {
			return err
		}
		if d.Processing != nil && d.Processing.Conditional != "" {
			ok, err := s.evaluator.Condition(d.Processing.Conditional, map[string]interface{}{
				"value":   lookup(section, path),
				"payload": d.Payload,
				"node":    sections(node),
			})
			if err != nil {
				return fmt.Errorf("failed to evaluate condition: %w", err)
			}
			if !ok {
				return errSkipped
			}
		}
		fn, err := mutationFor(d.Target.Operation, d.Payload, s.transform)
		if err != nil {
			return err
		}
		section, err = update(section, path, fn)
		if err != nil {
			return fmt.Errorf("failed to apply %v at %v: %w", d.Target.Operation, d.FullPath(), err)
		}
		updated, err := node.WithSection(d.Target.Section, section)
		if err != nil {
			return err
		}
		if err = graph.CheckSerializable(updated.Output.Data); err != nil {
			return err
		}
		*node = *updated
		return nil
	})
	if errors.Is(err, errSkipped) {
		s.logger.Debug("directive skipped", "target", targetID, "path", d.FullPath())
		return nil
	}
	return err
}

func (s *Service) transform(expr string, value interface{}) (interface{}, error) {
	return s.evaluator.Evaluate(expr, map[string]interface{}{"value": value})
}

func (s *Service) fail(ctx context.Context, emitterID, targetID string, d *graph.Directive, cause error) error {
	nodeErr := graph.NewNodeError(graph.CodeDirective, emitterID, cause, clock.Now()).
		WithDetail("target", targetID)
	if d != nil {
		nodeErr.WithDetail("type", d.Type)
		if d.Target != nil {
			nodeErr.WithDetail("path", d.FullPath()).WithDetail("operation", string(d.Target.Operation))
		}
	}
	logging.FromContext(ctx, s.logger).Warn("directive failed", "emitter", emitterID, "target", targetID, "error", cause)
	if _, err := s.registry.Mutate(ctx, emitterID, func(node *graph.NodeData) error {
		node.Error.AddError(nodeErr)
		return nil
	}); err != nil {
		s.logger.Warn("failed to record directive error", "emitter", emitterID, "error", err)
	}
	return nodeErr
}

func lookup(root map[string]interface{}, path Path) interface{} {
	var current interface{} = root
	for _, step := range path {
		if step.IsIndex {
			list, ok := current.([]interface{})
			if !ok || step.Index >= len(list) {
				return nil
			}
			current = list[step.Index]
			continue
		}
		object, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = object[step.Key]
	}
	return current
}

func sections(node *graph.NodeData) map[string]interface{} {
	ret := map[string]interface{}{}
	for _, name := range []string{graph.SectionMeta, graph.SectionInput, graph.SectionOutput, graph.SectionError, graph.SectionPlugin} {
		if section, err := node.Section(name); err == nil {
			ret[name] = section
		}
	}
	return ret
}
