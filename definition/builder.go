// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

package definition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/stepflow/interpolate"
	"github.com/BaSui01/stepflow/policy"
	"github.com/BaSui01/stepflow/script"
	"github.com/BaSui01/stepflow/workflow"
)

// Builder turns validated definitions into executable workflow trees. Tasks,
// predicates and selectors referenced by name must be registered before
// Build; key-based decisions need no registration and read the workflow
// context at runtime.
type Builder struct {
	tasks      map[string]workflow.Task
	predicates map[string]workflow.Predicate
	selectors  map[string]workflow.Selector
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		tasks:      make(map[string]workflow.Task),
		predicates: make(map[string]workflow.Predicate),
		selectors:  make(map[string]workflow.Selector),
	}
}

// RegisterTask binds a task ref to its implementation. Registering the same
// name twice overwrites the earlier binding.
func (b *Builder) RegisterTask(name string, t workflow.Task) *Builder {
	b.tasks[name] = t
	return b
}

// RegisterPredicate binds a predicate ref for conditional nodes.
func (b *Builder) RegisterPredicate(name string, p workflow.Predicate) *Builder {
	b.predicates[name] = p
	return b
}

// RegisterSelector binds a selector ref for switch nodes.
func (b *Builder) RegisterSelector(name string, s workflow.Selector) *Builder {
	b.selectors[name] = s
	return b
}

// Build validates def and constructs its workflow tree. Errors carry the
// path of the offending node.
func (b *Builder) Build(def *Definition) (workflow.Workflow, error) {
	if def == nil {
		return nil, errors.New("definition is required")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return b.buildNode(def.Workflow, "workflow")
}

func (b *Builder) buildNode(n *Node, path string) (workflow.Workflow, error) {
	switch n.Kind {
	case KindSequence:
		return b.buildSequence(n, path)
	case KindConditional:
		return b.buildConditional(n, path)
	case KindSwitch:
		return b.buildSwitch(n, path)
	case KindForEach:
		return b.buildForEach(n, path)
	case KindRepeat:
		return b.buildRepeat(n, path)
	case KindFallback:
		return b.buildFallback(n, path)
	case KindTimeout:
		return b.buildTimeout(n, path)
	case KindRateLimit:
		return b.buildRateLimit(n, path)
	case KindRetry:
		return b.buildRetry(n, path)
	case KindParallel:
		return b.buildParallel(n, path)
	case KindSaga:
		return b.buildSaga(n, path)
	case KindChaos:
		return b.buildChaos(n, path)
	case KindCircuitBreaker:
		return b.buildCircuitBreaker(n, path)
	case KindTask:
		return b.buildTask(n, path)
	case KindScript:
		return b.buildScript(n, path)
	case KindTemplate:
		return b.buildTemplate(n, path)
	default:
		return nil, fmt.Errorf("%s.kind: unknown kind %q", path, n.Kind)
	}
}

func (b *Builder) buildChildren(nodes []*Node, path string) ([]workflow.Workflow, error) {
	children := make([]workflow.Workflow, 0, len(nodes))
	for i, child := range nodes {
		w, err := b.buildNode(child, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, w)
	}
	return children, nil
}

func (b *Builder) buildSequence(n *Node, path string) (workflow.Workflow, error) {
	children, err := b.buildChildren(n.Children, path)
	if err != nil {
		return nil, err
	}
	seq, err := workflow.NewSequential(n.Name, children...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

func (b *Builder) buildConditional(n *Node, path string) (workflow.Workflow, error) {
	pred, err := b.predicate(n.When, path+".when")
	if err != nil {
		return nil, err
	}
	var onTrue, onFalse workflow.Workflow
	if n.Then != nil {
		if onTrue, err = b.buildNode(n.Then, path+".then"); err != nil {
			return nil, err
		}
	}
	if n.Else != nil {
		if onFalse, err = b.buildNode(n.Else, path+".else"); err != nil {
			return nil, err
		}
	}
	cond, err := workflow.NewConditional(n.Name, pred, onTrue, onFalse)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cond, nil
}

func (b *Builder) buildSwitch(n *Node, path string) (workflow.Workflow, error) {
	sel, err := b.selector(n.Selector, path+".selector")
	if err != nil {
		return nil, err
	}
	cases := make([]workflow.Case, 0, len(n.Cases))
	for i, cs := range n.Cases {
		w, err := b.buildNode(cs.Workflow, fmt.Sprintf("%s.cases[%d].workflow", path, i))
		if err != nil {
			return nil, err
		}
		cases = append(cases, workflow.Case{Key: cs.Key, Workflow: w})
	}
	var def workflow.Workflow
	if n.Default != nil {
		if def, err = b.buildNode(n.Default, path+".default"); err != nil {
			return nil, err
		}
	}
	sw, err := workflow.NewSwitch(n.Name, sel, cases, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sw, nil
}

func (b *Builder) buildForEach(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	fe, err := workflow.NewForEach(n.Name, n.ItemsKey, n.ItemVar, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if n.IndexVar != "" {
		fe = fe.WithIndexVar(n.IndexVar)
	}
	return fe, nil
}

func (b *Builder) buildRepeat(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	rp, err := workflow.NewRepeat(n.Name, n.Times, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if n.IndexVar != "" {
		rp = rp.WithIndexVar(n.IndexVar)
	}
	return rp, nil
}

func (b *Builder) buildFallback(n *Node, path string) (workflow.Workflow, error) {
	primary, err := b.buildNode(n.Primary, path+".primary")
	if err != nil {
		return nil, err
	}
	fallback, err := b.buildNode(n.Fallback, path+".fallback")
	if err != nil {
		return nil, err
	}
	fb, err := workflow.NewFallback(n.Name, primary, fallback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fb, nil
}

func (b *Builder) buildTimeout(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	to, err := workflow.NewTimeout(n.Name, body, policy.OfMillis(n.TimeoutMillis))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return to, nil
}

func (b *Builder) buildRateLimit(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	burst := n.Burst
	if burst == 0 {
		burst = 1
	}
	rl, err := workflow.NewRateLimitedPerSecond(n.Name, body, n.RPS, burst)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rl, nil
}

func (b *Builder) buildRetry(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	backoff, err := buildBackoff(n.Backoff, path+".backoff")
	if err != nil {
		return nil, err
	}
	rt, err := workflow.NewRetry(n.Name, body, policy.LimitedRetries(n.MaxRetries), backoff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rt, nil
}

func buildBackoff(bn *BackoffNode, path string) (policy.BackoffStrategy, error) {
	if bn == nil {
		return policy.NoBackoff(), nil
	}
	base := time.Duration(bn.BaseMillis) * time.Millisecond
	max := time.Duration(bn.MaxMillis) * time.Millisecond
	switch bn.Strategy {
	case "", "none":
		return policy.NoBackoff(), nil
	case "constant":
		return policy.ConstantBackoff(base), nil
	case "linear":
		return policy.LinearBackoff(base), nil
	case "exponential":
		return policy.ExponentialBackoff(base), nil
	case "exponential_jitter":
		if bn.Factor > 0 {
			return policy.ExponentialBackoffWithJitterFactor(base, max, bn.Factor), nil
		}
		return policy.ExponentialBackoffWithJitter(base, max), nil
	default:
		return nil, fmt.Errorf("%s.strategy: unknown strategy %q", path, bn.Strategy)
	}
}

func (b *Builder) buildParallel(n *Node, path string) (workflow.Workflow, error) {
	branches, err := b.buildChildren(n.Children, path)
	if err != nil {
		return nil, err
	}
	par, err := workflow.NewParallel(n.Name, branches...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	switch n.Isolation {
	case "", "isolate_and_merge":
		par = par.WithIsolation(workflow.IsolateAndMerge)
	case "isolate_and_discard":
		par = par.WithIsolation(workflow.IsolateAndDiscard)
	case "share":
		par = par.WithIsolation(workflow.ShareContext)
	default:
		return nil, fmt.Errorf("%s.isolation: unknown mode %q", path, n.Isolation)
	}
	switch n.Merge {
	case "":
	case "skip":
		par = par.WithMergeStrategy(workflow.MergeSkip)
	case "overwrite":
		par = par.WithMergeStrategy(workflow.MergeOverwrite)
	case "error":
		par = par.WithMergeStrategy(workflow.MergeError)
	default:
		return nil, fmt.Errorf("%s.merge: unknown strategy %q", path, n.Merge)
	}
	return par, nil
}

func (b *Builder) buildSaga(n *Node, path string) (workflow.Workflow, error) {
	steps := make([]workflow.SagaStep, 0, len(n.Steps))
	for i, sn := range n.Steps {
		spath := fmt.Sprintf("%s.steps[%d]", path, i)
		action, ok := b.tasks[sn.Action]
		if !ok {
			return nil, fmt.Errorf("%s.action: task ref %q not registered", spath, sn.Action)
		}
		step := workflow.SagaStep{Name: sn.Name, Action: action}
		if sn.Compensation != "" {
			comp, ok := b.tasks[sn.Compensation]
			if !ok {
				return nil, fmt.Errorf("%s.compensation: task ref %q not registered", spath, sn.Compensation)
			}
			step.Compensation = comp
		}
		steps = append(steps, step)
	}
	saga, err := workflow.NewSaga(n.Name, steps...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return saga, nil
}

func (b *Builder) buildChaos(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	strategies := make([]workflow.ChaosStrategy, 0, len(n.Strategies))
	for i, sn := range n.Strategies {
		s, err := buildStrategy(sn, fmt.Sprintf("%s.strategies[%d]", path, i))
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	ch, err := workflow.NewChaos(n.Name, body, strategies...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ch, nil
}

func buildStrategy(sn StrategyNode, path string) (workflow.ChaosStrategy, error) {
	switch sn.Type {
	case "failure":
		s, err := workflow.NewFailureInjection(sn.Probability)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	case "latency":
		min := time.Duration(sn.MinMillis) * time.Millisecond
		max := time.Duration(sn.MaxMillis) * time.Millisecond
		if max < min {
			max = min
		}
		s, err := workflow.NewLatencyInjectionRange(min, max)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	case "exception":
		msg := sn.Message
		if msg == "" {
			msg = "injected exception"
		}
		s, err := workflow.NewExceptionInjection(errors.New(msg))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	case "resource":
		resource := workflow.ResourceMemory
		if sn.Resource == "cpu" {
			resource = workflow.ResourceCPU
		}
		s, err := workflow.NewResourceExhaustion(resource, sn.Intensity)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if sn.FailProbability > 0 {
			s = s.WithFailureProbability(sn.FailProbability)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%s.type: unknown type %q", path, sn.Type)
	}
}

func (b *Builder) buildCircuitBreaker(n *Node, path string) (workflow.Workflow, error) {
	body, err := b.buildNode(n.Body, path+".body")
	if err != nil {
		return nil, err
	}
	cfg := workflow.CircuitBreakerConfig{
		FailureThreshold: n.FailureThreshold,
		SuccessThreshold: n.SuccessThreshold,
		OpenTimeout:      time.Duration(n.OpenTimeoutMs) * time.Millisecond,
		HalfOpenMaxCalls: n.HalfOpenMaxCalls,
	}
	cb, err := workflow.NewCircuitBreaker(n.Name, body, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cb, nil
}

func (b *Builder) buildTask(n *Node, path string) (workflow.Workflow, error) {
	t, ok := b.tasks[n.Ref]
	if !ok {
		return nil, fmt.Errorf("%s.ref: task ref %q not registered", path, n.Ref)
	}
	name := n.Name
	if name == "" {
		name = n.Ref
	}
	tw, err := workflow.NewTask(name, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tw, nil
}

func (b *Builder) buildScript(n *Node, path string) (workflow.Workflow, error) {
	if n.File != "" {
		sc, err := script.NewFromFile(n.Name, n.File, n.Entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return sc, nil
	}
	sc, err := script.New(n.Name, n.Source, n.Entry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (b *Builder) buildTemplate(n *Node, path string) (workflow.Workflow, error) {
	tw, err := interpolate.NewWorkflow(n.Name, n.Template, n.OutputKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tw, nil
}

func (b *Builder) predicate(dec *Decision, path string) (workflow.Predicate, error) {
	if dec.Ref != "" {
		p, ok := b.predicates[dec.Ref]
		if !ok {
			return nil, fmt.Errorf("%s.ref: predicate ref %q not registered", path, dec.Ref)
		}
		return p, nil
	}
	return keyPredicate(dec.Key), nil
}

func (b *Builder) selector(dec *Decision, path string) (workflow.Selector, error) {
	if dec.Ref != "" {
		s, ok := b.selectors[dec.Ref]
		if !ok {
			return nil, fmt.Errorf("%s.ref: selector ref %q not registered", path, dec.Ref)
		}
		return s, nil
	}
	return keySelector(dec.Key), nil
}

// keyPredicate reads a boolean decision from the workflow context.
func keyPredicate(key string) workflow.Predicate {
	return func(_ context.Context, wctx *workflow.Context) (bool, error) {
		v, ok := wctx.Get(key)
		if !ok {
			return false, fmt.Errorf("context key %q not set", key)
		}
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("context key %q holds %T, want bool", key, v)
		}
		return b, nil
	}
}

// keySelector reads a string branch key from the workflow context.
func keySelector(key string) workflow.Selector {
	return func(_ context.Context, wctx *workflow.Context) (string, error) {
		v, ok := wctx.Get(key)
		if !ok {
			return "", fmt.Errorf("context key %q not set", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("context key %q holds %T, want string", key, v)
		}
		return s, nil
	}
}
