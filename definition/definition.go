// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

package definition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Node kinds accepted by the definition schema.
const (
	KindSequence       = "sequence"
	KindConditional    = "conditional"
	KindSwitch         = "switch"
	KindForEach        = "foreach"
	KindRepeat         = "repeat"
	KindFallback       = "fallback"
	KindTimeout        = "timeout"
	KindRateLimit      = "ratelimit"
	KindRetry          = "retry"
	KindParallel       = "parallel"
	KindSaga           = "saga"
	KindChaos          = "chaos"
	KindCircuitBreaker = "circuitbreaker"
	KindTask           = "task"
	KindScript         = "script"
	KindTemplate       = "template"
)

// Definition is the root document of a declarative workflow file.
type Definition struct {
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
	Workflow *Node  `yaml:"workflow" json:"workflow"`
}

// Node describes a single workflow combinator. Kind selects the combinator
// and determines which of the remaining fields apply.
type Node struct {
	Kind string `yaml:"kind" json:"kind"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// sequence, parallel
	Children []*Node `yaml:"children,omitempty" json:"children,omitempty"`

	// conditional
	When *Decision `yaml:"when,omitempty" json:"when,omitempty"`
	Then *Node     `yaml:"then,omitempty" json:"then,omitempty"`
	Else *Node     `yaml:"else,omitempty" json:"else,omitempty"`

	// switch
	Selector *Decision  `yaml:"selector,omitempty" json:"selector,omitempty"`
	Cases    []CaseNode `yaml:"cases,omitempty" json:"cases,omitempty"`
	Default  *Node      `yaml:"default,omitempty" json:"default,omitempty"`

	// foreach
	ItemsKey string `yaml:"items_key,omitempty" json:"items_key,omitempty"`
	ItemVar  string `yaml:"item_var,omitempty" json:"item_var,omitempty"`
	IndexVar string `yaml:"index_var,omitempty" json:"index_var,omitempty"`

	// repeat
	Times int `yaml:"times,omitempty" json:"times,omitempty"`

	// foreach, repeat, timeout, ratelimit, retry, chaos, circuitbreaker
	Body *Node `yaml:"body,omitempty" json:"body,omitempty"`

	// fallback
	Primary  *Node `yaml:"primary,omitempty" json:"primary,omitempty"`
	Fallback *Node `yaml:"fallback,omitempty" json:"fallback,omitempty"`

	// timeout
	TimeoutMillis int64 `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`

	// ratelimit
	RPS   float64 `yaml:"rps,omitempty" json:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty" json:"burst,omitempty"`

	// retry
	MaxRetries int          `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	Backoff    *BackoffNode `yaml:"backoff,omitempty" json:"backoff,omitempty"`

	// parallel
	Isolation string `yaml:"isolation,omitempty" json:"isolation,omitempty"`
	Merge     string `yaml:"merge,omitempty" json:"merge,omitempty"`

	// saga
	Steps []SagaStepNode `yaml:"steps,omitempty" json:"steps,omitempty"`

	// chaos
	Strategies []StrategyNode `yaml:"strategies,omitempty" json:"strategies,omitempty"`

	// circuitbreaker
	FailureThreshold int   `yaml:"failure_threshold,omitempty" json:"failure_threshold,omitempty"`
	SuccessThreshold int   `yaml:"success_threshold,omitempty" json:"success_threshold,omitempty"`
	OpenTimeoutMs    int64 `yaml:"open_timeout_ms,omitempty" json:"open_timeout_ms,omitempty"`
	HalfOpenMaxCalls int   `yaml:"half_open_max_calls,omitempty" json:"half_open_max_calls,omitempty"`

	// task
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// script
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
	Entry  string `yaml:"entry,omitempty" json:"entry,omitempty"`

	// template
	Template  string `yaml:"template,omitempty" json:"template,omitempty"`
	OutputKey string `yaml:"output_key,omitempty" json:"output_key,omitempty"`
}

// Decision names either a registered function or a context key that supplies
// the value at runtime. Exactly one of the two fields must be set.
type Decision struct {
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// CaseNode binds one switch branch key to a workflow subtree.
type CaseNode struct {
	Key      string `yaml:"key" json:"key"`
	Workflow *Node  `yaml:"workflow" json:"workflow"`
}

// SagaStepNode references a forward action and an optional compensation,
// both resolved against the builder's task registry.
type SagaStepNode struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Action       string `yaml:"action" json:"action"`
	Compensation string `yaml:"compensation,omitempty" json:"compensation,omitempty"`
}

// StrategyNode configures one chaos injection strategy.
type StrategyNode struct {
	Type            string  `yaml:"type" json:"type"`
	Probability     float64 `yaml:"probability,omitempty" json:"probability,omitempty"`
	MinMillis       int64   `yaml:"min_ms,omitempty" json:"min_ms,omitempty"`
	MaxMillis       int64   `yaml:"max_ms,omitempty" json:"max_ms,omitempty"`
	Message         string  `yaml:"message,omitempty" json:"message,omitempty"`
	Resource        string  `yaml:"resource,omitempty" json:"resource,omitempty"`
	Intensity       float64 `yaml:"intensity,omitempty" json:"intensity,omitempty"`
	FailProbability float64 `yaml:"fail_probability,omitempty" json:"fail_probability,omitempty"`
}

// BackoffNode configures the delay strategy of a retry node.
type BackoffNode struct {
	Strategy   string  `yaml:"strategy" json:"strategy"`
	BaseMillis int64   `yaml:"base_ms,omitempty" json:"base_ms,omitempty"`
	MaxMillis  int64   `yaml:"max_ms,omitempty" json:"max_ms,omitempty"`
	Factor     float64 `yaml:"factor,omitempty" json:"factor,omitempty"`
}

// FromYAML parses a definition document and validates its structure. Build
// errors that need the builder's registries, such as unknown refs, are not
// reported here.
func FromYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// LoadFile reads a YAML definition from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return FromYAML(data)
}

// ToYAML serializes the definition back to YAML.
func (d *Definition) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return data, nil
}

// Validate checks the definition's structure without resolving refs. Every
// error is annotated with the path of the offending node, for example
// workflow.children[2].when.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name: must not be empty")
	}
	if d.Workflow == nil {
		return fmt.Errorf("workflow: must not be empty")
	}
	return validateNode(d.Workflow, "workflow")
}

func validateNode(n *Node, path string) error {
	if n == nil {
		return fmt.Errorf("%s: node must not be null", path)
	}
	switch n.Kind {
	case KindSequence:
		return validateChildren(n, path)
	case KindConditional:
		return validateConditional(n, path)
	case KindSwitch:
		return validateSwitch(n, path)
	case KindForEach:
		return validateForEach(n, path)
	case KindRepeat:
		return validateBody(n, path)
	case KindFallback:
		return validateFallback(n, path)
	case KindTimeout:
		return validateBody(n, path)
	case KindRateLimit:
		return validateRateLimit(n, path)
	case KindRetry:
		return validateRetry(n, path)
	case KindParallel:
		return validateParallel(n, path)
	case KindSaga:
		return validateSaga(n, path)
	case KindChaos:
		return validateChaos(n, path)
	case KindCircuitBreaker:
		return validateBody(n, path)
	case KindTask:
		if n.Ref == "" {
			return fmt.Errorf("%s.ref: must not be empty", path)
		}
		return nil
	case KindScript:
		return validateScript(n, path)
	case KindTemplate:
		return validateTemplate(n, path)
	case "":
		return fmt.Errorf("%s.kind: must not be empty", path)
	default:
		return fmt.Errorf("%s.kind: unknown kind %q", path, n.Kind)
	}
}

func validateChildren(n *Node, path string) error {
	for i, child := range n.Children {
		if err := validateNode(child, fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateDecision(dec *Decision, path string) error {
	if dec == nil {
		return fmt.Errorf("%s: must not be empty", path)
	}
	if dec.Key == "" && dec.Ref == "" {
		return fmt.Errorf("%s: needs key or ref", path)
	}
	if dec.Key != "" && dec.Ref != "" {
		return fmt.Errorf("%s: key and ref are mutually exclusive", path)
	}
	return nil
}

func validateConditional(n *Node, path string) error {
	if err := validateDecision(n.When, path+".when"); err != nil {
		return err
	}
	if n.Then == nil && n.Else == nil {
		return fmt.Errorf("%s: needs at least one of then or else", path)
	}
	if n.Then != nil {
		if err := validateNode(n.Then, path+".then"); err != nil {
			return err
		}
	}
	if n.Else != nil {
		if err := validateNode(n.Else, path+".else"); err != nil {
			return err
		}
	}
	return nil
}

func validateSwitch(n *Node, path string) error {
	if err := validateDecision(n.Selector, path+".selector"); err != nil {
		return err
	}
	for i, cs := range n.Cases {
		cpath := fmt.Sprintf("%s.cases[%d]", path, i)
		if cs.Key == "" {
			return fmt.Errorf("%s.key: must not be empty", cpath)
		}
		if err := validateNode(cs.Workflow, cpath+".workflow"); err != nil {
			return err
		}
	}
	if n.Default != nil {
		if err := validateNode(n.Default, path+".default"); err != nil {
			return err
		}
	}
	return nil
}

func validateForEach(n *Node, path string) error {
	if n.ItemsKey == "" {
		return fmt.Errorf("%s.items_key: must not be empty", path)
	}
	if n.ItemVar == "" {
		return fmt.Errorf("%s.item_var: must not be empty", path)
	}
	return validateBody(n, path)
}

func validateBody(n *Node, path string) error {
	if n.Body == nil {
		return fmt.Errorf("%s.body: must not be empty", path)
	}
	return validateNode(n.Body, path+".body")
}

func validateFallback(n *Node, path string) error {
	if n.Primary == nil {
		return fmt.Errorf("%s.primary: must not be empty", path)
	}
	if err := validateNode(n.Primary, path+".primary"); err != nil {
		return err
	}
	if n.Fallback == nil {
		return fmt.Errorf("%s.fallback: must not be empty", path)
	}
	return validateNode(n.Fallback, path+".fallback")
}

func validateRateLimit(n *Node, path string) error {
	if n.RPS <= 0 {
		return fmt.Errorf("%s.rps: must be positive, got %v", path, n.RPS)
	}
	if n.Burst < 0 {
		return fmt.Errorf("%s.burst: must not be negative, got %d", path, n.Burst)
	}
	return validateBody(n, path)
}

func validateRetry(n *Node, path string) error {
	if n.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries: must not be negative, got %d", path, n.MaxRetries)
	}
	if n.Backoff != nil {
		switch n.Backoff.Strategy {
		case "", "none", "constant", "linear", "exponential", "exponential_jitter":
		default:
			return fmt.Errorf("%s.backoff.strategy: unknown strategy %q", path, n.Backoff.Strategy)
		}
	}
	return validateBody(n, path)
}

func validateParallel(n *Node, path string) error {
	switch n.Isolation {
	case "", "isolate_and_merge", "isolate_and_discard", "share":
	default:
		return fmt.Errorf("%s.isolation: unknown mode %q", path, n.Isolation)
	}
	switch n.Merge {
	case "", "skip", "overwrite", "error":
	default:
		return fmt.Errorf("%s.merge: unknown strategy %q", path, n.Merge)
	}
	return validateChildren(n, path)
}

func validateSaga(n *Node, path string) error {
	for i, step := range n.Steps {
		if step.Action == "" {
			return fmt.Errorf("%s.steps[%d].action: must not be empty", path, i)
		}
	}
	return nil
}

func validateChaos(n *Node, path string) error {
	for i, st := range n.Strategies {
		spath := fmt.Sprintf("%s.strategies[%d]", path, i)
		switch st.Type {
		case "failure", "latency", "exception":
		case "resource":
			switch st.Resource {
			case "", "memory", "cpu":
			default:
				return fmt.Errorf("%s.resource: unknown resource %q", spath, st.Resource)
			}
		case "":
			return fmt.Errorf("%s.type: must not be empty", spath)
		default:
			return fmt.Errorf("%s.type: unknown type %q", spath, st.Type)
		}
	}
	return validateBody(n, path)
}

func validateScript(n *Node, path string) error {
	if n.Source == "" && n.File == "" {
		return fmt.Errorf("%s: needs source or file", path)
	}
	if n.Source != "" && n.File != "" {
		return fmt.Errorf("%s: source and file are mutually exclusive", path)
	}
	return nil
}

func validateTemplate(n *Node, path string) error {
	if n.Template == "" {
		return fmt.Errorf("%s.template: must not be empty", path)
	}
	if n.OutputKey == "" {
		return fmt.Errorf("%s.output_key: must not be empty", path)
	}
	return nil
}
