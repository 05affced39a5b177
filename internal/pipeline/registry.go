package pipeline

import (
	"github.com/rotisserie/eris"
)

// Registry maps stage names to their implementations, preserving the
// fixed pipeline order.
type Registry struct {
	stages map[string]Stage
	order  []string
}

// NewRegistry creates a registry populated with all pipeline stages in
// execution order.
func NewRegistry() *Registry {
	r := &Registry{stages: make(map[string]Stage)}

	r.Register(&scheduleStage{})
	r.Register(&rostersStage{})
	r.Register(&playByPlayStage{})
	r.Register(&gameStatesStage{})
	r.Register(&boxScoresStage{})
	r.Register(&oddsStage{})
	r.Register(&injuriesStage{})
	r.Register(&handoffStage{})

	return r
}

// Register adds a stage to the registry.
func (r *Registry) Register(s Stage) {
	name := s.Name()
	r.stages[name] = s
	r.order = append(r.order, name)
}

// Get returns a stage by name.
func (r *Registry) Get(name string) (Stage, error) {
	s, ok := r.stages[name]
	if !ok {
		return nil, eris.Errorf("pipeline: unknown stage %q", name)
	}
	return s, nil
}

// Select returns the named stages in pipeline order, or every stage
// when names is empty. Selection never reorders: a subset still runs in
// the fixed stage order.
func (r *Registry) Select(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		want[name] = true
	}

	var result []Stage
	for _, name := range r.order {
		if want[name] {
			result = append(result, r.stages[name])
		}
	}
	return result, nil
}

// All returns every stage in pipeline order.
func (r *Registry) All() []Stage {
	result := make([]Stage, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.stages[name])
	}
	return result
}

// AllNames returns every registered stage name in pipeline order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
