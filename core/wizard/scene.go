package wizard

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SceneID names one conversational flow.
type SceneID string

// StepID names one step within a scene. Jumps address steps by ID so scenes
// carry no magic index numbers.
type StepID string

// StepHandler processes one inbound event while its step is current. It may
// mutate the flow's state bag and must return a transition directive.
// Handlers returning Stay must be idempotent: the user may retry bad input
// any number of times without duplicating external side effects.
type StepHandler func(ctx context.Context, f *Flow, ev Event) (Directive, error)

// Step is a single named handler within a scene.
type Step struct {
	ID     StepID
	Handle StepHandler
}

// Scene is a named, ordered sequence of steps implementing one flow.
type Scene struct {
	ID    SceneID
	Steps []Step
}

func (s Scene) indexOf(id StepID) (int, bool) {
	for i, st := range s.Steps {
		if st.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Registry maps scene identifiers to their definitions. All scenes must be
// registered before the engine starts dispatching; the first dispatch freezes
// the registry, after which it is read-only.
type Registry struct {
	mu     sync.RWMutex
	scenes map[SceneID]Scene
	frozen bool
}

// NewRegistry creates an empty scene registry.
func NewRegistry() *Registry {
	return &Registry{scenes: make(map[SceneID]Scene)}
}

// Register validates and adds a scene.
func (r *Registry) Register(s Scene) error {
	if s.ID == "" {
		return fmt.Errorf("wizard: scene id must not be empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("wizard: scene %q has no steps", s.ID)
	}
	seen := make(map[StepID]struct{}, len(s.Steps))
	for i, st := range s.Steps {
		if st.ID == "" {
			return fmt.Errorf("wizard: scene %q step %d has no id", s.ID, i)
		}
		if st.Handle == nil {
			return fmt.Errorf("wizard: scene %q step %q has nil handler", s.ID, st.ID)
		}
		if _, dup := seen[st.ID]; dup {
			return fmt.Errorf("wizard: scene %q has duplicate step id %q", s.ID, st.ID)
		}
		seen[st.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register scene %q", ErrRegistryFrozen, s.ID)
	}
	if _, exists := r.scenes[s.ID]; exists {
		return fmt.Errorf("wizard: scene already registered: %s", s.ID)
	}
	r.scenes[s.ID] = s
	return nil
}

// Resolve returns the scene for the given id.
func (r *Registry) Resolve(id SceneID) (Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[id]
	if !ok {
		return Scene{}, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return s, nil
}

// List returns sorted scene ids (for diagnostics).
func (r *Registry) List() []SceneID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]SceneID, 0, len(r.scenes))
	for id := range r.scenes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}
