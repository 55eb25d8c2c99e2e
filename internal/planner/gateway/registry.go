package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"

	"github.com/tripflow-core/server/internal/planner/model"
)

// Registration couples an invocable tool with its parameter schema,
// per-tool timeout and date-typed parameter declarations. New tools
// register by name; nothing else couples them to the state machine.
type Registration struct {
	Tool    tool.InvokableTool
	Schema  string
	Timeout time.Duration
	Dates   model.DateSpec
}

// Registry maps tool names to registrations.
type Registry struct {
	entries map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]Registration{}}
}

// Register adds a tool under the given name. Re-registering a name is
// a wiring bug and fails loudly.
func (r *Registry) Register(name string, reg Registration) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if reg.Tool == nil {
		return fmt.Errorf("tool %q is nil", name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.entries[name] = reg
	return nil
}

// MustRegister panics on a registration error; intended for wiring in main.
func (r *Registry) MustRegister(name string, reg Registration) {
	if err := r.Register(name, reg); err != nil {
		panic(err)
	}
}

// DateSpecs returns the date parameter declarations per tool, for the
// normalizer pass that precedes every dispatch.
func (r *Registry) DateSpecs() map[string]model.DateSpec {
	out := make(map[string]model.DateSpec, len(r.entries))
	for name, reg := range r.entries {
		out[name] = reg.Dates
	}
	return out
}

func (r *Registry) lookup(name string) (Registration, bool) {
	reg, ok := r.entries[name]
	return reg, ok
}
