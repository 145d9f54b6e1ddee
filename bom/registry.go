/*
Package bom provides the bill-of-materials registry.

PURPOSE:
  Maps a production process name to the input products/ratios it consumes and
  the output product/ratio it yields. The registry is an explicitly
  constructed, immutable configuration value injected into the production
  engine and the history reconstructor - never a package-level global.

WHY JSON?
  - Operators can adjust recipes without code changes
  - Easy to version-control the process catalogue
  - The built-in default catalogue doubles as documentation

JSON SCHEMA:
  {
    "processes": [
      {
        "name": "gift_set_assembly",
        "inputs": [
          {"product": "Soap (Ready)", "ratio": 5},
          {"product": "Gift Box Cardboard", "ratio": 1}
        ],
        "output_product": "Gift Set",
        "output_ratio": 1
      }
    ]
  }

USAGE:
  registry, err := bom.Parse(configJSON)
  process, ok := registry.Process("gift_set_assembly")

SEE ALSO:
  - inventory/production.go: Consumes the registry for transformations
  - ledger/history.go: Consumes it to synthesize production history
*/
package bom

import (
	"encoding/json"
	"fmt"
	"sort"
)

// =============================================================================
// PROCESS DEFINITION
// =============================================================================

// Input is one required ingredient: ratio units consumed per unit produced.
type Input struct {
	Product string  `json:"product"`
	Ratio   float64 `json:"ratio"`
}

// Process is one production recipe.
type Process struct {
	Name        string  `json:"name"`
	Inputs      []Input `json:"inputs"`
	Output      string  `json:"output_product"`
	OutputRatio float64 `json:"output_ratio"`
}

// Required returns the integer quantity of an input consumed when producing
// quantity units. Ratios multiply before truncation so fractional ratios
// (e.g. 0.5 labels per unit) accumulate correctly.
func (p Process) Required(input Input, quantity int64) int64 {
	return int64(input.Ratio * float64(quantity))
}

// Produced returns the output quantity for a run of quantity units.
func (p Process) Produced(quantity int64) int64 {
	return int64(p.OutputRatio * float64(quantity))
}

// ConsumesProduct reports whether name is one of the process inputs, and at
// what ratio.
func (p Process) ConsumesProduct(name string) (float64, bool) {
	for _, in := range p.Inputs {
		if in.Product == name {
			return in.Ratio, true
		}
	}
	return 0, false
}

// =============================================================================
// REGISTRY - Immutable process catalogue
// =============================================================================

// Registry is the immutable map of process name to recipe. Construct once at
// startup and inject where needed.
type Registry struct {
	processes map[string]Process
}

// New builds a registry from a process list. Duplicate names and malformed
// recipes are rejected at construction, not at use.
func New(processes []Process) (*Registry, error) {
	m := make(map[string]Process, len(processes))
	for _, p := range processes {
		if p.Name == "" {
			return nil, fmt.Errorf("process with empty name")
		}
		if _, dup := m[p.Name]; dup {
			return nil, fmt.Errorf("duplicate process %q", p.Name)
		}
		if p.Output == "" {
			return nil, fmt.Errorf("process %q has no output product", p.Name)
		}
		if p.OutputRatio <= 0 {
			return nil, fmt.Errorf("process %q has non-positive output ratio", p.Name)
		}
		if len(p.Inputs) == 0 {
			return nil, fmt.Errorf("process %q has no inputs", p.Name)
		}
		for _, in := range p.Inputs {
			if in.Product == "" || in.Ratio <= 0 {
				return nil, fmt.Errorf("process %q has malformed input %+v", p.Name, in)
			}
		}
		m[p.Name] = p
	}
	return &Registry{processes: m}, nil
}

// Parse builds a registry from its JSON document form.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Processes []Process `json:"processes"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse BOM config: %w", err)
	}
	return New(doc.Processes)
}

// Process looks up a recipe by name.
func (r *Registry) Process(name string) (Process, bool) {
	p, ok := r.processes[name]
	return p, ok
}

// Processes returns all recipes sorted by name.
func (r *Registry) Processes() []Process {
	out := make([]Process, 0, len(r.processes))
	for _, p := range r.processes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
