// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools defines the assistant's tool contract and registry.
//
// Tools are deliberately simple: one string in, one string out, and the
// result is always an observation the model can read. A tool never returns
// a Go error; failures are reported inside the observation text so the
// reasoning loop can recover from them.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
)

// Func executes a tool. Input is the raw action input produced by the
// model. The returned string is the observation, including any error text.
type Func func(ctx context.Context, input string) string

// Spec describes one registered tool. Description is shown verbatim to the
// model, so it should state the expected input format.
type Spec struct {
	Name        string
	Description string
	Func        Func
}

// Registry holds the tools available to an assistant. It is safe for
// concurrent use; registration normally happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Spec
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Spec)}
}

// Register adds a tool. Names are case-sensitive and must be unique.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return ferrors.New(ferrors.CodeInvalidInput, "tool name is required", nil)
	}
	if spec.Func == nil {
		return ferrors.New(ferrors.CodeInvalidInput,
			fmt.Sprintf("tool %s has no function", spec.Name), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; exists {
		return ferrors.New(ferrors.CodeInvalidInput,
			fmt.Sprintf("tool %s is already registered", spec.Name), nil)
	}
	r.tools[spec.Name] = spec
	return nil
}

// MustRegister registers a tool and panics on error. For startup wiring.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Lookup returns the spec for name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tools[name]
	return spec, ok
}

// Invoke runs the named tool and returns its observation. An unknown name
// is the only error case; tool execution itself cannot fail. A panicking
// tool is recovered and reported as an observation.
func (r *Registry) Invoke(ctx context.Context, name, input string) (observation string, err error) {
	spec, ok := r.Lookup(name)
	if !ok {
		return "", ferrors.New(ferrors.CodeNotFound,
			fmt.Sprintf("unknown tool: %s", name), nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			observation = fmt.Sprintf("Error: tool %s failed: %v", name, rec)
			err = nil
		}
	}()

	return spec.Func(ctx, input), nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the registered tools ordered by name.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.tools))
	for _, spec := range r.tools {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
