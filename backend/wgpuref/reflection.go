// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package wgpuref

import "github.com/cflux/fgraph/driver"

// reflectedPipeline is a driver.PipelineReflection built from a static
// table of named bindings, the simplest reflection a backend can
// offer: wgpu's bind-group-layout reflection would normally populate
// this table from the shader module's reflection data, but wiring that
// parse step is outside wgpuref's scope as a core-testing reference
// backend. Callers construct one with NewReflection and the binding
// names their shaders actually declare.
type reflectedPipeline struct {
	byKey  map[driver.BindingKey]driver.ResourceBindingPath
	byPath map[driver.ResourceBindingPath]driver.ArgumentReflection
}

// NewReflection returns a PipelineReflection naming each of bindings,
// assigning a ResourceBindingPath to each in order.
func NewReflection(bindings []BindingDecl) driver.PipelineReflection {
	p := &reflectedPipeline{
		byKey:  make(map[driver.BindingKey]driver.ResourceBindingPath, len(bindings)),
		byPath: make(map[driver.ResourceBindingPath]driver.ArgumentReflection, len(bindings)),
	}
	for i, b := range bindings {
		path := driver.ResourceBindingPath(i + 1)
		p.byKey[driver.BindingKey{Name: b.Name}] = path
		p.byPath[path] = driver.ArgumentReflection{
			Type:         b.Type,
			BindingPath:  path,
			UsageType:    b.Usage,
			ActiveStages: b.Stages,
		}
	}
	return p
}

// BindingDecl describes one binding a reflectedPipeline should report
// as active.
type BindingDecl struct {
	Name   string
	Type   driver.ResourceType
	Usage  driver.ArgumentUsageType
	Stages driver.Stage
}

func (p *reflectedPipeline) BindingPathForKey(key driver.BindingKey) (driver.ResourceBindingPath, bool) {
	path, ok := p.byKey[key]
	return path, ok
}

func (p *reflectedPipeline) BindingPathForArgumentBuffer(pathInOriginal, newArgumentBufferPath driver.ResourceBindingPath) driver.ResourceBindingPath {
	return pathInOriginal
}

func (p *reflectedPipeline) ArgumentReflection(path driver.ResourceBindingPath) (driver.ArgumentReflection, bool) {
	r, ok := p.byPath[path]
	return r, ok
}

func (p *reflectedPipeline) BindingIsActive(path driver.ResourceBindingPath) bool {
	_, ok := p.byPath[path]
	return ok
}

func (p *reflectedPipeline) ArgumentBufferEncoder(path driver.ResourceBindingPath) any {
	return nil
}
