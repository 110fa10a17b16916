// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may hold backend memory that is
// not managed by the Go garbage collector, so Destroy must be called
// explicitly to ensure it is released.
type Destroyer interface {
	Destroy()
}

// Stage is a mask of programmable shader stages.
type Stage uint8

// Stages.
const (
	StageVertex Stage = 1 << iota
	StageFragment
	StageCompute
	StageAll Stage = 1<<iota - 1
)

// Buffer is the opaque backend-side handle for a host or device buffer.
// The core never dereferences it; it only threads it through command
// payloads and usage records.
type Buffer any

// Texture is the opaque backend-side handle for an image resource.
type Texture any

// ArgumentBufferHandle is the opaque backend-side handle for an argument
// buffer (a GPU-side table of resource references).
type ArgumentBufferHandle any

// Heap is the opaque backend-side handle for a heap.
type Heap any

// Sampler is the opaque backend-side handle for a sampler.
type Sampler any

// ResourceBindingPath is an opaque token naming a binding slot, returned
// by a PipelineReflection. Two paths compare equal iff they name the
// same slot in the same pipeline.
type ResourceBindingPath uint64

// BindingKey identifies a pending bind before it has been resolved to a
// ResourceBindingPath by the active pipeline's reflection. It is a
// user-facing name (e.g. a shader parameter index), not a backend path.
type BindingKey struct {
	// Name is the shader-visible binding name, or empty if Index alone
	// identifies the slot.
	Name string
	// Index is the binding index within Name's binding (for arrays of
	// resources bound to a single slot).
	Index int
	// ArgumentBufferPath, if non-zero, scopes the key to a path inside
	// an already-bound argument buffer rather than the pipeline's top
	// level binding space.
	ArgumentBufferPath ResourceBindingPath
	HasArgumentBuffer  bool
}

// ArgumentUsageType mirrors usage.Type for a single reflected binding,
// duplicated here (rather than importing package usage, which itself
// imports driver) to keep the dependency graph a DAG as required by
// spec.md §2's leaves-first ordering.
type ArgumentUsageType int

// Reflected usage types relevant to a resolved binding.
const (
	ArgRead ArgumentUsageType = iota
	ArgWrite
	ArgReadWrite
	ArgSampler
	ArgInputAttachment
	ArgConstantBuffer
)

// ArgumentReflection describes what the backend's pipeline reflection
// knows about a single ResourceBindingPath.
type ArgumentReflection struct {
	Type         ResourceType
	BindingPath  ResourceBindingPath
	UsageType    ArgumentUsageType
	ActiveStages Stage
	// ActiveRange, for a texture binding, restricts
	// the binding to a sub-resource range rather than the whole
	// resource. Buffer bindings use it for a byte range. Nil means the
	// whole resource is covered.
	ActiveRange any
}

// PipelineReflection is supplied by the backend for a specific pipeline
// (graphics or compute) and answers the binding-resolution queries the
// command recorder needs (spec.md §6).
type PipelineReflection interface {
	// BindingPathForKey resolves a BindingKey to a ResourceBindingPath.
	// ok is false if the key does not name an active binding of this
	// pipeline (this is not an error: the bind stays pending).
	BindingPathForKey(key BindingKey) (path ResourceBindingPath, ok bool)

	// BindingPathForArgumentBuffer resolves a path that is known within
	// one argument buffer's own reflection into the path it occupies
	// when that argument buffer is itself bound at newPath.
	BindingPathForArgumentBuffer(pathInOriginal, newArgumentBufferPath ResourceBindingPath) ResourceBindingPath

	// ArgumentReflection returns reflection data for path, or ok=false
	// if path does not resolve to an active binding.
	ArgumentReflection(path ResourceBindingPath) (ArgumentReflection, bool)

	// BindingIsActive reports whether path currently names an active
	// binding (a pipeline recompile/specialization can deactivate a
	// previously-active path).
	BindingIsActive(path ResourceBindingPath) bool

	// ArgumentBufferEncoder returns an opaque backend handle used to
	// populate an argument buffer's contents for the argument buffer
	// bound at path. The core treats it as an inert token to pass back
	// to the backend.
	ArgumentBufferEncoder(path ResourceBindingPath) any
}

// Limits describes backend-implementation limits, immutable for the
// lifetime of a RenderBackend.
type Limits struct {
	MaxQueues             int
	MaxArgumentBufferSlots int
	MaxInflightFrames     int
	ThreadExecutionWidth  int
}

// RenderBackend is the interface the FrameGraph core consumes to
// materialize transient resources, insert barriers, and schedule work
// (spec.md §6). It is supplied by a concrete Metal/Vulkan/D3D12
// implementation, which is out of this module's scope; only the
// interface itself, and a thin reference implementation for testing
// (backend/wgpuref), live here.
type RenderBackend interface {
	// MaterialisePersistentTexture/Buffer allocate backend storage for
	// a persistent registry slot that has not yet been realized.
	MaterialisePersistentTexture(desc *TextureDescriptor) (Texture, error)
	MaterialisePersistentBuffer(desc *BufferDescriptor) (Buffer, error)

	// RegisterExternalResource adopts a backend-native resource (created
	// outside the core, e.g. by an interop layer) as a Buffer or Texture
	// for the purposes of usage tracking.
	RegisterExternalResource(native any) (Buffer, error)

	// RegisterWindowTexture adopts a swapchain drawable as a Texture for
	// the duration of one frame.
	RegisterWindowTexture(native any) (Texture, error)

	// BufferContents returns a raw byte slice over a host-visible
	// buffer's backing store, or nil if the buffer is not host visible.
	BufferContents(buf Buffer, offset, length int64) []byte

	// BufferDidModifyRange informs the backend that the CPU wrote
	// [offset, offset+length) of buf and any platform-specific flush
	// (e.g. for StorageManaged memory) must happen before GPU access.
	BufferDidModifyRange(buf Buffer, offset, length int64)

	// CopyTextureRegion and ReplaceTextureRegion perform backend-side
	// texture blits/uploads outside of a recorded command stream (used
	// for resources materialized just-in-time).
	CopyTextureRegion(src Texture, dst Texture) error
	ReplaceTextureRegion(dst Texture, level, slice int, data []byte) error

	// RenderPipelineReflection and ComputePipelineReflection return the
	// PipelineReflection for an opaque, backend-created pipeline state
	// object.
	RenderPipelineReflection(pipeline any) PipelineReflection
	ComputePipelineReflection(pipeline any) PipelineReflection

	// DisposeBuffer, DisposeTexture, DisposeArgumentBuffer,
	// DisposeArgumentBufferArray and DisposeHeap release backend storage
	// for a slot freed by a registry.
	DisposeBuffer(Buffer)
	DisposeTexture(Texture)
	DisposeArgumentBuffer(ArgumentBufferHandle)
	DisposeArgumentBufferArray(ArgumentBufferHandle)
	DisposeHeap(Heap)

	// BackingResource returns the backend-native object underlying a
	// Buffer/Texture/Heap, for interop with non-core code.
	BackingResource(resource any) any

	// IsDepth24Stencil8Supported reports whether the combined
	// depth24/stencil8 PixelFmt is supported.
	IsDepth24Stencil8Supported() bool

	// ThreadExecutionWidth returns the backend's SIMD/warp/wavefront
	// width, used by the core only to size dispatch-related metadata;
	// it performs no scheduling itself.
	ThreadExecutionWidth() int

	// MaxInflightFrames returns how many frames' worth of GPU work may
	// be outstanding at once.
	MaxInflightFrames() int

	// ArgumentBufferPath returns the ResourceBindingPath at which
	// argument buffer index is expected to be bound for the given
	// stages, independent of any particular pipeline's reflection.
	ArgumentBufferPath(index int, stages Stage) ResourceBindingPath

	// PushConstantPath returns the ResourceBindingPath used for inline
	// ("push constant"/setBytes) data.
	PushConstantPath() ResourceBindingPath

	// Limits returns the backend's implementation limits.
	Limits() Limits
}
