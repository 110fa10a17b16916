// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package wgpuref is a thin driver.RenderBackend implementation over
// github.com/gogpu/wgpu, used to exercise the FrameGraph core against
// a real (if software/portable) GPU stack in integration tests. It is
// not a production Metal/Vulkan/D3D12 backend — spec.md §1 explicitly
// scopes those out — only a reference target so the core's
// RenderBackend/PipelineReflection contracts have at least one
// concrete, runnable implementation to test against.
package wgpuref

import (
	"errors"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu"

	"github.com/cflux/fgraph/driver"
)

// Backend adapts a wgpu.Device (reached through a gpucontext.DeviceProvider,
// the same host/GPU-library integration point github.com/gogpu/gg uses) to
// driver.RenderBackend.
type Backend struct {
	provider gpucontext.DeviceProvider
	device   *wgpu.Device

	mu       sync.Mutex
	buffers  map[driver.Buffer]*wgpu.Buffer
	textures map[driver.Texture]*wgpu.Texture
}

// New returns a Backend driving the device provider gives access to.
func New(provider gpucontext.DeviceProvider, device *wgpu.Device) *Backend {
	return &Backend{
		provider: provider,
		device:   device,
		buffers:  make(map[driver.Buffer]*wgpu.Buffer),
		textures: make(map[driver.Texture]*wgpu.Texture),
	}
}

// pixelFormatTable maps the core's opaque driver.PixelFmt to a wgpu texture
// format. The core never interprets PixelFmt itself (spec.md §1); this
// table is the one place in the module that does, and only because
// this package is a concrete backend rather than core logic.
var pixelFormatTable = map[driver.PixelFmt]wgpu.TextureFormat{}

// RegisterPixelFormat associates a driver.PixelFmt value used by the
// caller's resource descriptors with a gputypes texture format
// constant (wgpu.TextureFormatRGBA8Unorm and friends). Call this
// during backend setup, before any TextureDescriptor using fmt is
// materialized.
func RegisterPixelFormat(fmt driver.PixelFmt, wgpuFormat wgpu.TextureFormat) {
	pixelFormatTable[fmt] = wgpuFormat
}

func bufferUsage(u driver.Usage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&driver.UConstant != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&driver.UVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&driver.UIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&driver.UIndirect != 0 {
		out |= wgpu.BufferUsageIndirect
	}
	if u&(driver.UShaderRead|driver.UShaderWrite) != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&driver.UBlitSource != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&driver.UBlitDestination != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

// MaterialisePersistentBuffer implements driver.RenderBackend.
func (b *Backend) MaterialisePersistentBuffer(desc *driver.BufferDescriptor) (driver.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  uint64(desc.Length),
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := driver.Buffer(buf)
	b.buffers[handle] = buf
	return handle, nil
}

// MaterialisePersistentTexture implements driver.RenderBackend.
func (b *Backend) MaterialisePersistentTexture(desc *driver.TextureDescriptor) (driver.Texture, error) {
	format, ok := pixelFormatTable[desc.PixelFormat]
	if !ok {
		return nil, errors.New("wgpuref: unregistered PixelFmt; call RegisterPixelFormat first")
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:  "",
		Format: format,
	})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := driver.Texture(tex)
	b.textures[handle] = tex
	return handle, nil
}

// RegisterExternalResource implements driver.RenderBackend. wgpuref has
// no interop surface of its own (it is a reference/test backend, not a
// window-system integration), so it always fails.
func (b *Backend) RegisterExternalResource(native any) (driver.Buffer, error) {
	return nil, errors.New("wgpuref: external resource interop is not supported")
}

// RegisterWindowTexture implements driver.RenderBackend, for the same
// reason as RegisterExternalResource.
func (b *Backend) RegisterWindowTexture(native any) (driver.Texture, error) {
	return nil, errors.New("wgpuref: window texture interop is not supported")
}

// BufferContents implements driver.RenderBackend. wgpuref does not
// expose a persistent host mapping; callers needing CPU access should
// use a StorageShared buffer and a separate map/unmap round-trip,
// which this reference backend does not yet wire up.
func (b *Backend) BufferContents(buf driver.Buffer, offset, length int64) []byte { return nil }

// BufferDidModifyRange implements driver.RenderBackend as a no-op:
// wgpu's write path already goes through an explicit queue write, so
// there is no separate CPU-cache-flush step to perform here.
func (b *Backend) BufferDidModifyRange(buf driver.Buffer, offset, length int64) {}

// CopyTextureRegion implements driver.RenderBackend.
func (b *Backend) CopyTextureRegion(src, dst driver.Texture) error {
	return errors.New("wgpuref: out-of-band texture copy not yet implemented")
}

// ReplaceTextureRegion implements driver.RenderBackend.
func (b *Backend) ReplaceTextureRegion(dst driver.Texture, level, slice int, data []byte) error {
	return errors.New("wgpuref: out-of-band texture upload not yet implemented")
}

// RenderPipelineReflection implements driver.RenderBackend.
func (b *Backend) RenderPipelineReflection(pipeline any) driver.PipelineReflection {
	if p, ok := pipeline.(*reflectedPipeline); ok {
		return p
	}
	return nil
}

// ComputePipelineReflection implements driver.RenderBackend.
func (b *Backend) ComputePipelineReflection(pipeline any) driver.PipelineReflection {
	if p, ok := pipeline.(*reflectedPipeline); ok {
		return p
	}
	return nil
}

// DisposeBuffer implements driver.RenderBackend.
func (b *Backend) DisposeBuffer(buf driver.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.buffers[buf]; ok {
		w.Release()
		delete(b.buffers, buf)
	}
}

// DisposeTexture implements driver.RenderBackend.
func (b *Backend) DisposeTexture(tex driver.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.textures, tex)
}

// DisposeArgumentBuffer, DisposeArgumentBufferArray and DisposeHeap
// implement driver.RenderBackend. wgpuref has no heap/argument-buffer
// concept of its own — wgpu resolves bind groups per-draw rather than
// through a persistent argument buffer — so these are no-ops.
func (b *Backend) DisposeArgumentBuffer(driver.ArgumentBufferHandle)      {}
func (b *Backend) DisposeArgumentBufferArray(driver.ArgumentBufferHandle) {}
func (b *Backend) DisposeHeap(driver.Heap)                                {}

// BackingResource implements driver.RenderBackend. resource is expected
// to be a driver.Buffer or driver.Texture previously returned by
// MaterialisePersistentBuffer/Texture; it is looked up by identity
// rather than by a type switch, since both are aliases of any and a
// type switch over them cannot distinguish one from the other.
func (b *Backend) BackingResource(resource any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.buffers[resource]; ok {
		return w
	}
	if w, ok := b.textures[resource]; ok {
		return w
	}
	return nil
}

// IsDepth24Stencil8Supported implements driver.RenderBackend.
func (b *Backend) IsDepth24Stencil8Supported() bool { return false }

// ThreadExecutionWidth implements driver.RenderBackend. wgpu does not
// expose a SIMD-width query; 32 matches the common warp/wavefront size
// across the desktop GPUs wgpu targets and is used only for dispatch
// metadata sizing, never scheduling.
func (b *Backend) ThreadExecutionWidth() int { return 32 }

// MaxInflightFrames implements driver.RenderBackend.
func (b *Backend) MaxInflightFrames() int { return 3 }

// ArgumentBufferPath implements driver.RenderBackend. wgpuref has no
// argument-buffer binding model, so it returns a path derived purely
// from index, with the top bit set so it never coincides with a path
// NewReflection assigns; PipelineReflection never reports it active, and
// binds against it stay pending (spec.md §4.D handles this gracefully).
func (b *Backend) ArgumentBufferPath(index int, stages driver.Stage) driver.ResourceBindingPath {
	return driver.ResourceBindingPath(1<<63 | uint64(index))
}

// PushConstantPath implements driver.RenderBackend. wgpu has no push
// constants in its portable subset; this path is likewise never
// reported active, since NewReflection numbers bindings from 1.
func (b *Backend) PushConstantPath() driver.ResourceBindingPath { return 0 }

// Limits implements driver.RenderBackend.
func (b *Backend) Limits() driver.Limits {
	l := b.device.Limits()
	return driver.Limits{
		MaxQueues:              1, // wgpu exposes a single queue per device.
		MaxArgumentBufferSlots: int(l.MaxBindGroups),
		MaxInflightFrames:      3,
		ThreadExecutionWidth:   32,
	}
}
