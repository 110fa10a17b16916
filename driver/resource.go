// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// ResourceType is the type tag packed into a Handle, identifying which
// registry/arena a handle's index refers to.
type ResourceType uint8

// Resource types.
const (
	TBuffer ResourceType = iota
	TTexture
	TArgumentBuffer
	TArgumentBufferArray
	THeap
)

// String implements fmt.Stringer.
func (t ResourceType) String() string {
	switch t {
	case TBuffer:
		return "Buffer"
	case TTexture:
		return "Texture"
	case TArgumentBuffer:
		return "ArgumentBuffer"
	case TArgumentBufferArray:
		return "ArgumentBufferArray"
	case THeap:
		return "Heap"
	default:
		return "ResourceType(?)"
	}
}

// HandleFlags is a mask of bits carried alongside a Handle's index,
// generation and type tag.
type HandleFlags uint32

// Handle flags.
const (
	// FlagPersistent marks a handle as referring to a registry-backed
	// (persistent) resource rather than a per-frame transient one.
	FlagPersistent HandleFlags = 1 << iota
	// FlagWindowHandle marks a texture handle as backing a swapchain
	// drawable; such textures cannot be disposed directly by the core.
	FlagWindowHandle
	// FlagHistoryBuffer marks a resource that persists its previous
	// frame's contents for the previousFrame usage type.
	FlagHistoryBuffer
)

const (
	handleIndexBits = 29
	handleGenBits   = 8
	handleTypeBits  = 3
	handleFlagBits  = 64 - handleIndexBits - handleGenBits - handleTypeBits

	handleIndexMask = 1<<handleIndexBits - 1
	handleGenMask   = 1<<handleGenBits - 1
	handleTypeMask  = 1<<handleTypeBits - 1
	handleFlagMask  = 1<<handleFlagBits - 1

	handleIndexShift = 0
	handleGenShift   = handleIndexShift + handleIndexBits
	handleTypeShift  = handleGenShift + handleGenBits
	handleFlagShift  = handleTypeShift + handleTypeBits
)

// MaxResourceIndex is the largest index a Handle can carry.
const MaxResourceIndex = handleIndexMask

// MaxGeneration is the largest generation value before it wraps.
// spec.md §9 keeps the 8-bit width from the original implementation;
// widening it narrows MaxResourceIndex correspondingly.
const MaxGeneration = handleGenMask

// Handle is an opaque resource reference. It packs an index, a
// generation (to detect stale handles into a reused registry slot), a
// ResourceType tag, and a small set of HandleFlags, exactly as spec.md
// §3 describes. Index 0 is not reserved: the registries in this module
// hand out slot 0 like any other, so the zero Handle is not a sentinel.
type Handle uint64

// NewHandle packs index, generation, typ and flags into a Handle.
// It panics if index or generation overflow their bit fields.
func NewHandle(index int, generation uint8, typ ResourceType, flags HandleFlags) Handle {
	if index < 0 || index > MaxResourceIndex {
		panic("driver: resource index out of range")
	}
	if typ > handleTypeMask {
		panic("driver: resource type out of range")
	}
	h := uint64(index&handleIndexMask) << handleIndexShift
	h |= uint64(generation&handleGenMask) << handleGenShift
	h |= uint64(typ&handleTypeMask) << handleTypeShift
	h |= uint64(flags) & handleFlagMask << handleFlagShift
	return Handle(h)
}

// Index returns the packed resource index.
func (h Handle) Index() int { return int(h>>handleIndexShift) & handleIndexMask }

// Generation returns the packed generation counter.
func (h Handle) Generation() uint8 { return uint8(h>>handleGenShift) & handleGenMask }

// Type returns the packed ResourceType tag.
func (h Handle) Type() ResourceType { return ResourceType(h>>handleTypeShift) & handleTypeMask }

// Flags returns the packed HandleFlags.
func (h Handle) Flags() HandleFlags { return HandleFlags(h>>handleFlagShift) & handleFlagMask }

// IsPersistent reports whether h carries FlagPersistent.
func (h Handle) IsPersistent() bool { return h.Flags()&FlagPersistent != 0 }

// StorageMode is the type of memory a Buffer/Texture/Heap is allocated
// from.
type StorageMode int

// Storage modes.
const (
	// Shared memory is visible to both CPU and GPU without an explicit
	// synchronization step.
	StorageShared StorageMode = iota
	// Managed memory has a CPU-visible copy that must be flushed/synced
	// explicitly before GPU access observes CPU writes, or vice versa.
	StorageManaged
	// Private memory is GPU-only; CPU access requires a staging copy.
	StoragePrivate
)

// CacheMode hints at CPU cache behavior for host-visible memory.
type CacheMode int

// Cache modes.
const (
	CacheDefault CacheMode = iota
	CacheWriteCombined
)

// Usage is a mask of valid uses for a Buffer or Texture. Unlike Usage
// (the per-pass Usage record's Type, in package usage), this Usage is a
// descriptor-time hint telling the backend which access patterns to
// provision for; it never changes after allocation.
type Usage uint32

// Usage hint flags.
const (
	UShaderRead Usage = 1 << iota
	UShaderWrite
	UConstant // Buffer only.
	USample   // Texture only.
	UVertex   // Buffer only.
	UIndex    // Buffer only.
	URenderTarget // Texture only.
	UBlitSource
	UBlitDestination
	UIndirect // Buffer only.
	UArgument // referenced from an argument buffer.
	UGeneric  Usage = 1<<iota - 1
)

// PixelFmt describes the format of a texture's texels. Concrete format
// values are backend-defined; the core treats PixelFmt as an opaque
// comparable value per spec.md §1 ("pixel-format enumerations ...
// treated as opaque value types") and never interprets its bits.
type PixelFmt uint32

// PixelFmtSizer's PixelFmtSize returns the number of bytes a single
// texel of a PixelFmt occupies, as reported by the backend. The core only calls this to size staging
// copies; it never guesses a format's layout on its own.
type PixelFmtSizer interface {
	PixelFmtSize(PixelFmt) int
}

// VertexFmt describes the format of a vertex attribute. As with
// PixelFmt, the core treats this as an opaque backend-defined value.
type VertexFmt uint32

// TextureType is the dimensionality of a texture.
type TextureType int

// Texture types.
const (
	Texture1D TextureType = iota
	Texture2D
	Texture2DArray
	Texture2DMS
	TextureCube
	TextureCubeArray
	Texture3D
)

// IsCube reports whether t is TextureCube or TextureCubeArray.
func (t TextureType) IsCube() bool { return t == TextureCube || t == TextureCubeArray }

// BufferDescriptor describes a Buffer, immutable after allocation.
type BufferDescriptor struct {
	Length      int64
	StorageMode StorageMode
	CacheMode   CacheMode
	Usage       Usage
}

// TextureDescriptor describes a Texture, immutable after allocation.
type TextureDescriptor struct {
	Type              TextureType
	PixelFormat       PixelFmt
	Width, Height     int
	Depth             int
	MipmapLevelCount  int
	SampleCount       int
	ArrayLength       int
	StorageMode       StorageMode
	CacheMode         CacheMode
	Usage             Usage
}

// SlicesPerLevel returns arrayLength × depth × (6 if cube else 1), the
// number of texture slices contained in a single mip level.
func (d *TextureDescriptor) SlicesPerLevel() int {
	n := d.ArrayLength
	if n == 0 {
		n = 1
	}
	depth := d.Depth
	if depth == 0 {
		depth = 1
	}
	n *= depth
	if d.Type.IsCube() {
		n *= 6
	}
	return n
}

// SubresourceCount returns SlicesPerLevel × MipmapLevelCount, the total
// number of (slice, level) sub-resource cells in the texture.
func (d *TextureDescriptor) SubresourceCount() int {
	levels := d.MipmapLevelCount
	if levels == 0 {
		levels = 1
	}
	return d.SlicesPerLevel() * levels
}

// HeapDescriptor describes a Heap, a block of GPU memory from which
// other resources may be suballocated by the backend.
type HeapDescriptor struct {
	Size        int64
	StorageMode StorageMode
	CacheMode   CacheMode
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FilterNearest Filter = iota
	FilterLinear
)

// AddressMode is the type of sampler address modes.
type AddressMode int

// Address modes.
const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClampToEdge
)

// CompareFunc is the type of comparison functions used by depth/stencil
// tests and comparison samplers.
type CompareFunc int

// Comparison functions.
const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// SamplerDescriptor describes a Sampler.
type SamplerDescriptor struct {
	MinFilter, MagFilter, MipFilter Filter
	AddressU, AddressV, AddressW    AddressMode
	MaxAnisotropy                   int
	CompareFunction                 CompareFunc
	LodMinClamp, LodMaxClamp        float32
}
