package audiocore

// Buffer pool tier boundaries and defaults. NewBufferPool substitutes the
// three tier sizes for zero-valued BufferPoolConfig size fields.
const (
	// DefaultSmallBufferSize is the small-tier allocation size in bytes.
	DefaultSmallBufferSize = 4 * 1024

	// DefaultMediumBufferSize is the medium-tier allocation size in bytes.
	DefaultMediumBufferSize = 64 * 1024

	// DefaultLargeBufferSize is the large-tier allocation size in bytes.
	DefaultLargeBufferSize = 1024 * 1024

	// DefaultMaxBuffersPerSize is a default value for MaxBuffersPerSize.
	// NewBufferPool does not substitute it for a zero MaxBuffersPerSize, and
	// the pool only logs MaxBuffersPerSize; no tier is capped by it.
	DefaultMaxBuffersPerSize = 256
)

// Gain clamp bounds applied by the filter graph builder before deciding
// whether to omit the gain node: present iff the clamped value falls
// strictly inside (GainClampMin, GainClampMax) (§4.D: "values are clamped
// to [0.0, 1.0] before this test").
const (
	GainClampMin = 0.0
	GainClampMax = 1.0
)
