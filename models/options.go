package models

// Codec selects the lossless video backend used by the writer (C8).
type Codec string

const (
	CodecFFV1    Codec = "ffv1"
	CodecH264RGB Codec = "h264rgb"
)

// IsValid reports whether c is one of the supported lossless codecs.
func (c Codec) IsValid() bool {
	return c == CodecFFV1 || c == CodecH264RGB
}

// String returns the string representation of the codec.
func (c Codec) String() string {
	return string(c)
}

// ProgressFunc is invoked synchronously, on the caller's goroutine, at
// coarse intervals during embed/extract. done <= total always holds, and
// done == total on completion. It must not block indefinitely.
type ProgressFunc func(done, total int)

// EmbedOptions configures an embed operation shared by the image and video
// carriers.
type EmbedOptions struct {
	Password string
	LSB      int // 1, 2 or 3
	Spread   bool

	UseECC bool
	NSym   int // parity symbols per RS block, 1..254 (255 is rejected with ErrEccUnavailable), only when UseECC

	OrigFileName string // stored in the inner frame; empty for a raw message

	// ChunkFrames and Codec only apply to video embeds.
	ChunkFrames int
	Codec       Codec

	Progress ProgressFunc
}

// ExtractOptions configures an extract operation shared by the image and
// video carriers.
type ExtractOptions struct {
	Password string
	LSB      int // density to try first; auto-detect still tries the others
	Spread   bool

	UseECC bool
	NSym   int

	// ChunkFrames only applies to video extracts. Without Spread it may
	// differ from the value used at embed time. With Spread, a different
	// value gives the same result only when it splits the body frames into
	// the same batches the embed did (for example, the embed wrote its whole
	// body in one chunk and this value is at least that chunk's frame
	// count); otherwise the body permutation differs and extraction fails.
	ChunkFrames int

	Progress ProgressFunc
}

// Metadata is returned alongside the recovered secret bytes.
type Metadata struct {
	Filename string // empty when the embedded payload was a raw message
	HasName  bool
}

// CapacityResult reports the maximum secret payload size, in bytes, a
// carrier can hold at each supported LSB density once the fixed overhead
// (transport header + salt + nonce + tag, and the inner frame's fixed
// fields) is subtracted.
type CapacityResult struct {
	OneLSB   int
	TwoLSB   int
	ThreeLSB int
}
