package zipkit

// Method identifies how a member's data is transformed on the wire.
// The values are the ZIP compression method codes.
type Method uint16

const (
	// MethodStore writes data without compression.
	MethodStore Method = 0

	// MethodDeflate writes data as a raw deflate stream (no zlib wrapper).
	MethodDeflate Method = 8
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}
