// Package codec provides the serialization strategies used for cached
// values. A single Codec instance serves every value type a client caches,
// so the interface works over any rather than a type parameter.
package codec

// Codec encodes/decodes cached values to []byte for storage.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
