// Package codec is the concrete stand-in for the type-signature binary
// encoder and the other per-artifact (de)serializers the core treats as
// external collaborators: a pair of functions, encode: T -> bytes and
// decode: bytes -> T, per artifact kind. Backed by
// github.com/vmihailenco/msgpack/v5 rather than a hand-rolled format,
// since the store never needs to interpret these bytes itself — only
// produce and reproduce them faithfully.
package codec

import "github.com/vmihailenco/msgpack/v5"

// Encode serializes v into an opaque blob suitable for storing on a Parse
// record.
func Encode[T any](v T) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode is the inverse of Encode.
func Decode[T any](blob []byte) (T, error) {
	var v T
	err := msgpack.Unmarshal(blob, &v)
	return v, err
}
