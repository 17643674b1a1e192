package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Tagged is implemented by codecs that identify their wire format with a
// single byte. Framed cache entries carry the tag so a reader configured with
// a different codec treats the entry as foreign instead of mis-decoding it.
type Tagged interface {
	Tag() byte
}

const (
	TagNone     byte = 0
	TagJSON     byte = 1
	TagMsgpack  byte = 2
	TagCBOR     byte = 3
	TagProtobuf byte = 4
)

// TagOf returns c's tag, or TagNone when c is not Tagged.
func TagOf(c any) byte {
	if t, ok := c.(Tagged); ok {
		return t.Tag()
	}
	return TagNone
}

// ByName returns an identifier-list codec by its configuration name.
// Accepted names: "json" (default for ""), "msgpack", "cbor", "protobuf".
func ByName(name string) (Codec[[]string], error) {
	switch name {
	case "", "json":
		return JSON[[]string]{}, nil
	case "msgpack":
		return Msgpack[[]string]{}, nil
	case "cbor":
		c, err := NewCBOR[[]string](true)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "protobuf":
		return Strings{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
