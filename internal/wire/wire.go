package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindValue byte = 1

	headerLen = 4 + 1 + 1 + 1 + 4
)

var (
	ErrCorrupt = errors.New("feedcache: corrupt entry")
	magic4     = [...]byte{'F', 'D', 'C', 'H'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// IsFramed reports whether b starts with the frame magic.
func IsFramed(b []byte) bool { return hasMagic(b) }

// Value: magic(4) | ver(1) | kind(1=value) | codec(1) | vlen(u32 be) | payload(vlen)
//
// codec is the tag of the codec that produced payload; 0 means untagged.
func EncodeValue(codec byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindValue)
	buf.WriteByte(codec)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeValue returns the codec tag and a slice of b holding the payload.
// Trailing bytes after the announced payload are rejected.
func DecodeValue(b []byte) (codec byte, payload []byte, err error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindValue {
		return 0, nil, ErrCorrupt
	}
	codec = b[6]

	off := 7
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return 0, nil, ErrCorrupt
	}
	return codec, b[off : off+vlen], nil
}
