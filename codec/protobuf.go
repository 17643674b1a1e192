package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.Item { return &mypb.Item{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Tag() byte { return TagProtobuf }

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// Strings stores a []string as a google.protobuf.ListValue of string values.
//
// An empty list marshals to zero bytes, which providers report as an empty
// value; pair it with framed entries so empty lists still read back as hits.
type Strings struct{}

var listCodec = NewProtobuf(func() *structpb.ListValue { return &structpb.ListValue{} })

func (Strings) Tag() byte { return TagProtobuf }

func (Strings) Encode(ids []string) ([]byte, error) {
	lv := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(ids))}
	for _, id := range ids {
		lv.Values = append(lv.Values, structpb.NewStringValue(id))
	}
	return listCodec.Encode(lv)
}

func (Strings) Decode(b []byte) ([]string, error) {
	lv, err := listCodec.Decode(b)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lv.GetValues()))
	for i, v := range lv.GetValues() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("codec: list element %d is not a string", i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}
