package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf serializes values implementing proto.Message. Values of any other
// type are a caller bug and fail loudly rather than silently mis-encoding.
type Protobuf struct{}

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Unmarshal(b []byte, v any) error {
	m, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return proto.Unmarshal(b, m)
}
