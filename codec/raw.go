package codec

import "fmt"

// Raw is an identity codec for []byte values: cache exactly the bytes a
// transport returned without re-encoding them. Marshal accepts []byte and
// Unmarshal targets *[]byte; anything else is a caller bug.
type Raw struct{}

func (Raw) Marshal(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case *[]byte:
		return *b, nil
	default:
		return nil, fmt.Errorf("codec: Raw cannot encode %T", v)
	}
}

func (Raw) Unmarshal(b []byte, v any) error {
	out, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("codec: Raw cannot decode into %T", v)
	}
	*out = append([]byte(nil), b...)
	return nil
}
