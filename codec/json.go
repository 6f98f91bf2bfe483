package codec

import "encoding/json"

// JSON is the default codec. Cached values come off JSON transports in the
// first place, so round-tripping through encoding/json preserves exactly
// what a fresh fetch would have produced.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, v any) error    { return json.Unmarshal(b, v) }
