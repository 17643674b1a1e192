package codec

import "encoding/json"

// JSON matches the layout other services write for the same keys
// (e.g. `["id1","id2"]` for an identifier list).
type JSON[V any] struct{}

func (JSON[V]) Tag() byte                  { return TagJSON }
func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
