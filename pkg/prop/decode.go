package prop

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode derives a prop of T by decoding every map value of p with
// mapstructure, typically the output of Dict. Errors of p and decode
// failures both land in the derived prop's error slot.
func Decode[T any](p *Prop[map[string]any]) *Prop[T] {
	return Map(p, func(c Cell[map[string]any]) (T, error) {
		var out T
		m, err := c.Unwrap()
		if err != nil {
			return out, err
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: false,
			ZeroFields:       true,
		})
		if err != nil {
			return out, fmt.Errorf("prop: decode: %w", err)
		}
		if err := dec.Decode(m); err != nil {
			return out, fmt.Errorf("prop: decode: %w", err)
		}
		return out, nil
	})
}
