package derived

import (
	"encoding/json"
	"math"
	"strconv"
)

// floats encodes undefined values (warm-up NaNs) as null.
type floats []float64

func (f floats) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(f)*8)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

func (f *floats) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(floats, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*f = out
	return nil
}

func (l Line) MarshalJSON() ([]byte, error) {
	type line Line
	return json.Marshal(struct {
		line
		X      floats `json:"x,omitempty"`
		Values floats `json:"values"`
		Lower  floats `json:"lower,omitempty"`
	}{line(l), l.X, l.Values, l.Lower})
}

func (l *Line) UnmarshalJSON(data []byte) error {
	type line Line
	aux := struct {
		*line
		X      floats `json:"x,omitempty"`
		Values floats `json:"values"`
		Lower  floats `json:"lower,omitempty"`
	}{line: (*line)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.X, l.Values, l.Lower = aux.X, aux.Values, aux.Lower
	return nil
}
