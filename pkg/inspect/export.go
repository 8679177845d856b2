package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Format is an output format of the report.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, yaml or json)", s)
}

// Write emits the report in the given format.
func Write(w io.Writer, r Report, f Format) error {
	if f == FormatText || f == "" {
		return Render(w, r)
	}
	return Export(w, r, f)
}

// Export encodes the report as YAML or JSON.
func Export(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
	return fmt.Errorf("cannot export as %q", f)
}

// jsonFloat encodes NaN and infinities as strings, which encoding/json
// rejects as numbers.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	var values []jsonFloat
	if len(e.Values) > 0 {
		values = make([]jsonFloat, len(e.Values))
		for i, v := range e.Values {
			values[i] = jsonFloat(v)
		}
	}
	return json.Marshal(struct {
		plain
		Values []jsonFloat `json:"values,omitempty"`
	}{plain(e), values})
}

func (p RewardPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Frame int       `json:"frame"`
		Value jsonFloat `json:"value"`
	}{p.Frame, jsonFloat(p.Value)})
}
