package schema

import (
	"encoding/json"
	"fmt"
)

// Settings is the tagged union of per-type settings payloads. Exactly
// one variant exists per registered type; unrecognized tags decode to
// RawSettings so new server-side types degrade to a key/value view.
type Settings interface {
	TypeTag() string
}

type HTTPSettings struct {
	Method         string `json:"method"`
	Timeout        int    `json:"timeout"`
	ExpectedStatus int    `json:"expected_status"`
}

func (HTTPSettings) TypeTag() string { return "http" }

type PingSettings struct {
	Count   int `json:"count"`
	Timeout int `json:"timeout"`
}

func (PingSettings) TypeTag() string { return "ping" }

// RawSettings carries the payload of an unregistered monitor type
// verbatim.
type RawSettings struct {
	Tag    string
	Values map[string]any
}

func (r RawSettings) TypeTag() string { return r.Tag }

// Decode interprets a raw settings map as the variant registered for
// the type tag.
func Decode(typeTag string, raw map[string]any) (Settings, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode settings for %q: %w", typeTag, err)
	}

	switch typeTag {
	case "http":
		var s HTTPSettings
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode http settings: %w", err)
		}
		return s, nil
	case "ping":
		var s PingSettings
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode ping settings: %w", err)
		}
		return s, nil
	default:
		values := make(map[string]any, len(raw))
		for k, v := range raw {
			values[k] = v
		}
		return RawSettings{Tag: typeTag, Values: values}, nil
	}
}
