package apitypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type Deadzones struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

type Device struct {
	Slot      int       `json:"slot"`
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Live      bool      `json:"live"`
	Deadzones Deadzones `json:"deadzones"`
}

type DevicesListResponse struct {
	Devices []Device `json:"devices"`
}

type DeviceCountResponse struct {
	Connected int `json:"connected"`
	Mapped    int `json:"mapped"`
}

type ControlState struct {
	Value    float64 `json:"value"`
	Prev     float64 `json:"prev"`
	HeldTics int     `json:"heldTics"`
	// HeldTime in milliseconds
	HeldTime int64 `json:"heldTime"`
}

type DeviceState struct {
	Slot      int                     `json:"slot"`
	Index     int                     `json:"index"`
	ID        string                  `json:"id"`
	Live      bool                    `json:"live"`
	Controls  map[string]ControlState `json:"controls"`
	DpadX     int                     `json:"dpadX"`
	DpadY     int                     `json:"dpadY"`
	Deadzones Deadzones               `json:"deadzones"`
}

type DeadzoneResponse struct {
	Slot      int       `json:"slot"`
	Deadzones Deadzones `json:"deadzones"`
}

// DeadzoneRequest accepts numbers, numeric strings and percentages,
// e.g. {"left":0.05,"right":"8%"}.
type DeadzoneRequest struct {
	Left  *float64 `json:"left,omitempty"`
	Right *float64 `json:"right,omitempty"`
}

func (d *DeadzoneRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Left  any `json:"left,omitempty"`
		Right any `json:"right,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Left != nil {
		v, err := parseFraction(raw.Left)
		if err != nil {
			return fmt.Errorf("left: %w", err)
		}
		d.Left = &v
	}
	if raw.Right != nil {
		v, err := parseFraction(raw.Right)
		if err != nil {
			return fmt.Errorf("right: %w", err)
		}
		d.Right = &v
	}
	return nil
}

func parseFraction(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		scale := 1.0
		if strings.HasSuffix(s, "%") {
			s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
			scale = 100
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric string %q: %w", val, err)
		}
		return f / scale, nil
	default:
		return 0, fmt.Errorf("expected number or numeric string, got %T", v)
	}
}

type Quirks struct {
	AxisDpad           bool `json:"axisDpad"`
	RudderShoulders    bool `json:"rudderShoulders"`
	SingleAxisDpadHack bool `json:"singleAxisDpadHack"`
}

type Mapping struct {
	ID     string `json:"id"`
	Record string `json:"record"`
	Quirks Quirks `json:"quirks"`
}

type MappingsListResponse struct {
	Mappings []Mapping `json:"mappings"`
}

type MappingExistsResponse struct {
	ID     string `json:"id"`
	Exists bool   `json:"exists"`
}

type MappingRemoveResponse struct {
	ID string `json:"id"`
}

type CalibrationStatus struct {
	Active    bool   `json:"active"`
	Index     int    `json:"index"`
	DeviceID  string `json:"deviceId"`
	Phase     string `json:"phase"`
	Step      int    `json:"step"`
	Control   string `json:"control,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Highlight string `json:"highlight"`
	Paused    bool   `json:"paused"`
	Done      bool   `json:"done"`
	Canceled  bool   `json:"canceled"`
	Quirks    Quirks `json:"quirks"`
}
