package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Alia5/padmap/apitypes"
	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/registry"
	"github.com/Alia5/padmap/semantic"
)

func writeJSON(res *api.Response, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res.JSON = string(b)
	return nil
}

func parseSlot(req *api.Request) (int, error) {
	s, ok := req.Params["slot"]
	if !ok {
		return 0, api.ErrBadRequest("missing slot parameter")
	}
	slot, err := strconv.Atoi(s)
	if err != nil {
		return 0, api.ErrBadRequest(fmt.Sprintf("invalid slot: %v", err))
	}
	return slot, nil
}

func requireID(req *api.Request) (string, error) {
	id := strings.TrimSpace(req.Payload)
	if id == "" {
		return "", api.ErrBadRequest("missing controller id")
	}
	return id, nil
}

// apiError maps core errors onto problem responses.
func apiError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrSlotRange),
		errors.Is(err, semantic.ErrInvalidDeadzone):
		return api.ErrBadRequest(err.Error())
	case errors.Is(err, registry.ErrSlotEmpty),
		errors.Is(err, calibration.ErrNoDevice),
		errors.Is(err, engine.ErrNoSession):
		return api.ErrNotFound(err.Error())
	case errors.Is(err, engine.ErrSessionActive),
		errors.Is(err, engine.ErrSamplerActive):
		return api.ErrConflict(err.Error())
	}
	return err
}

func toDeadzones(dz semantic.Deadzones) apitypes.Deadzones {
	return apitypes.Deadzones{Left: dz.Left, Right: dz.Right}
}

func toQuirks(q mapping.Quirks) apitypes.Quirks {
	return apitypes.Quirks{AxisDpad: q.AxisDpad, RudderShoulders: q.RudderShoulders, SingleAxisDpadHack: q.SingleAxisDpadHack}
}

// ToDeviceState converts a semantic device state to its API form.
func ToDeviceState(st semantic.State) apitypes.DeviceState {
	out := apitypes.DeviceState{
		Slot:      st.Slot,
		Index:     st.Index,
		ID:        st.ID,
		Live:      st.Live,
		Controls:  make(map[string]apitypes.ControlState, len(st.Controls)),
		DpadX:     st.DpadX,
		DpadY:     st.DpadY,
		Deadzones: toDeadzones(st.Deadzones),
	}
	for k, v := range st.Controls {
		out.Controls[k] = apitypes.ControlState{
			Value:    v.Value,
			Prev:     v.Prev,
			HeldTics: v.HeldTics,
			HeldTime: v.HeldTime.Milliseconds(),
		}
	}
	return out
}

// ToCalibrationStatus converts a session status to its API form.
func ToCalibrationStatus(st calibration.Status, active bool) apitypes.CalibrationStatus {
	return apitypes.CalibrationStatus{
		Active:    active,
		Index:     st.Index,
		DeviceID:  st.DeviceID,
		Phase:     st.Phase.String(),
		Step:      st.Step,
		Control:   st.Control,
		Prompt:    st.Prompt,
		Highlight: st.Highlight,
		Paused:    st.Paused,
		Done:      st.Done,
		Canceled:  st.Canceled,
		Quirks:    toQuirks(st.Quirks),
	}
}
