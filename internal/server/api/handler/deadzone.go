package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Alia5/padmap/apitypes"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
)

// DeviceDeadzone returns a handler reading or, with a payload, updating
// the deadzones of a slot. Omitted sticks keep their current value.
func DeviceDeadzone(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		slot, err := parseSlot(req)
		if err != nil {
			return err
		}
		st, err := e.DeviceState(slot)
		if err != nil {
			return apiError(err)
		}
		dz := st.Deadzones
		if req.Payload != "" {
			var dr apitypes.DeadzoneRequest
			if err := json.Unmarshal([]byte(req.Payload), &dr); err != nil {
				return api.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
			}
			if dr.Left != nil {
				dz.Left = *dr.Left
			}
			if dr.Right != nil {
				dz.Right = *dr.Right
			}
			if err := e.SetDeadzones(slot, dz); err != nil {
				return apiError(err)
			}
			logger.Info("deadzones set", "slot", slot, "left", dz.Left, "right", dz.Right)
		}
		return writeJSON(res, apitypes.DeadzoneResponse{Slot: slot, Deadzones: toDeadzones(dz)})
	}
}

// DeviceDeadzoneDetect returns a handler that samples the resting sticks
// of a slot and answers once the deadzones were applied.
func DeviceDeadzoneDetect(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		slot, err := parseSlot(req)
		if err != nil {
			return err
		}
		dz, err := e.DetectDeadzones(req.Ctx, slot)
		if err != nil {
			return apiError(err)
		}
		return writeJSON(res, apitypes.DeadzoneResponse{Slot: slot, Deadzones: toDeadzones(dz)})
	}
}
