package handler

import (
	"log/slog"

	"github.com/Alia5/padmap/apitypes"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
)

// DevicesList returns a handler listing the occupied device slots.
func DevicesList(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		out := apitypes.DevicesListResponse{Devices: []apitypes.Device{}}
		for _, d := range e.Devices() {
			out.Devices = append(out.Devices, apitypes.Device{
				Slot:      d.Slot,
				Index:     d.Index,
				ID:        d.ID,
				Live:      d.Live,
				Deadzones: toDeadzones(d.Deadzones),
			})
		}
		return writeJSON(res, out)
	}
}

// DevicesCount returns a handler reporting connected and mapped controllers.
func DevicesCount(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		connected, mapped := e.Counts()
		return writeJSON(res, apitypes.DeviceCountResponse{Connected: connected, Mapped: mapped})
	}
}

// DeviceState returns a handler reporting the state of one slot.
func DeviceState(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		slot, err := parseSlot(req)
		if err != nil {
			return err
		}
		st, err := e.DeviceState(slot)
		if err != nil {
			return apiError(err)
		}
		return writeJSON(res, ToDeviceState(st))
	}
}
