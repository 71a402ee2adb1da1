package handler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
)

// CalibrationStart returns a handler starting calibration of the raw
// controller index given as payload.
func CalibrationStart(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		p := strings.TrimSpace(req.Payload)
		if p == "" {
			return api.ErrBadRequest("missing controller index")
		}
		index, err := strconv.Atoi(p)
		if err != nil {
			return api.ErrBadRequest(fmt.Sprintf("invalid controller index: %v", err))
		}
		st, err := e.StartCalibration(index)
		if err != nil {
			return apiError(err)
		}
		return writeJSON(res, ToCalibrationStatus(st, true))
	}
}

// CalibrationCancel returns a handler canceling the running calibration.
func CalibrationCancel(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st, err := e.CancelCalibration()
		if err != nil {
			return apiError(err)
		}
		return writeJSON(res, ToCalibrationStatus(st, false))
	}
}

// CalibrationStatus returns a handler reporting calibration progress.
func CalibrationStatus(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		return writeJSON(res, ToCalibrationStatus(e.CalibrationStatus()))
	}
}
