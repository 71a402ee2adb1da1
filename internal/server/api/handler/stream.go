package handler

import (
	"log/slog"
	"net"
	"time"

	"github.com/Alia5/padmap/device/xinput"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
)

// DeviceStream returns a stream handler writing the XInput report of a
// slot once per engine tick until the client disconnects or the controller
// the stream started with leaves the slot.
func DeviceStream(e *engine.Engine) api.StreamHandlerFunc {
	return func(conn net.Conn, req *api.Request, logger *slog.Logger) error {
		slot, err := parseSlot(req)
		if err != nil {
			return err
		}
		first, err := e.DeviceState(slot)
		if err != nil {
			return apiError(err)
		}
		t := time.NewTicker(e.Config().TickInterval)
		defer t.Stop()
		for {
			select {
			case <-req.Ctx.Done():
				return nil
			case <-t.C:
			}
			st, err := e.DeviceState(slot)
			if err != nil || st.ID != first.ID || st.Index != first.Index {
				logger.Info("stream device gone", "slot", slot, "id", first.ID)
				return nil
			}
			x := xinput.FromState(st)
			b, _ := x.MarshalBinary()
			if _, err := conn.Write(b); err != nil {
				logger.Debug("stream client gone", "slot", slot, "error", err)
				return nil
			}
		}
	}
}
