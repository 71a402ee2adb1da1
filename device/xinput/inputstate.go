package xinput

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/semantic"
)

// InputState is the controller state in XInput's layout.
type InputState struct {
	// Button bitfield, lower 16 bits used
	Buttons uint32
	// Triggers: 0-255
	LT, RT uint8
	// Sticks: positive Y is up
	LX, LY   int16
	RX, RY   int16
	Reserved [6]byte
}

var buttonBits = []struct {
	control mapping.Control
	bit     uint32
}{
	{mapping.A, ButtonA},
	{mapping.B, ButtonB},
	{mapping.X, ButtonX},
	{mapping.Y, ButtonY},
	{mapping.Select, ButtonBack},
	{mapping.Start, ButtonStart},
	{mapping.L1, ButtonLShoulder},
	{mapping.R1, ButtonRShoulder},
	{mapping.L3, ButtonLThumb},
	{mapping.R3, ButtonRThumb},
}

// FromState converts a semantic device state. The d-pad is taken from the
// resolved d-pad vector so opposing directions never report together.
func FromState(st semantic.State) InputState {
	var x InputState
	for _, b := range buttonBits {
		if st.Value(b.control) != 0 {
			x.Buttons |= b.bit
		}
	}
	switch {
	case st.DpadX < 0:
		x.Buttons |= ButtonDPadLeft
	case st.DpadX > 0:
		x.Buttons |= ButtonDPadRight
	}
	switch {
	case st.DpadY < 0:
		x.Buttons |= ButtonDPadUp
	case st.DpadY > 0:
		x.Buttons |= ButtonDPadDown
	}
	x.LT = trigger(st.Value(mapping.L2))
	x.RT = trigger(st.Value(mapping.R2))
	x.LX = stick(st.Value(mapping.Lx))
	x.LY = stick(-st.Value(mapping.Ly))
	x.RX = stick(st.Value(mapping.Rx))
	x.RY = stick(-st.Value(mapping.Ry))
	return x
}

func trigger(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * math.MaxUint8))
}

func stick(v float64) int16 {
	return int16(math.Round(math.Max(-1, math.Min(1, v)) * math.MaxInt16))
}

// MarshalBinary encodes InputState to 20 bytes.
// Layout:
//
//	 0-3: Buttons (little-endian uint32)
//	   4: LT
//	   5: RT
//	 6-7: LX
//	 8-9: LY
//	10-11: RX
//	12-13: RY
//	14-19: Reserved
func (x *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	copy(b[14:20], x.Reserved[:])
	return b, nil
}

// UnmarshalBinary decodes 20 bytes into InputState.
func (x *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	copy(x.Reserved[:], data[14:20])
	return nil
}
