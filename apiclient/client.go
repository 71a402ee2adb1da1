package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	apitypes "github.com/Alia5/padmap/apitypes"
)

// Client provides a high-level interface to the padmap API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the padmap API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// NewWithPassword constructs a client that authenticates with password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the padmap server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	return do[apitypes.PingResponse](ctx, c, "ping", nil, nil)
}

// DevicesList retrieves the occupied semantic device slots.
func (c *Client) DevicesList() (*apitypes.DevicesListResponse, error) {
	return c.DevicesListCtx(context.Background())
}

func (c *Client) DevicesListCtx(ctx context.Context) (*apitypes.DevicesListResponse, error) {
	return do[apitypes.DevicesListResponse](ctx, c, "devices/list", nil, nil)
}

// DevicesCount reports how many raw controllers are connected and how many
// of them have a stored mapping.
func (c *Client) DevicesCount() (*apitypes.DeviceCountResponse, error) {
	return c.DevicesCountCtx(context.Background())
}

func (c *Client) DevicesCountCtx(ctx context.Context) (*apitypes.DeviceCountResponse, error) {
	return do[apitypes.DeviceCountResponse](ctx, c, "devices/count", nil, nil)
}

// DeviceState retrieves the current semantic state of a slot.
func (c *Client) DeviceState(slot int) (*apitypes.DeviceState, error) {
	return c.DeviceStateCtx(context.Background(), slot)
}

func (c *Client) DeviceStateCtx(ctx context.Context, slot int) (*apitypes.DeviceState, error) {
	return do[apitypes.DeviceState](ctx, c, "devices/{slot}/state", nil, slotParam(slot))
}

// DeviceDeadzone retrieves the stick deadzones of a slot.
func (c *Client) DeviceDeadzone(slot int) (*apitypes.DeadzoneResponse, error) {
	return c.DeviceDeadzoneCtx(context.Background(), slot)
}

func (c *Client) DeviceDeadzoneCtx(ctx context.Context, slot int) (*apitypes.DeadzoneResponse, error) {
	return do[apitypes.DeadzoneResponse](ctx, c, "devices/{slot}/deadzone", nil, slotParam(slot))
}

// SetDeadzone updates the stick deadzones of a slot. Nil fields keep their
// current value.
func (c *Client) SetDeadzone(slot int, req apitypes.DeadzoneRequest) (*apitypes.DeadzoneResponse, error) {
	return c.SetDeadzoneCtx(context.Background(), slot, req)
}

func (c *Client) SetDeadzoneCtx(ctx context.Context, slot int, req apitypes.DeadzoneRequest) (*apitypes.DeadzoneResponse, error) {
	if req.Left == nil && req.Right == nil {
		return nil, errors.New("set deadzone: nothing to set")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal deadzone request: %w", err)
	}
	return do[apitypes.DeadzoneResponse](ctx, c, "devices/{slot}/deadzone", payload, slotParam(slot))
}

// DetectDeadzone samples the resting sticks of a slot for a few seconds and
// returns the applied deadzones. The controller must not be touched
// meanwhile.
func (c *Client) DetectDeadzone(slot int) (*apitypes.DeadzoneResponse, error) {
	return c.DetectDeadzoneCtx(context.Background(), slot)
}

func (c *Client) DetectDeadzoneCtx(ctx context.Context, slot int) (*apitypes.DeadzoneResponse, error) {
	return do[apitypes.DeadzoneResponse](ctx, c, "devices/{slot}/deadzone/detect", nil, slotParam(slot))
}

// MappingsList retrieves every stored mapping in its record form.
func (c *Client) MappingsList() (*apitypes.MappingsListResponse, error) {
	return c.MappingsListCtx(context.Background())
}

func (c *Client) MappingsListCtx(ctx context.Context) (*apitypes.MappingsListResponse, error) {
	return do[apitypes.MappingsListResponse](ctx, c, "mappings/list", nil, nil)
}

// MappingExists reports whether a mapping is stored for a controller id.
func (c *Client) MappingExists(id string) (*apitypes.MappingExistsResponse, error) {
	return c.MappingExistsCtx(context.Background(), id)
}

func (c *Client) MappingExistsCtx(ctx context.Context, id string) (*apitypes.MappingExistsResponse, error) {
	return do[apitypes.MappingExistsResponse](ctx, c, "mappings/exists", id, nil)
}

// MappingRemove deletes the mapping of a controller id.
func (c *Client) MappingRemove(id string) (*apitypes.MappingRemoveResponse, error) {
	return c.MappingRemoveCtx(context.Background(), id)
}

func (c *Client) MappingRemoveCtx(ctx context.Context, id string) (*apitypes.MappingRemoveResponse, error) {
	return do[apitypes.MappingRemoveResponse](ctx, c, "mappings/remove", id, nil)
}

// CalibrationStart starts calibrating the raw controller at index.
// Fails with a conflict while another calibration runs.
func (c *Client) CalibrationStart(index int) (*apitypes.CalibrationStatus, error) {
	return c.CalibrationStartCtx(context.Background(), index)
}

func (c *Client) CalibrationStartCtx(ctx context.Context, index int) (*apitypes.CalibrationStatus, error) {
	return do[apitypes.CalibrationStatus](ctx, c, "calibration/start", strconv.Itoa(index), nil)
}

// CalibrationCancel aborts the running calibration without storing anything.
func (c *Client) CalibrationCancel() (*apitypes.CalibrationStatus, error) {
	return c.CalibrationCancelCtx(context.Background())
}

func (c *Client) CalibrationCancelCtx(ctx context.Context) (*apitypes.CalibrationStatus, error) {
	return do[apitypes.CalibrationStatus](ctx, c, "calibration/cancel", nil, nil)
}

// CalibrationStatus retrieves the progress of the current or last
// calibration.
func (c *Client) CalibrationStatus() (*apitypes.CalibrationStatus, error) {
	return c.CalibrationStatusCtx(context.Background())
}

func (c *Client) CalibrationStatusCtx(ctx context.Context) (*apitypes.CalibrationStatus, error) {
	return do[apitypes.CalibrationStatus](ctx, c, "calibration/status", nil, nil)
}

func slotParam(slot int) map[string]string {
	return map[string]string{"slot": strconv.Itoa(slot)}
}

func do[T any](ctx context.Context, c *Client, path string, payload any, params map[string]string) (*T, error) {
	raw, err := c.transport.DoCtx(ctx, path, payload, params)
	if err != nil {
		return nil, err
	}
	return parse[T](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
