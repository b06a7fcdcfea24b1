package govee

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SargeyWargey/govee-status-light/internal/fault"
)

// Capability type/instance identifiers used by the control endpoint.
const (
	capTypeColor      = "devices.capabilities.color_setting"
	capTypeBrightness = "devices.capabilities.range"
	capTypePower      = "devices.capabilities.on_off"

	capInstanceColorRGB   = "colorRgb"
	capInstanceBrightness = "brightness"
	capInstancePower      = "powerSwitch"
)

// deviceID tolerates the API serving the device identifier as either a
// string or an integer. The union resolves once here at the parse
// boundary; everything downstream sees a string.
type deviceID string

func (d *deviceID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = deviceID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = deviceID(strconv.FormatInt(n, 10))
		return nil
	}
	return fmt.Errorf("%w: device id is neither string nor integer: %s", fault.ErrInvalidResponse, data)
}

type devicesPayload struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    []devicePayload `json:"data"`
}

type devicePayload struct {
	Device       deviceID            `json:"device"`
	SKU          string              `json:"sku"`
	DeviceName   string              `json:"deviceName"`
	Capabilities []capabilityPayload `json:"capabilities"`
}

type capabilityPayload struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
}

type controlRequest struct {
	RequestID string         `json:"requestId"`
	Payload   controlPayload `json:"payload"`
}

type controlPayload struct {
	SKU        string            `json:"sku"`
	Device     string            `json:"device"`
	Capability controlCapability `json:"capability"`
}

type controlCapability struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	Value    any    `json:"value"`
}

type controlResponse struct {
	RequestID string `json:"requestId"`
	Code      int    `json:"code"`
	Message   string `json:"msg"`
}
