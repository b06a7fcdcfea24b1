// Package govee is the client for the Govee device API: API-key
// authenticated discovery and control of color-capable devices.
package govee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/fault"
)

const defaultBaseURL = "https://openapi.api.govee.com/router/api/v1"

// Client talks to the Govee developer API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Govee client.
func NewClient(apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: govee api key is required", fault.ErrConfiguration)
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Govee-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fault.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: govee returned 429", fault.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: govee returned %d", fault.ErrInvalidResponse, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", fault.ErrInvalidResponse, err)
	}
	return nil
}

// Devices discovers the controllable devices on the account.
func (c *Client) Devices(ctx context.Context) ([]device.Device, error) {
	var raw devicesPayload
	if err := c.do(ctx, http.MethodGet, "/user/devices", nil, &raw); err != nil {
		return nil, err
	}
	if raw.Code != 200 {
		return nil, fmt.Errorf("%w: govee code %d: %s", fault.ErrInvalidResponse, raw.Code, raw.Message)
	}

	devices := make([]device.Device, 0, len(raw.Data))
	for _, d := range raw.Data {
		devices = append(devices, device.Device{
			ID:           string(d.Device),
			SKU:          d.SKU,
			Name:         d.DeviceName,
			Capabilities: capabilities(d.Capabilities),
		})
	}
	return devices, nil
}

func capabilities(raw []capabilityPayload) []device.Capability {
	var caps []device.Capability
	for _, c := range raw {
		switch c.Type {
		case capTypeColor:
			if c.Instance == capInstanceColorRGB {
				caps = append(caps, device.CapabilityColor)
			}
		case capTypeBrightness:
			if c.Instance == capInstanceBrightness {
				caps = append(caps, device.CapabilityBrightness)
			}
		case capTypePower:
			if c.Instance == capInstancePower {
				caps = append(caps, device.CapabilityPower)
			}
		}
	}
	return caps
}

// SetColor sends a color command. The wire value is the packed
// 0xRRGGBB integer.
func (c *Client) SetColor(ctx context.Context, deviceID, sku string, rgb color.RGB) error {
	return c.control(ctx, deviceID, sku, controlCapability{
		Type:     capTypeColor,
		Instance: capInstanceColorRGB,
		Value:    rgb.Packed(),
	})
}

// SetBrightness sends a brightness command, value in [1, 100].
func (c *Client) SetBrightness(ctx context.Context, deviceID, sku string, level int) error {
	if level < 1 {
		level = 1
	}
	if level > 100 {
		level = 100
	}
	return c.control(ctx, deviceID, sku, controlCapability{
		Type:     capTypeBrightness,
		Instance: capInstanceBrightness,
		Value:    level,
	})
}

// SetPower turns the device on or off.
func (c *Client) SetPower(ctx context.Context, deviceID, sku string, on bool) error {
	value := 0
	if on {
		value = 1
	}
	return c.control(ctx, deviceID, sku, controlCapability{
		Type:     capTypePower,
		Instance: capInstancePower,
		Value:    value,
	})
}

func (c *Client) control(ctx context.Context, deviceID, sku string, capability controlCapability) error {
	req := controlRequest{
		RequestID: uuid.NewString(),
		Payload: controlPayload{
			SKU:        sku,
			Device:     deviceID,
			Capability: capability,
		},
	}
	var resp controlResponse
	if err := c.do(ctx, http.MethodPost, "/device/control", req, &resp); err != nil {
		return err
	}
	switch resp.Code {
	case 200:
		return nil
	case 429:
		return fmt.Errorf("%w: govee code 429", fault.ErrRateLimited)
	case 404:
		return fmt.Errorf("%w: %s", fault.ErrDeviceNotFound, deviceID)
	default:
		return fmt.Errorf("%w: govee code %d: %s", fault.ErrInvalidResponse, resp.Code, resp.Message)
	}
}
