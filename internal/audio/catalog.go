package audio

import (
	"context"
	"fmt"

	"github.com/iancoleman/orderedmap"
	"github.com/petems/phasescope/internal/observe"
	"github.com/rs/zerolog"
)

// DeviceEntry is one raw enumeration result. Exactly one of Device and Err
// is set.
type DeviceEntry struct {
	Index  int
	Device *Device
	Err    error
}

// DeviceProber enumerates devices on an audio host.
type DeviceProber interface {
	Probe() ([]DeviceEntry, error)
	DefaultInput() (*Device, error)
}

// Catalog exposes the host's devices as name → handle maps.
type Catalog struct {
	probe   DeviceProber
	log     zerolog.Logger
	metrics *observe.Metrics
}

func NewCatalog(probe DeviceProber, log zerolog.Logger, metrics *observe.Metrics) *Catalog {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Catalog{probe: probe, log: log, metrics: metrics}
}

// ListInputDevices returns devices with at least one input channel.
func (c *Catalog) ListInputDevices() (*DeviceMap, error) {
	inputs, _, err := c.Devices()
	return inputs, err
}

// Devices enumerates the host once and splits the result into input and
// output maps. A device with both kinds of channel appears in both. Capture
// never writes to outputs; they exist for device pickers.
func (c *Catalog) Devices() (inputs, outputs *DeviceMap, err error) {
	devices, err := c.usable()
	if err != nil {
		return nil, nil, err
	}
	inputs, outputs = NewDeviceMap(), NewDeviceMap()
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs.add(d)
		}
		if d.MaxOutputChannels > 0 {
			outputs.add(d)
		}
	}
	return inputs, outputs, nil
}

// DefaultInput returns the host default input device if enumeration kept it
// as an input.
func (c *Catalog) DefaultInput() (*Device, error) {
	def, err := c.probe.DefaultInput()
	if err != nil {
		return nil, err
	}
	devices, err := c.usable()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Index == def.Index && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("default input %q is not in the device catalog", def.Name)
}

// usable probes the host and drops entries whose metadata could not be read.
func (c *Catalog) usable() ([]*Device, error) {
	entries, err := c.probe.Probe()
	if err != nil {
		return nil, err
	}

	out := make([]*Device, 0, len(entries))
	for _, e := range entries {
		if e.Err != nil || e.Device == nil {
			c.log.Warn().Err(e.Err).Int("index", e.Index).Msg("Skipping audio device")
			c.metrics.SkippedDevices.Add(context.Background(), 1)
			continue
		}
		out = append(out, e.Device)
	}
	return out, nil
}

// DeviceMap is an insertion-ordered name → device map.
type DeviceMap struct {
	m *orderedmap.OrderedMap
}

// NewDeviceMap builds a map from devices in order, disambiguating
// duplicate names the same way enumeration does.
func NewDeviceMap(devices ...*Device) *DeviceMap {
	dm := &DeviceMap{m: orderedmap.New()}
	for _, d := range devices {
		dm.add(d)
	}
	return dm
}

// add inserts d under its name, qualifying the key with the host API (and
// then the index) when the name is already taken.
func (dm *DeviceMap) add(d *Device) {
	name := d.Name
	if _, taken := dm.m.Get(name); taken && d.HostAPI != "" {
		name = fmt.Sprintf("%s (%s)", d.Name, d.HostAPI)
	}
	if _, taken := dm.m.Get(name); taken {
		name = fmt.Sprintf("%s #%d", d.Name, d.Index)
	}
	dm.m.Set(name, d)
}

// Names returns device names in enumeration order.
func (dm *DeviceMap) Names() []string {
	return dm.m.Keys()
}

// Lookup returns the device registered under name.
func (dm *DeviceMap) Lookup(name string) (*Device, bool) {
	v, ok := dm.m.Get(name)
	if !ok {
		return nil, false
	}
	d, ok := v.(*Device)
	return d, ok
}

func (dm *DeviceMap) Len() int {
	return len(dm.m.Keys())
}
