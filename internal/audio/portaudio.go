package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Host owns the PortAudio library lifetime. It enumerates devices for the
// Catalog and opens streams for the Engine.
type Host struct{}

// OpenHost initializes PortAudio. Close must be called after every stream
// opened through the host has been closed.
func OpenHost() (*Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Host{}, nil
}

// Probe lists every device PortAudio reports. Entries whose metadata is
// unusable carry an error instead of a Device.
func (h *Host) Probe() ([]DeviceEntry, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	entries := make([]DeviceEntry, 0, len(infos))
	for i, info := range infos {
		switch {
		case info == nil:
			entries = append(entries, DeviceEntry{Index: i, Err: errors.New("no device info")})
		case info.HostApi == nil:
			entries = append(entries, DeviceEntry{Index: i, Err: fmt.Errorf("device %q has no host API", info.Name)})
		default:
			entries = append(entries, DeviceEntry{Index: i, Device: deviceFromInfo(i, info)})
		}
	}
	return entries, nil
}

// DefaultInput returns the host's default input device.
func (h *Host) DefaultInput() (*Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to get default input device: %w", err)
	}

	index := -1
	if infos, err := portaudio.Devices(); err == nil {
		for i, d := range infos {
			if d == info {
				index = i
				break
			}
		}
	}
	return deviceFromInfo(index, info), nil
}

// OpenInput opens a mono float32 stream that reads len(buf) frames per Read.
func (h *Host) OpenInput(device *Device, sampleRate float64, buf []float32) (Stream, error) {
	if device == nil || device.info == nil {
		return nil, &ConfigurationError{Field: "device", Reason: "not a PortAudio device"}
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device.info,
			Channels: 1,
			Latency:  device.info.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: len(buf),
	}, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return &paStream{Stream: stream}, nil
}

// Close terminates PortAudio.
func (h *Host) Close() error {
	return portaudio.Terminate()
}

type paStream struct {
	*portaudio.Stream
}

// Read maps PortAudio's overflow status to ErrInputOverflowed; the buffer
// still holds the samples that were read.
func (s *paStream) Read() error {
	err := s.Stream.Read()
	if errors.Is(err, portaudio.InputOverflowed) {
		return ErrInputOverflowed
	}
	return err
}

func deviceFromInfo(index int, info *portaudio.DeviceInfo) *Device {
	d := &Device{
		Name:              info.Name,
		Index:             index,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		InputLatency:      info.DefaultLowInputLatency,
		info:              info,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	return d
}
