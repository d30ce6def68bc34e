package sensor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"emg-monitor.klederson.com/internal/config"
	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"
)

// BLEConfig selects the sensor and the characteristic carrying EMG payloads.
type BLEConfig struct {
	Device         string // Local name or address, case-insensitive
	Service        string // Optional service UUID filter
	Characteristic string // Optional characteristic UUID; empty tries every one
}

// uuids parses the configured UUID filters. Empty strings yield nil filters.
func (c BLEConfig) uuids() (service, char []bluetooth.UUID, err error) {
	if c.Service != "" {
		u, err := bluetooth.ParseUUID(c.Service)
		if err != nil {
			return nil, nil, fmt.Errorf("parse service uuid %q: %w", c.Service, err)
		}
		service = []bluetooth.UUID{u}
	}
	if c.Characteristic != "" {
		u, err := bluetooth.ParseUUID(c.Characteristic)
		if err != nil {
			return nil, nil, fmt.Errorf("parse characteristic uuid %q: %w", c.Characteristic, err)
		}
		char = []bluetooth.UUID{u}
	}
	return service, char, nil
}

// matchPeripheral reports whether a scan result identifies the target.
func matchPeripheral(target, name, address string) bool {
	if target == "" {
		return false
	}
	return strings.EqualFold(target, name) || strings.EqualFold(target, address)
}

// BLESource streams EMG notifications from a Bluetooth LE sensor.
type BLESource struct {
	cfg     BLEConfig
	adapter *bluetooth.Adapter
	logger  zerolog.Logger

	mu      sync.Mutex
	device  *bluetooth.Device
	stream  *packetStream
	running bool
}

// NewBLESource creates a source on the default adapter.
func NewBLESource(cfg BLEConfig, logger zerolog.Logger) *BLESource {
	return &BLESource{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
		logger:  logger.With().Str("component", "ble").Logger(),
	}
}

// Start scans for the configured device, connects and subscribes to its
// notifications. Decoded samples go to sink until Stop. The scan gives up
// after config.ConnectTimeout or when ctx is done.
func (s *BLESource) Start(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	serviceFilter, charFilter, err := s.cfg.uuids()
	if err != nil {
		return err
	}

	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	addr, err := s.find(ctx)
	if err != nil {
		return err
	}

	device, err := s.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr.String(), err)
	}
	s.logger.Info().Str("address", addr.String()).Msg("connected")

	stream := newPacketStream(sink, s.logger)
	if err := subscribe(device, serviceFilter, charFilter, stream.handle); err != nil {
		_ = device.Disconnect()
		return err
	}

	s.device = &device
	s.stream = stream
	s.running = true
	s.logger.Info().Str("device", s.cfg.Device).Msg("streaming notifications")
	return nil
}

// find scans until a peripheral matches the configured device.
func (s *BLESource) find(ctx context.Context) (bluetooth.Address, error) {
	found := make(chan bluetooth.Address, 1)
	scanDone := make(chan error, 1)

	go func() {
		scanDone <- s.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matchPeripheral(s.cfg.Device, result.LocalName(), result.Address.String()) {
				return
			}
			select {
			case found <- result.Address:
			default:
			}
			_ = a.StopScan()
		})
	}()

	select {
	case addr := <-found:
		<-scanDone
		return addr, nil
	case err := <-scanDone:
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		if err != nil {
			return bluetooth.Address{}, fmt.Errorf("scan: %w", err)
		}
		return bluetooth.Address{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, s.cfg.Device)
	case <-ctx.Done():
		_ = s.adapter.StopScan()
		<-scanDone
		return bluetooth.Address{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, s.cfg.Device)
	}
}

// subscribe enables notifications on the first matching characteristic that
// accepts them.
func subscribe(device bluetooth.Device, serviceFilter, charFilter []bluetooth.UUID, handler func([]byte)) error {
	services, err := device.DiscoverServices(serviceFilter)
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}

	for _, srv := range services {
		chars, err := srv.DiscoverCharacteristics(charFilter)
		if err != nil {
			continue
		}
		for _, char := range chars {
			if err := char.EnableNotifications(handler); err == nil {
				return nil
			}
		}
	}
	return ErrNoCharacteristic
}

// Stats returns packet and sample counts for the current connection.
func (s *BLESource) Stats() (packets, samples uint64) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return 0, 0
	}
	return stream.Counts()
}

// Stop disconnects from the sensor.
func (s *BLESource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	err := s.device.Disconnect()
	s.device = nil
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	s.logger.Info().Msg("disconnected")
	return nil
}
