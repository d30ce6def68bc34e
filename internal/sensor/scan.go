package sensor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"emg-monitor.klederson.com/internal/config"
	"tinygo.org/x/bluetooth"
)

// Peripheral is a BLE device seen during discovery.
type Peripheral struct {
	Address   string
	Name      string
	RSSI      float64 // EMA smoothed dBm
	LastSeen  time.Time
	Sightings int
}

// DisplayName returns the device name or "[unnamed]" if empty.
func (p Peripheral) DisplayName() string {
	if p.Name == "" {
		return "[unnamed]"
	}
	return p.Name
}

// PeripheralStore is a thread-safe set of discovered peripherals.
type PeripheralStore struct {
	mu          sync.RWMutex
	peripherals map[string]*Peripheral
	now         func() time.Time
}

// NewPeripheralStore creates a new empty store.
func NewPeripheralStore() *PeripheralStore {
	return &PeripheralStore{
		peripherals: make(map[string]*Peripheral),
		now:         time.Now,
	}
}

// Upsert adds or updates a peripheral. RSSI of a known peripheral is
// smoothed using EMA and a known name is never replaced by an empty one.
func (s *PeripheralStore) Upsert(address, name string, rssi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.peripherals[address]; ok {
		existing.RSSI = existing.RSSI*(1-config.SmoothingAlpha) + rssi*config.SmoothingAlpha
		existing.LastSeen = now
		existing.Sightings++
		if name != "" {
			existing.Name = name
		}
		return
	}

	s.peripherals[address] = &Peripheral{
		Address:   address,
		Name:      name,
		RSSI:      rssi,
		LastSeen:  now,
		Sightings: 1,
	}
}

// Snapshot returns a copy of all peripherals, strongest RSSI first.
func (s *PeripheralStore) Snapshot() []Peripheral {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Peripheral, 0, len(s.peripherals))
	for _, p := range s.peripherals {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RSSI == result[j].RSSI {
			return result[i].Address < result[j].Address
		}
		return result[i].RSSI > result[j].RSSI
	})
	return result
}

// peripheralName falls back to the manufacturer and address suffix for
// devices that do not advertise a local name.
func peripheralName(localName, address string, companyIDs []uint16) string {
	if localName != "" {
		return localName
	}
	for _, id := range companyIDs {
		if mfr := LookupManufacturer(id); mfr != "" {
			suffix := address
			if len(address) >= 17 {
				suffix = address[12:] // last 2 octets e.g. "EE:FF"
			}
			return mfr + " " + suffix
		}
	}
	return ""
}

// Discover scans for BLE peripherals for the given duration, or until ctx
// is done, and returns them strongest first.
func Discover(ctx context.Context, timeout time.Duration) ([]Peripheral, error) {
	if timeout <= 0 {
		timeout = config.ScanTimeout
	}
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store := NewPeripheralStore()
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			var ids []uint16
			for _, m := range result.ManufacturerData() {
				ids = append(ids, m.CompanyID)
			}
			addr := result.Address.String()
			store.Upsert(addr, peripheralName(result.LocalName(), addr, ids), float64(result.RSSI))
		})
	}()

	select {
	case <-ctx.Done():
		_ = adapter.StopScan()
		if err := <-scanDone; err != nil {
			return store.Snapshot(), fmt.Errorf("scan: %w", err)
		}
	case err := <-scanDone:
		if err != nil {
			return store.Snapshot(), fmt.Errorf("scan: %w", err)
		}
	}
	return store.Snapshot(), nil
}
