package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeripheralStoreUpsert(t *testing.T) {
	s := NewPeripheralStore()
	now := time.Unix(10, 0)
	s.now = func() time.Time { return now }

	s.Upsert("AA:BB:CC:DD:EE:FF", "EMG-1", -60)
	now = now.Add(time.Second)
	s.Upsert("AA:BB:CC:DD:EE:FF", "", -50)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	p := snap[0]
	assert.Equal(t, "EMG-1", p.Name, "empty name keeps the known one")
	assert.InDelta(t, -57.0, p.RSSI, 1e-9) // -60*0.7 + -50*0.3
	assert.Equal(t, 2, p.Sightings)
	assert.Equal(t, now, p.LastSeen)
}

func TestPeripheralStoreSnapshotOrder(t *testing.T) {
	s := NewPeripheralStore()
	s.Upsert("03", "far", -90)
	s.Upsert("01", "near", -40)
	s.Upsert("02", "", -70)
	s.Upsert("00", "tie", -70)

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, []string{"01", "00", "02", "03"}, []string{snap[0].Address, snap[1].Address, snap[2].Address, snap[3].Address})
	assert.Equal(t, "[unnamed]", snap[2].DisplayName())

	snap[0].Name = "mutated"
	assert.Equal(t, "near", s.Snapshot()[0].Name)
}

func TestPeripheralName(t *testing.T) {
	assert.Equal(t, "EMG-1", peripheralName("EMG-1", "AA:BB:CC:DD:EE:FF", []uint16{0x0059}))
	assert.Equal(t, "Nordic EE:FF", peripheralName("", "AA:BB:CC:DD:EE:FF", []uint16{0xFFFF, 0x0059}))
	assert.Equal(t, "", peripheralName("", "AA:BB:CC:DD:EE:FF", []uint16{0xFFFF}))
	assert.Equal(t, "Polar xy", peripheralName("", "xy", []uint16{0x006B}))
}

func TestMatchPeripheral(t *testing.T) {
	assert.True(t, matchPeripheral("emg-1", "EMG-1", "AA:BB:CC:DD:EE:FF"))
	assert.True(t, matchPeripheral("aa:bb:cc:dd:ee:ff", "", "AA:BB:CC:DD:EE:FF"))
	assert.False(t, matchPeripheral("EMG-2", "EMG-1", "AA:BB:CC:DD:EE:FF"))
	assert.False(t, matchPeripheral("", "", ""))
}

func TestBLEConfigUUIDs(t *testing.T) {
	svc, char, err := BLEConfig{}.uuids()
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.Nil(t, char)

	svc, char, err = BLEConfig{
		Service:        "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
		Characteristic: "6e400003-b5a3-f393-e0a9-e50e24dcca9e",
	}.uuids()
	require.NoError(t, err)
	require.Len(t, svc, 1)
	require.Len(t, char, 1)
	assert.Equal(t, "6e400003-b5a3-f393-e0a9-e50e24dcca9e", char[0].String())

	_, _, err = BLEConfig{Service: "not-a-uuid"}.uuids()
	assert.Error(t, err)
}
