package ble

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGattObjectsLayout(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	objects := gattObjects(svc)

	require.Len(t, objects, 4)
	service := objects["/org/bluez/optix/service0"][gattServiceIface]
	assert.Equal(t, svc.UUID(), service["UUID"].Value())
	assert.Equal(t, true, service["Primary"].Value())
	assert.Equal(t, []dbus.ObjectPath{
		"/org/bluez/optix/service0/char0",
		"/org/bluez/optix/service0/char1",
		"/org/bluez/optix/service0/char2",
	}, service["Characteristics"].Value())

	status := objects["/org/bluez/optix/service0/char1"][gattChrcIface]
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", status["UUID"].Value())
	assert.Equal(t, []string{FlagRead, FlagNotify}, status["Flags"].Value())
	assert.Equal(t, servicePath(), status["Service"].Value())
}

func TestAdvertisementPath(t *testing.T) {
	assert.Equal(t, dbus.ObjectPath("/org/bluez/optix/advertisement0"), advertisementPath(0))
	assert.Equal(t, dbus.ObjectPath("/org/bluez/optix/advertisement3"), advertisementPath(3))
}

func TestAdvertisementProps(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	props := advertisementProps(svc, "OPTIX")[advIface]

	require.Len(t, props, 4)
	assert.Equal(t, "peripheral", props["Type"].Value)
	assert.Equal(t, []string{"12345678-1234-5678-9abc-123456789abc"}, props["ServiceUUIDs"].Value)
	assert.Equal(t, "OPTIX", props["LocalName"].Value)
	assert.Equal(t, false, props["IncludeTxPower"].Value)
}

func TestPickAdapter(t *testing.T) {
	full := map[string]map[string]dbus.Variant{gattManagerIface: {}, advManagerIface: {}, adapterIface: {}}

	path, err := pickAdapter(managedObjects{
		"/org/bluez":      {"org.bluez.AgentManager1": {}},
		"/org/bluez/hci1": full,
		"/org/bluez/hci0": full,
		"/org/bluez/hci2": {adapterIface: {}, gattManagerIface: {}},
	})
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci0"), path)

	_, err = pickAdapter(managedObjects{"/org/bluez/hci0": {adapterIface: {}}})
	assert.ErrorIs(t, err, ErrNoAdapter)
}

func TestBluezOwnerChanged(t *testing.T) {
	changed := &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []any{"org.bluez", ":1.4", ""},
	}
	assert.True(t, bluezOwnerChanged(changed))

	other := &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []any{"org.freedesktop.NetworkManager", ":1.4", ""},
	}
	assert.False(t, bluezOwnerChanged(other))
	assert.False(t, bluezOwnerChanged(&dbus.Signal{Name: "org.bluez.Foo", Body: []any{"org.bluez"}}))
	assert.False(t, bluezOwnerChanged(nil))
}

func TestOptionOffset(t *testing.T) {
	assert.Equal(t, 0, optionOffset(nil))
	assert.Equal(t, 7, optionOffset(map[string]dbus.Variant{"offset": dbus.MakeVariant(uint16(7))}))
	assert.Equal(t, 0, optionOffset(map[string]dbus.Variant{"offset": dbus.MakeVariant("x")}))
}
