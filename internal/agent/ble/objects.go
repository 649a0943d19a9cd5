package ble

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	bluezBus = "org.bluez"

	adapterIface     = "org.bluez.Adapter1"
	gattManagerIface = "org.bluez.GattManager1"
	advManagerIface  = "org.bluez.LEAdvertisingManager1"
	gattServiceIface = "org.bluez.GattService1"
	gattChrcIface    = "org.bluez.GattCharacteristic1"
	advIface         = "org.bluez.LEAdvertisement1"

	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	propertiesIface    = "org.freedesktop.DBus.Properties"
	dbusIface          = "org.freedesktop.DBus"

	appPath  dbus.ObjectPath = "/"
	basePath                 = "/org/bluez/optix"
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func servicePath() dbus.ObjectPath { return dbus.ObjectPath(basePath + "/service0") }

func characteristicPath(i int) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/char%d", servicePath(), i))
}

func advertisementPath(n int) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/advertisement%d", basePath, n))
}

func characteristicPaths(s *Service) []dbus.ObjectPath {
	paths := make([]dbus.ObjectPath, 0, len(s.Endpoints()))
	for i := range s.Endpoints() {
		paths = append(paths, characteristicPath(i))
	}
	return paths
}

// gattObjects is what the application reports from GetManagedObjects.
func gattObjects(s *Service) managedObjects {
	objects := managedObjects{
		servicePath(): {
			gattServiceIface: {
				"UUID":            dbus.MakeVariant(s.UUID()),
				"Primary":         dbus.MakeVariant(true),
				"Characteristics": dbus.MakeVariant(characteristicPaths(s)),
			},
		},
	}
	for i, ep := range s.Endpoints() {
		objects[characteristicPath(i)] = map[string]map[string]dbus.Variant{
			gattChrcIface: {
				"UUID":        dbus.MakeVariant(ep.UUID),
				"Service":     dbus.MakeVariant(servicePath()),
				"Flags":       dbus.MakeVariant(ep.Flags),
				"Descriptors": dbus.MakeVariant([]dbus.ObjectPath{}),
			},
		}
	}
	return objects
}

func serviceProps(s *Service) prop.Map {
	return prop.Map{
		gattServiceIface: {
			"UUID":            {Value: s.UUID(), Emit: prop.EmitConst},
			"Primary":         {Value: true, Emit: prop.EmitConst},
			"Characteristics": {Value: characteristicPaths(s), Emit: prop.EmitConst},
		},
	}
}

func characteristicProps(ep *Endpoint) prop.Map {
	value := ep.Value()
	if value == nil {
		value = []byte{}
	}
	return prop.Map{
		gattChrcIface: {
			"UUID":        {Value: ep.UUID, Emit: prop.EmitConst},
			"Service":     {Value: servicePath(), Emit: prop.EmitConst},
			"Flags":       {Value: ep.Flags, Emit: prop.EmitConst},
			"Descriptors": {Value: []dbus.ObjectPath{}, Emit: prop.EmitConst},
			"Value":       {Value: value, Emit: prop.EmitTrue},
			"Notifying":   {Value: false, Emit: prop.EmitTrue},
		},
	}
}

func advertisementProps(s *Service, localName string) prop.Map {
	return prop.Map{
		advIface: {
			"Type":           {Value: "peripheral", Emit: prop.EmitConst},
			"ServiceUUIDs":   {Value: []string{s.UUID()}, Emit: prop.EmitConst},
			"LocalName":      {Value: localName, Emit: prop.EmitConst},
			"IncludeTxPower": {Value: false, Emit: prop.EmitConst},
		},
	}
}

// application answers BlueZ's object enumeration at the root path.
type application struct {
	svc *Service
}

func (a *application) GetManagedObjects() (managedObjects, *dbus.Error) {
	return gattObjects(a.svc), nil
}

// characteristic is the D-Bus face of an Endpoint.
type characteristic struct {
	ctx   context.Context
	svc   *Service
	ep    *Endpoint
	props *prop.Properties
}

func (c *characteristic) ReadValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	return c.svc.HandleRead(c.ep, optionOffset(options)), nil
}

func (c *characteristic) WriteValue(value []byte, _ map[string]dbus.Variant) *dbus.Error {
	c.svc.HandleWrite(c.ctx, c.ep, value)
	return nil
}

func (c *characteristic) StartNotify() *dbus.Error {
	c.svc.StartNotify(c.ep)
	if c.props != nil {
		c.props.SetMust(gattChrcIface, "Notifying", true)
	}
	return nil
}

func (c *characteristic) StopNotify() *dbus.Error {
	c.svc.StopNotify(c.ep)
	if c.props != nil {
		c.props.SetMust(gattChrcIface, "Notifying", false)
	}
	return nil
}

// advertisement is released by BlueZ when it drops the registration.
type advertisement struct {
	released func()
}

func (a *advertisement) Release() *dbus.Error {
	if a.released != nil {
		a.released()
	}
	return nil
}

func optionOffset(options map[string]dbus.Variant) int {
	v, ok := options["offset"]
	if !ok {
		return 0
	}
	switch o := v.Value().(type) {
	case uint16:
		return int(o)
	case uint32:
		return int(o)
	case int32:
		return int(o)
	default:
		return 0
	}
}

// exportObject exports obj with its properties and an introspection node.
func exportObject(conn *dbus.Conn, path dbus.ObjectPath, iface string, obj any, props prop.Map) (*prop.Properties, error) {
	if obj != nil {
		if err := conn.Export(obj, path, iface); err != nil {
			return nil, fmt.Errorf("export %s on %s: %w", iface, path, err)
		}
	}
	p, err := prop.Export(conn, path, props)
	if err != nil {
		return nil, fmt.Errorf("export properties on %s: %w", path, err)
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       iface,
				Methods:    introspectMethods(obj),
				Properties: p.Introspection(iface),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection on %s: %w", path, err)
	}
	return p, nil
}

func introspectMethods(obj any) []introspect.Method {
	if obj == nil {
		return nil
	}
	return introspect.Methods(obj)
}

// unexportObject removes every interface exportObject installed.
func unexportObject(conn *dbus.Conn, path dbus.ObjectPath, iface string) {
	for _, i := range []string{iface, propertiesIface, "org.freedesktop.DBus.Introspectable"} {
		_ = conn.Export(nil, path, i)
	}
}
