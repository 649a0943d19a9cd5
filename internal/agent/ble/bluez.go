package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"optix.io/optix/pkg/log"
)

// ErrNoAdapter is returned when BlueZ exposes no adapter able to host a GATT application.
var ErrNoAdapter = errors.New("no bluetooth adapter with GATT and advertising support")

type RadioConfig struct {
	// Adapter is an object path such as /org/bluez/hci0; empty picks the first capable one.
	Adapter     string
	LocalName   string
	CallTimeout time.Duration
}

// Radio brings the provisioning service up on the system bus.
type Radio struct {
	cfg    RadioConfig
	svc    *Service
	logger log.Logger
}

func NewRadio(cfg RadioConfig, svc *Service) *Radio {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	return &Radio{cfg: cfg, svc: svc, logger: log.WithName("radio")}
}

// Handle is one live registration. It is done once the bus connection
// drops, bluetoothd changes owner, or Stop is called.
type Handle struct {
	radio   *Radio
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	cancel  context.CancelFunc

	mu      sync.Mutex
	advPath dbus.ObjectPath
	advNext int

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start connects to the system bus, exports the GATT application and
// registers it with the adapter. The advertisement is registered separately.
func (r *Radio) Start(ctx context.Context) (*Handle, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	adapter, err := r.findAdapter(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	r.logger.Info("Using adapter", "adapter", adapter)
	r.prepareAdapter(ctx, conn, adapter)

	hctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		radio:   r,
		conn:    conn,
		adapter: adapter,
		cancel:  cancel,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if err := h.exportApplication(hctx); err != nil {
		cancel()
		_ = conn.Close()
		return nil, err
	}

	if err := h.call(ctx, adapter, gattManagerIface+".RegisterApplication", appPath, map[string]dbus.Variant{}); err != nil {
		r.svc.SetEmitter(nil)
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("register application: %w", err)
	}

	signals, err := h.watchBluez()
	if err != nil {
		r.logger.Warn("Cannot watch bluetoothd ownership", "error", err.Error())
	}
	go h.monitor(signals)

	r.logger.Info("GATT application registered", "service", r.svc.UUID())
	return h, nil
}

// Stop withdraws every registration and closes the bus connection. Safe to call twice.
func (r *Radio) Stop(h *Handle) {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CallTimeout)
		defer cancel()

		if err := h.Unregister(ctx); err != nil {
			r.logger.Debug("Unregister advertisement failed", "error", err.Error())
		}
		if err := h.call(ctx, h.adapter, gattManagerIface+".UnregisterApplication", appPath); err != nil {
			r.logger.Debug("Unregister application failed", "error", err.Error())
		}

		r.svc.SetEmitter(nil)
		close(h.stop)
		h.cancel()
		_ = h.conn.Close()
		<-h.done
		r.logger.Info("Radio stopped")
	})
}

func (r *Radio) findAdapter(ctx context.Context, conn *dbus.Conn) (dbus.ObjectPath, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	var objects managedObjects
	err := conn.Object(bluezBus, "/").CallWithContext(cctx, objectManagerIface+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return "", fmt.Errorf("list bluez objects: %w", err)
	}

	if r.cfg.Adapter != "" {
		ifaces, ok := objects[dbus.ObjectPath(r.cfg.Adapter)]
		if !ok || !capable(ifaces) {
			return "", fmt.Errorf("%w: %s", ErrNoAdapter, r.cfg.Adapter)
		}
		return dbus.ObjectPath(r.cfg.Adapter), nil
	}
	return pickAdapter(objects)
}

func capable(ifaces map[string]map[string]dbus.Variant) bool {
	_, gatt := ifaces[gattManagerIface]
	_, adv := ifaces[advManagerIface]
	return gatt && adv
}

// pickAdapter returns the lowest object path that supports both managers.
func pickAdapter(objects managedObjects) (dbus.ObjectPath, error) {
	var found dbus.ObjectPath
	for path, ifaces := range objects {
		if !capable(ifaces) {
			continue
		}
		if found == "" || path < found {
			found = path
		}
	}
	if found == "" {
		return "", ErrNoAdapter
	}
	return found, nil
}

// prepareAdapter powers the adapter on and makes it discoverable. Failures are logged only.
func (r *Radio) prepareAdapter(ctx context.Context, conn *dbus.Conn, adapter dbus.ObjectPath) {
	settings := []struct {
		name  string
		value any
	}{
		{"Powered", true},
		{"Alias", r.cfg.LocalName},
		{"Discoverable", true},
		{"DiscoverableTimeout", uint32(0)},
		{"Pairable", true},
	}
	obj := conn.Object(bluezBus, adapter)
	for _, s := range settings {
		cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		call := obj.CallWithContext(cctx, propertiesIface+".Set", 0, adapterIface, s.name, dbus.MakeVariant(s.value))
		cancel()
		if call.Err != nil {
			r.logger.Warn("Adapter setting failed", "property", s.name, "error", call.Err.Error())
		}
	}
}

func (h *Handle) exportApplication(ctx context.Context) error {
	svc := h.radio.svc
	if err := h.conn.Export(&application{svc: svc}, appPath, objectManagerIface); err != nil {
		return fmt.Errorf("export object manager: %w", err)
	}
	if _, err := exportObject(h.conn, servicePath(), gattServiceIface, nil, serviceProps(svc)); err != nil {
		return err
	}

	props := map[*Endpoint]*prop.Properties{}
	for i, ep := range svc.Endpoints() {
		chrc := &characteristic{ctx: ctx, svc: svc, ep: ep}
		p, err := exportObject(h.conn, characteristicPath(i), gattChrcIface, chrc, characteristicProps(ep))
		if err != nil {
			return err
		}
		chrc.props = p
		props[ep] = p
	}

	svc.SetEmitter(func(ep *Endpoint, value []byte) {
		if p, ok := props[ep]; ok {
			p.SetMust(gattChrcIface, "Value", value)
		}
	})
	return nil
}

func (h *Handle) watchBluez() (chan *dbus.Signal, error) {
	err := h.conn.AddMatchSignal(
		dbus.WithMatchInterface(dbusIface),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, bluezBus),
	)
	if err != nil {
		return nil, err
	}
	signals := make(chan *dbus.Signal, 8)
	h.conn.Signal(signals)
	return signals, nil
}

func (h *Handle) monitor(signals chan *dbus.Signal) {
	defer close(h.done)
	logger := h.radio.logger

	for {
		select {
		case <-h.stop:
			return
		case <-h.conn.Context().Done():
			logger.Warn("System bus connection closed")
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if bluezOwnerChanged(sig) {
				logger.Warn("bluetoothd owner changed, registration lost")
				return
			}
		}
	}
}

func bluezOwnerChanged(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != dbusIface+".NameOwnerChanged" || len(sig.Body) != 3 {
		return false
	}
	name, _ := sig.Body[0].(string)
	return name == bluezBus
}

// Done is closed when the registration is no longer live.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Alive reports whether the registration still stands.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

var _ Advertiser = (*Handle)(nil)

// ActiveInstances reads LEAdvertisingManager1.ActiveInstances from the adapter.
func (h *Handle) ActiveInstances(ctx context.Context) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, h.radio.cfg.CallTimeout)
	defer cancel()

	var v dbus.Variant
	err := h.conn.Object(bluezBus, h.adapter).
		CallWithContext(cctx, propertiesIface+".Get", 0, advManagerIface, "ActiveInstances").
		Store(&v)
	if err != nil {
		return 0, fmt.Errorf("read active advertisements: %w", err)
	}
	switch n := v.Value().(type) {
	case byte:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case int32:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected ActiveInstances type %T", n)
	}
}

// Register exports a fresh advertisement object and registers it.
func (h *Handle) Register(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := advertisementPath(h.advNext)
	h.advNext++

	adv := &advertisement{released: func() {
		h.radio.logger.Info("Advertisement released by bluetoothd", "path", path)
	}}
	if _, err := exportObject(h.conn, path, advIface, adv, advertisementProps(h.radio.svc, h.radio.cfg.LocalName)); err != nil {
		return err
	}
	if err := h.call(ctx, h.adapter, advManagerIface+".RegisterAdvertisement", path, map[string]dbus.Variant{}); err != nil {
		unexportObject(h.conn, path, advIface)
		return fmt.Errorf("register advertisement: %w", err)
	}
	h.advPath = path
	h.radio.logger.Info("Advertising", "name", h.radio.cfg.LocalName, "path", path)
	return nil
}

// Unregister withdraws the current advertisement, if any. The object is
// forgotten even when BlueZ refuses the call.
func (h *Handle) Unregister(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := h.advPath
	if path == "" {
		return nil
	}
	h.advPath = ""
	defer unexportObject(h.conn, path, advIface)

	if err := h.call(ctx, h.adapter, advManagerIface+".UnregisterAdvertisement", path); err != nil {
		return fmt.Errorf("unregister advertisement: %w", err)
	}
	return nil
}

func (h *Handle) call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) error {
	cctx, cancel := context.WithTimeout(ctx, h.radio.cfg.CallTimeout)
	defer cancel()
	return h.conn.Object(bluezBus, path).CallWithContext(cctx, method, 0, args...).Err
}
