// Package ble is the BLE provisioning service: three characteristics for
// credentials, status and commands, exported to BlueZ over D-Bus, plus the
// guard that keeps the advertisement alive.
package ble

import (
	"context"
	"strings"
	"sync"
	"time"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/wifi"
	"optix.io/optix/pkg/log"
)

// CandidateSink receives credentials written by the phone.
type CandidateSink interface {
	Submit(c wifi.Candidate)
}

// CommandDispatcher executes a command string such as "get_serial" or "auth:{...}".
type CommandDispatcher interface {
	Dispatch(ctx context.Context, cmd string)
}

// Emitter publishes a changed value to subscribed centrals.
type Emitter func(ep *Endpoint, value []byte)

type ServiceConfig struct {
	ServiceUUID    string
	CredentialUUID string
	StatusUUID     string
	CommandUUID    string
}

// Service owns the endpoint registry and dispatches reads and writes by role.
// It never returns application errors to the radio stack.
type Service struct {
	uuid      string
	endpoints []*Endpoint
	byUUID    map[string]*Endpoint

	state    *core.State
	sink     CandidateSink
	commands CommandDispatcher
	logger   log.Logger

	mu      sync.RWMutex
	emitter Emitter
}

var _ core.StatusNotifier = (*Service)(nil)

func NewService(cfg ServiceConfig, state *core.State, sink CandidateSink, commands CommandDispatcher) *Service {
	s := &Service{
		uuid: strings.ToLower(cfg.ServiceUUID),
		endpoints: []*Endpoint{
			newEndpoint(RoleCredential, strings.ToLower(cfg.CredentialUUID), FlagWrite, FlagWriteWithoutResponse),
			newEndpoint(RoleStatus, strings.ToLower(cfg.StatusUUID), FlagRead, FlagNotify),
			newEndpoint(RoleCommand, strings.ToLower(cfg.CommandUUID), FlagWrite, FlagWriteWithoutResponse),
		},
		byUUID:   map[string]*Endpoint{},
		state:    state,
		sink:     sink,
		commands: commands,
		logger:   log.WithName("ble"),
	}
	for _, ep := range s.endpoints {
		s.byUUID[ep.UUID] = ep
	}
	s.endpoint(RoleStatus).SetValue([]byte(core.StatusReady))
	return s
}

// UUID of the GATT service.
func (s *Service) UUID() string { return s.uuid }

// Endpoints in export order.
func (s *Service) Endpoints() []*Endpoint { return s.endpoints }

// Lookup finds an endpoint by UUID (case-insensitive).
func (s *Service) Lookup(uuid string) (*Endpoint, bool) {
	ep, ok := s.byUUID[strings.ToLower(uuid)]
	return ep, ok
}

func (s *Service) endpoint(r Role) *Endpoint {
	for _, ep := range s.endpoints {
		if ep.Role == r {
			return ep
		}
	}
	return nil
}

// SetEmitter installs the transport hook used for notifications; nil detaches it.
func (s *Service) SetEmitter(e Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = e
}

// HandleRead answers a read. The status endpoint reports live connectivity.
func (s *Service) HandleRead(ep *Endpoint, offset int) []byte {
	if ep.Role == RoleStatus {
		status := core.StatusWiFiDisconnected
		if s.state.NetworkConnected() {
			status = core.StatusWiFiConnected
		}
		ep.SetValue([]byte(status))
		s.logger.Debug("Status read", "status", status)
	}

	v := ep.Value()
	switch {
	case offset <= 0:
		return v
	case offset >= len(v):
		return []byte{}
	default:
		return v[offset:]
	}
}

// HandleWrite stores data and routes it by role. Malformed input is logged and dropped.
func (s *Service) HandleWrite(ctx context.Context, ep *Endpoint, data []byte) {
	ep.SetValue(data)

	switch ep.Role {
	case RoleCredential:
		cand, err := wifi.ParseCandidate(data, wifi.SourceRadio, time.Now())
		if err != nil {
			s.logger.Warn("Dropping credential write", "error", err.Error())
			return
		}
		s.logger.Info("WiFi credentials received", "ssid", cand.SSID)
		s.sink.Submit(cand)

	case RoleCommand:
		cmd := strings.TrimSpace(string(data))
		if cmd == "" {
			return
		}
		s.logger.Info("Command received", "command", commandName(cmd))
		go s.commands.Dispatch(ctx, cmd)

	default:
		s.logger.Debug("Ignoring write", "endpoint", ep.Role.String())
	}
}

// StartNotify and StopNotify track subscriptions.
func (s *Service) StartNotify(ep *Endpoint) { ep.setNotifying(true) }
func (s *Service) StopNotify(ep *Endpoint)  { ep.setNotifying(false) }

// Notify sets the status value and pushes it to subscribers.
func (s *Service) Notify(_ context.Context, msg string) {
	ep := s.endpoint(RoleStatus)
	value := []byte(msg)
	ep.SetValue(value)

	s.mu.RLock()
	emit := s.emitter
	s.mu.RUnlock()

	if emit == nil {
		s.logger.Debug("Radio down, status kept for the next read", "status", msg)
		return
	}
	emit(ep, value)
	s.logger.Info("Status sent", "status", msg)
}

// commandName hides command arguments, which may carry passwords.
func commandName(cmd string) string {
	name, _, _ := strings.Cut(cmd, ":")
	return name
}
