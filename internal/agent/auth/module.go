package auth

import (
	"context"
	"encoding/json"
	"errors"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/pkg/log"
)

const (
	VerbAuth     core.Verb = "auth:"
	VerbRegister core.Verb = "register:"
)

// UserStore is what the module needs from the backend.
type UserStore interface {
	Authenticate(ctx context.Context, username, passwordHash string) (bool, error)
	Register(ctx context.Context, u User) error
}

type authRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	DeviceSerial string `json:"device_serial"`
}

type registerRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DeviceSerial string `json:"device_serial"`
}

// Module answers auth: and register: with a status notification each.
type Module struct {
	store    UserStore
	state    *core.State
	notifier core.StatusNotifier
	logger   log.Logger
}

var _ core.Module = (*Module)(nil)

func NewModule(store UserStore, state *core.State, notifier core.StatusNotifier) *Module {
	return &Module{
		store:    store,
		state:    state,
		notifier: notifier,
		logger:   log.WithName("auth"),
	}
}

func (m *Module) Name() string { return "auth" }

func (m *Module) Routes() map[core.Verb]core.CommandFunc {
	return map[core.Verb]core.CommandFunc{
		VerbAuth:     m.authenticate,
		VerbRegister: m.register,
	}
}

func (m *Module) authenticate(ctx context.Context, arg string) error {
	var req authRequest
	if err := json.Unmarshal([]byte(arg), &req); err != nil {
		m.notifier.Notify(ctx, core.StatusAuthError)
		return err
	}
	m.logger.Info("Authentication request", "username", req.Username)

	ok, err := m.store.Authenticate(ctx, req.Username, HashPassword(req.Password))
	if err != nil {
		m.logger.Error(err, "User store query failed", "username", req.Username)
	}
	if err != nil || !ok {
		m.logger.Warn("Authentication failed", "username", req.Username)
		m.notifier.Notify(ctx, core.StatusAuthFailed)
		return nil
	}

	m.logger.Info("Authentication successful", "username", req.Username)
	m.notifier.Notify(ctx, core.StatusAuthSuccess)
	return nil
}

func (m *Module) register(ctx context.Context, arg string) error {
	var req registerRequest
	if err := json.Unmarshal([]byte(arg), &req); err != nil {
		m.notifier.Notify(ctx, core.StatusRegisterError)
		return err
	}
	m.logger.Info("Registration request", "username", req.Username, "deviceSerial", req.DeviceSerial)

	err := m.store.Register(ctx, User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: HashPassword(req.Password),
		DeviceID:     m.state.DeviceHash(),
		DeviceSerial: req.DeviceSerial,
	})
	switch {
	case errors.Is(err, ErrUserExists):
		m.logger.Warn("User already exists", "username", req.Username)
		m.notifier.Notify(ctx, core.StatusRegisterFailed)
	case err != nil:
		m.logger.Error(err, "Registration failed", "username", req.Username)
		m.notifier.Notify(ctx, core.StatusRegisterFailed)
	default:
		m.logger.Info("Registration complete", "username", req.Username)
		m.notifier.Notify(ctx, core.StatusRegisterComplete)
	}
	return nil
}
