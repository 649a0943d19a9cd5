package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix.io/optix/internal/agent/core"
)

type fakeStore struct {
	authOK      bool
	authErr     error
	registerErr error
	hashes      []string
	registered  []User
}

func (f *fakeStore) Authenticate(_ context.Context, _ string, hash string) (bool, error) {
	f.hashes = append(f.hashes, hash)
	return f.authOK, f.authErr
}

func (f *fakeStore) Register(_ context.Context, u User) error {
	f.registered = append(f.registered, u)
	return f.registerErr
}

func runModule(t *testing.T, store *fakeStore, verb core.Verb, arg string) []string {
	t.Helper()
	var sent []string
	notifier := core.NotifierFunc(func(_ context.Context, msg string) { sent = append(sent, msg) })
	m := NewModule(store, core.NewState("00000000abcdef01"), notifier)

	fn, ok := m.Routes()[verb]
	require.True(t, ok)
	_ = fn(context.Background(), arg)
	return sent
}

func TestAuthVerb(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		arg   string
		want  string
	}{
		{"success", &fakeStore{authOK: true}, `{"username":"ada","password":"pw"}`, core.StatusAuthSuccess},
		{"wrong password", &fakeStore{}, `{"username":"ada","password":"pw"}`, core.StatusAuthFailed},
		{"backend down", &fakeStore{authOK: true, authErr: errors.New("dial tcp")}, `{"username":"ada","password":"pw"}`, core.StatusAuthFailed},
		{"malformed", &fakeStore{}, `{"username":`, core.StatusAuthError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, runModule(t, tt.store, VerbAuth, tt.arg))
		})
	}
}

func TestAuthSendsHashOnly(t *testing.T) {
	store := &fakeStore{authOK: true}
	runModule(t, store, VerbAuth, `{"username":"ada","password":"password"}`)
	assert.Equal(t, []string{HashPassword("password")}, store.hashes)
}

func TestRegisterVerb(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		arg   string
		want  string
	}{
		{"created", &fakeStore{}, `{"username":"eve","email":"e@x","password":"pw","device_serial":"s1"}`, core.StatusRegisterComplete},
		{"exists", &fakeStore{registerErr: ErrUserExists}, `{"username":"eve","password":"pw"}`, core.StatusRegisterFailed},
		{"rejected", &fakeStore{registerErr: errors.New("409")}, `{"username":"eve","password":"pw"}`, core.StatusRegisterFailed},
		{"malformed", &fakeStore{}, `nope`, core.StatusRegisterError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, runModule(t, tt.store, VerbRegister, tt.arg))
		})
	}
}

func TestRegisterFillsDeviceIdentity(t *testing.T) {
	store := &fakeStore{}
	runModule(t, store, VerbRegister, `{"username":"eve","email":"e@x","password":"pw","device_serial":"s1"}`)

	require.Len(t, store.registered, 1)
	u := store.registered[0]
	assert.Equal(t, core.DeviceHash("00000000abcdef01"), u.DeviceID)
	assert.Equal(t, "s1", u.DeviceSerial)
	assert.Equal(t, HashPassword("pw"), u.PasswordHash)
}
