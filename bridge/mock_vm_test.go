package bridge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/nativebridge/bridge"
)

type mockVM struct {
	mock.Mock
}

func (m *mockVM) SuccessStatus() bridge.Status {
	return m.Called().Get(0).(bridge.Status)
}

func (m *mockVM) GetEnv() (bridge.Env, error) {
	args := m.Called()
	env, _ := args.Get(0).(bridge.Env)
	return env, args.Error(1)
}

func (m *mockVM) AttachCurrentThread() (bridge.Env, error) {
	args := m.Called()
	env, _ := args.Get(0).(bridge.Env)
	return env, args.Error(1)
}

func (m *mockVM) DetachCurrentThread() error {
	return m.Called().Error(0)
}

func TestInitialize_AsksVMForLoadEnvAndStatus(t *testing.T) {
	s, _ := newTestState()
	env := bridge.NewBaseEnv()
	vm := &mockVM{}
	vm.On("GetEnv").Return(env, nil).Once()
	vm.On("SuccessStatus").Return(bridge.Status(0x00010004)).Once()

	status := s.Initialize(vm, func() error { return nil })

	assert.Equal(t, bridge.Status(0x00010004), status)
	assert.False(t, env.ExceptionCheck())
	vm.AssertExpectations(t)
	vm.AssertNotCalled(t, "AttachCurrentThread")
}

func TestInitialize_RejectThrowsOnCallerEnv(t *testing.T) {
	s, rec := newTestState()
	first := &mockVM{}
	first.On("GetEnv").Return(bridge.NewBaseEnv(), nil)
	first.On("SuccessStatus").Return(bridge.Version16)
	require.Equal(t, bridge.Version16, s.Initialize(first, nil))

	env := bridge.NewBaseEnv()
	second := &mockVM{}
	second.On("GetEnv").Return(env, nil).Once()

	status := s.Initialize(second, func() error {
		t.Fatal("callback must not run on reinitialization")
		return nil
	})

	assert.Equal(t, bridge.StatusErr, status)
	exc := env.ExceptionOccurred()
	require.NotNil(t, exc)
	assert.Equal(t, bridge.KindIllegalState, exc.Kind)
	assert.ErrorIs(t, exc, bridge.ErrAlreadyInitialized)
	assert.Len(t, rec.Errors(), 1)
	second.AssertExpectations(t)
	second.AssertNotCalled(t, "SuccessStatus")
}

func TestAttach_AttachFailure(t *testing.T) {
	vm := &mockVM{}
	vm.On("GetEnv").Return(nil, bridge.ErrNotAttached)
	vm.On("AttachCurrentThread").Return(nil, assert.AnError)

	err := bridge.WithAttached(context.Background(), vm, func(context.Context, bridge.Env) error {
		t.Fatal("fn must not run without an attachment")
		return nil
	})

	require.ErrorIs(t, err, assert.AnError)
	vm.AssertNotCalled(t, "DetachCurrentThread")
}
