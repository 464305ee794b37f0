package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/engine"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/eventlog"
	"github.com/osse101/mobilesync/internal/policy"
	"github.com/osse101/mobilesync/internal/upload"
)

// MockSyncProcessor is a mock implementation of gateway.SyncProcessor
type MockSyncProcessor struct {
	mock.Mock
}

func (m *MockSyncProcessor) ProcessBatch(ctx context.Context, req domain.BatchRequest) (*engine.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*engine.Result)
	return res, args.Error(1)
}

// MockUploadService is a mock implementation of UploadService
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Init(ctx context.Context, req upload.InitRequest) (*domain.UploadSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*domain.UploadSession)
	return s, args.Error(1)
}

func (m *MockUploadService) UploadChunk(ctx context.Context, id string, index int, data []byte, checksum string) (*upload.ChunkResult, error) {
	args := m.Called(ctx, id, index, data, checksum)
	res, _ := args.Get(0).(*upload.ChunkResult)
	return res, args.Error(1)
}

func (m *MockUploadService) Status(ctx context.Context, id string) (*domain.UploadStatus, error) {
	args := m.Called(ctx, id)
	st, _ := args.Get(0).(*domain.UploadStatus)
	return st, args.Error(1)
}

func (m *MockUploadService) Finalize(ctx context.Context, id string) (*domain.FileReference, error) {
	args := m.Called(ctx, id)
	ref, _ := args.Get(0).(*domain.FileReference)
	return ref, args.Error(1)
}

func (m *MockUploadService) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPolicyService is a mock implementation of policy.Service
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) GetPolicy(ctx context.Context, tenantID, domainName string) domain.ConflictPolicy {
	args := m.Called(ctx, tenantID, domainName)
	return args.Get(0).(domain.ConflictPolicy)
}

func (m *MockPolicyService) SetPolicy(ctx context.Context, p domain.ConflictPolicy) (domain.ConflictPolicy, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.ConflictPolicy), args.Error(1)
}

func (m *MockPolicyService) ListPolicies(ctx context.Context, tenantID string) ([]domain.ConflictPolicy, error) {
	args := m.Called(ctx, tenantID)
	list, _ := args.Get(0).([]domain.ConflictPolicy)
	return list, args.Error(1)
}

func (m *MockPolicyService) Invalidate(ctx context.Context, tenantID, domainName string) {
	m.Called(ctx, tenantID, domainName)
}

func (m *MockPolicyService) CacheStats() policy.CacheStats {
	args := m.Called()
	return args.Get(0).(policy.CacheStats)
}

// MockConflictService is a mock implementation of ConflictService
type MockConflictService struct {
	mock.Mock
}

func (m *MockConflictService) Get(ctx context.Context, conflictID string) (*domain.ConflictRecord, error) {
	args := m.Called(ctx, conflictID)
	rec, _ := args.Get(0).(*domain.ConflictRecord)
	return rec, args.Error(1)
}

func (m *MockConflictService) List(ctx context.Context, filter conflict.Filter) ([]domain.ConflictRecord, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]domain.ConflictRecord)
	return list, args.Error(1)
}

func (m *MockConflictService) ResolvePending(ctx context.Context, conflictID string, resolution domain.Resolution, clientData map[string]any) (*conflict.Resolution, error) {
	args := m.Called(ctx, conflictID, resolution, clientData)
	res, _ := args.Get(0).(*conflict.Resolution)
	return res, args.Error(1)
}

// MockDeviceHealthService is a mock implementation of DeviceHealthService
type MockDeviceHealthService struct {
	mock.Mock
}

func (m *MockDeviceHealthService) List(ctx context.Context, userID string) ([]domain.DeviceHealth, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]domain.DeviceHealth)
	return list, args.Error(1)
}

// MockAnalyticsService is a mock implementation of AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Snapshots(ctx context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error) {
	args := m.Called(ctx, tenantID, since)
	list, _ := args.Get(0).([]domain.AnalyticsSnapshot)
	return list, args.Error(1)
}

// MockEventlogService is a mock implementation of eventlog.Service
type MockEventlogService struct {
	mock.Mock
}

func (m *MockEventlogService) Subscribe(bus event.Bus) error {
	args := m.Called(bus)
	return args.Error(0)
}

func (m *MockEventlogService) Events(ctx context.Context, filter eventlog.EventFilter) ([]eventlog.Event, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]eventlog.Event)
	return list, args.Error(1)
}

func (m *MockEventlogService) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}
