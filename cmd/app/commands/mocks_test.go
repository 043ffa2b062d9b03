package commands

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

type mockLicenseUseCase struct {
	mock.Mock
}

func (m *mockLicenseUseCase) Activate(ctx context.Context, key string) (*licenseDomain.StatusSnapshot, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.StatusSnapshot), args.Error(1)
}

func (m *mockLicenseUseCase) Status(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.StatusSnapshot), args.Error(1)
}

func (m *mockLicenseUseCase) RefreshStatus(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.StatusSnapshot), args.Error(1)
}

type mockShareTokenUseCase struct {
	mock.Mock
}

func (m *mockShareTokenUseCase) Issue(ctx context.Context, input sharetokenUsecase.IssueInput) (*sharetokenUsecase.IssueOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharetokenUsecase.IssueOutput), args.Error(1)
}

func (m *mockShareTokenUseCase) ValidateAndConsume(ctx context.Context, secret string, targetID int64) (*sharetokenDomain.ValidationResult, error) {
	args := m.Called(ctx, secret, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharetokenDomain.ValidationResult), args.Error(1)
}

func (m *mockShareTokenUseCase) Peek(ctx context.Context, secret string) (*sharetokenDomain.ShareToken, error) {
	args := m.Called(ctx, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharetokenDomain.ShareToken), args.Error(1)
}

func (m *mockShareTokenUseCase) Revoke(ctx context.Context, secret string) (bool, error) {
	args := m.Called(ctx, secret)
	return args.Bool(0), args.Error(1)
}

func (m *mockShareTokenUseCase) ListByTarget(ctx context.Context, targetID int64, limit, offset int) ([]*sharetokenDomain.ShareToken, error) {
	args := m.Called(ctx, targetID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sharetokenDomain.ShareToken), args.Error(1)
}

func (m *mockShareTokenUseCase) SweepDead(ctx context.Context, dryRun bool) (int64, error) {
	args := m.Called(ctx, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Check(ctx context.Context, action, clientAddress string, targetID int64) (*ratelimitDomain.Decision, error) {
	args := m.Called(ctx, action, clientAddress, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ratelimitDomain.Decision), args.Error(1)
}

func (m *mockLimiter) RecordAttempt(ctx context.Context, action, clientAddress string, targetID int64, success bool) error {
	args := m.Called(ctx, action, clientAddress, targetID, success)
	return args.Error(0)
}

func (m *mockLimiter) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
