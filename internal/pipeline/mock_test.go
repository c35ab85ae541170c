package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/invoice-cli/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveRawInvoice(ctx context.Context, inv *model.RawInvoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockStore) ListRawInvoices(ctx context.Context, statuses ...model.ProcessingStatus) ([]model.RawInvoice, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawInvoice), args.Error(1)
}

func (m *mockStore) UpdateRawInvoiceStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *mockStore) RawInvoiceExistsForEmail(ctx context.Context, emailID string) (bool, error) {
	args := m.Called(ctx, emailID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) SaveProcessedInvoice(ctx context.Context, inv *model.ProcessedInvoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockStore) ListProcessedInvoices(ctx context.Context, statuses ...model.SyncStatus) ([]model.ProcessedInvoice, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProcessedInvoice), args.Error(1)
}

func (m *mockStore) UpdateProcessedSyncStatus(ctx context.Context, id string, status model.SyncStatus, errMsg string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *mockStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ProcessedInvoiceExistsForRaw(ctx context.Context, rawID string) (bool, error) {
	args := m.Called(ctx, rawID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) CountByStatus(ctx context.Context) (*model.StatusCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusCounts), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Mail Source Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchNew(ctx context.Context) ([]model.Email, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Email), args.Error(1)
}

func (m *mockSource) MarkConsumed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, locator string) (map[string]any, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// --- Appender Mock ---

type mockAppender struct {
	mock.Mock
}

func (m *mockAppender) AppendRow(ctx context.Context, inv *model.ProcessedInvoice) error {
	return m.Called(ctx, inv).Error(0)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, s model.RunSummary) error {
	return m.Called(ctx, s).Error(0)
}
