package sink

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"
)

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	page, _ := args.Get(0).(*notionapi.Page)
	return page, args.Error(1)
}

type mockSalesforceClient struct {
	mock.Mock
}

func (m *mockSalesforceClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	args := m.Called(ctx, sObjectName, record)
	return args.String(0), args.Error(1)
}
