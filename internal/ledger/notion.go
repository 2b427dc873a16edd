package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// Notion database property names. The title property holds the concept.
const (
	notionPropConcept   = "Concepto"
	notionPropTimestamp = "Fecha"
	notionPropSubmitter = "Usuario"
	notionPropType      = "Tipo"
	notionPropCategory  = "Categoría"
	notionPropAmount    = "Monto"
	notionPropPeriod    = "Mes"
	notionPropSource    = "Origen"
)

// NotionService is the part of the Notion API the ledger uses.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// NotionClient implements NotionService with the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a NotionClient with the integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreatePage creates a page in a database with the given properties.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// QueryDatabase queries a database.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

// Notion records each transaction as a page in a Notion database.
type Notion struct {
	service    NotionService
	databaseID string
	loc        *time.Location
}

// NewNotion creates a Notion ledger writing to databaseID.
func NewNotion(service NotionService, databaseID string, loc *time.Location) *Notion {
	return &Notion{service: service, databaseID: databaseID, loc: loc}
}

// Append implements Writer.
func (n *Notion) Append(ctx context.Context, tx domain.Transaction) error {
	if _, err := n.service.CreatePage(ctx, n.databaseID, TransactionToNotionProperties(tx, n.loc)); err != nil {
		return fmt.Errorf("Notion.Append: %w: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

// LastRecord implements Writer. Pages are ordered by creation time.
func (n *Notion) LastRecord(ctx context.Context) (*domain.Record, error) {
	resp, err := n.service.QueryDatabase(ctx, n.databaseID, &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{
			{Timestamp: notionapi.TimestampCreated, Direction: notionapi.SortOrderDESC},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("Notion.LastRecord: %w: %v", domain.ErrLedgerUnavailable, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return RecordFromNotionPage(resp.Results[0]), nil
}

// TransactionToNotionProperties maps a transaction to database properties.
func TransactionToNotionProperties(tx domain.Transaction, loc *time.Location) notionapi.Properties {
	cells := Row(tx, loc)
	props := notionapi.Properties{
		notionPropConcept: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: tx.Concept}},
			},
		},
		notionPropTimestamp: richText(cells[0]),
		notionPropSubmitter: richText(tx.Submitter),
		notionPropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Type.Label()},
		},
		notionPropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Category.Label()},
		},
		notionPropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		notionPropPeriod: richText(tx.PeriodLabel),
	}
	if tx.Source != "" {
		props[notionPropSource] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Source)},
		}
	}
	return props
}

// RecordFromNotionPage reads a ledger record back from a queried page.
// Missing properties are left empty.
func RecordFromNotionPage(page notionapi.Page) *domain.Record {
	rec := &domain.Record{
		Timestamp: pageRichText(page, notionPropTimestamp),
		Submitter: pageRichText(page, notionPropSubmitter),
		Type:      pageSelect(page, notionPropType),
		Category:  pageSelect(page, notionPropCategory),
		Period:    pageRichText(page, notionPropPeriod),
	}
	if prop, ok := page.Properties[notionPropConcept].(*notionapi.TitleProperty); ok && len(prop.Title) > 0 {
		rec.Concept = prop.Title[0].PlainText
	}
	if prop, ok := page.Properties[notionPropAmount].(*notionapi.NumberProperty); ok {
		rec.Amount = decimal.NewFromFloat(prop.Number).String()
	}
	return rec
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
		},
	}
}

func pageRichText(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name].(*notionapi.RichTextProperty); ok && len(prop.RichText) > 0 {
		return prop.RichText[0].PlainText
	}
	return ""
}

func pageSelect(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name].(*notionapi.SelectProperty); ok {
		return prop.Select.Name
	}
	return ""
}

var _ Writer = (*Notion)(nil)
