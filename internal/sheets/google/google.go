package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"painel/internal/core"
	ports "painel/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads the extracts from tabs of one spreadsheet. Each extract lives
// in the tab named after its kind unless overridden.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[core.Kind]string
}

// Ensure interface conformance
var (
	_ ports.TableReader = (*Client)(nil)
	_ ports.SourceNamer = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using service account credentials from
// the environment.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, nil), nil
}

// NewWithService wraps an existing service. tabs overrides tab names per kind.
func NewWithService(svc *gsheet.Service, spreadsheetID string, tabs map[core.Kind]string) *Client {
	names := make(map[core.Kind]string, len(core.Kinds()))
	for _, kind := range core.Kinds() {
		names[kind] = string(kind)
	}
	for kind, name := range tabs {
		if name = strings.TrimSpace(name); name != "" {
			names[kind] = name
		}
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, tabs: names}
}

// newSheetsService initializes a read-only Sheets Service. Service account
// credentials win; otherwise a saved OAuth user token is used.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var opt goption.ClientOption
	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		opt = goption.WithCredentialsJSON([]byte(serviceAccountJSON))
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opt = goption.WithCredentialsJSON(credentialsJSON)
	default:
		ts, err := oauthTokenSource(ctx)
		if errors.Is(err, ErrNoOAuthClient) {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client)")
		}
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "Using OAuth user credentials", "token_file", TokenFile())
		opt = goption.WithTokenSource(ts)
	}

	service, err := gsheet.NewService(ctx, opt, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) SourceName() string {
	return "sheets:" + c.spreadsheetID
}

// ReadTable fetches the whole tab with unformatted values; dates come back as
// serial numbers.
func (c *Client) ReadTable(ctx context.Context, kind core.Kind) (core.Table, error) {
	if c.svc == nil {
		return core.Table{}, errors.New("sheets service not initialized")
	}
	tab, ok := c.tabs[kind]
	if !ok {
		return core.Table{}, fmt.Errorf("%w: %q", core.ErrUnknownDataset, kind)
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTab(tab)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return core.Table{}, fmt.Errorf("read tab %q: %w", tab, err)
	}
	return parseValues(resp.Values), nil
}

// quoteTab builds an A1 range covering a whole tab; names with spaces or
// quotes must be single-quoted.
func quoteTab(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
