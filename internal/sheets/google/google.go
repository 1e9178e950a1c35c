package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensebot/internal/cache"
	"expensebot/internal/core"
	applog "expensebot/internal/log"
	ports "expensebot/internal/sheets"

	"golang.org/x/sync/singleflight"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	tabPrefix    = "User_"
	maxTabLength = 31
	dataColumns  = "A:D"
	headerRange  = "A1:D1"
)

var header = []interface{}{"Date", "Category", "Amount", "Note"}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// Client stores every user's expenses in a dedicated tab of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	// tabs maps a tab title to its sheet id. An entry means the tab exists
	// and has its header row.
	tabs  *cache.LRUCache[int64]
	group singleflight.Group
}

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	CacheTTL      time.Duration
	CacheSize     int
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 1024
	}
	return o
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, credentialsJSON []byte) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SHEETS_ID")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account", applog.FieldComponent, applog.ComponentSheets,
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, opts), nil
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SHEETS_ID (or GOOGLE_SPREADSHEET_ID) and credentials, see
// CredentialsFromEnv.
func NewFromEnv(ctx context.Context, cacheTTL time.Duration) (*Client, error) {
	creds, err := CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return New(ctx, Options{SpreadsheetID: SpreadsheetIDFromEnv(), CacheTTL: cacheTTL}, creds)
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		tabs:          cache.NewLRUCache[int64](opts.CacheSize, opts.CacheTTL),
	}
}

// TabName returns "User_<digits of userID>", capped at 31 characters.
func TabName(userID string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, userID)
	name := tabPrefix + digits
	if len(name) > maxTabLength {
		name = name[:maxTabLength]
	}
	return name
}

// TabCache exposes the tab metadata cache for periodic cleanup.
func (c *Client) TabCache() cache.Cleaner { return c.tabs }

// InvalidateTab forgets cached metadata for the user's tab.
func (c *Client) InvalidateTab(userID string) {
	c.tabs.Delete(TabName(userID))
}

func (c *Client) Append(ctx context.Context, userID string, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	tab := TabName(userID)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!%s", tab, dataColumns)
	vr := &gsheet.ValueRange{Values: [][]interface{}{{r.Date, r.Category, r.Amount, r.Note}}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.tabs.Delete(tab)
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Expense appended to sheet", applog.FieldComponent, applog.ComponentSheets, "tab", tab, "sheets_ref", ref)
	return ref, nil
}

func (c *Client) ReadAll(ctx context.Context, userID string) ([]core.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	tab := TabName(userID)
	if err := c.ensureTab(ctx, tab); err != nil {
		return nil, err
	}

	rng := fmt.Sprintf("%s!%s", tab, dataColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		c.tabs.Delete(tab)
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	records, skipped := parseRows(resp.Values)
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped malformed expense rows", applog.FieldComponent, applog.ComponentSheets, "tab", tab, "skipped", skipped)
	}
	return records, nil
}

// ensureTab makes sure the tab exists with its header row. Concurrent
// callers for the same tab share one round trip.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	if _, ok := c.tabs.Get(tab); ok {
		return nil
	}
	_, err, _ := c.group.Do(tab, func() (interface{}, error) {
		id, err := c.lookupOrCreateTab(ctx, tab)
		if err != nil {
			return nil, err
		}
		c.tabs.Set(tab, id)
		return id, nil
	})
	return err
}

func (c *Client) lookupOrCreateTab(ctx context.Context, tab string) (int64, error) {
	id, found, err := c.findTab(ctx, tab)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		// Another process may have created it in the meantime.
		if id, found, ferr := c.findTab(ctx, tab); ferr == nil && found {
			return id, nil
		}
		return 0, fmt.Errorf("create tab %s: %w", tab, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}

	hdr := &gsheet.ValueRange{Values: [][]interface{}{header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!%s", tab, headerRange), hdr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write header for %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Created user sheet", applog.FieldComponent, applog.ComponentSheets, "tab", tab, "sheet_id", id)
	return id, nil
}

func (c *Client) findTab(ctx context.Context, tab string) (int64, bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}
