// Package google implements the spreadsheet store on the Google Sheets v4 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finsheet/internal/log"
	"finsheet/internal/sheets"
)

// Config selects the spreadsheet and the service-account credentials. Either
// ClientEmail with PrivateKey, CredentialsJSON or CredentialsFile must be set.
type Config struct {
	SpreadsheetID   string
	ClientEmail     string
	PrivateKey      string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ sheets.Store = (*Client)(nil)

// New authenticates with a service account and returns a client bound to one spreadsheet.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// oauth2 takes its base transport from the context
	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(base, ts)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
		sheetIDs:      map[string]int64{},
	}
}

func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	switch {
	case cfg.ClientEmail != "" && cfg.PrivateKey != "":
		conf := &jwt.Config{
			Email:      cfg.ClientEmail,
			PrivateKey: []byte(cfg.PrivateKey),
			Scopes:     []string{gsheet.SpreadsheetsScope},
			TokenURL:   google.JWTTokenURL,
		}
		return conf.TokenSource(ctx), nil
	case cfg.CredentialsJSON != "":
		return jwtFromJSON(ctx, []byte(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return jwtFromJSON(ctx, data)
	}
	return nil, errors.New("missing service account credentials")
}

func jwtFromJSON(ctx context.Context, data []byte) (oauth2.TokenSource, error) {
	conf, err := google.JWTConfigFromJSON(data, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return conf.TokenSource(ctx), nil
}

// newHTTPClientWithPooling keeps connections to the Sheets API warm between calls.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// ListPartitions returns sheet titles in tab order.
func (c *Client) ListPartitions(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets(properties(sheetId,title,index))").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}

	props := make([]*gsheet.SheetProperties, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			props = append(props, s.Properties)
		}
	}
	sort.SliceStable(props, func(i, j int) bool { return props[i].Index < props[j].Index })

	c.mu.Lock()
	defer c.mu.Unlock()
	titles := make([]string, 0, len(props))
	for _, p := range props {
		titles = append(titles, p.Title)
		c.sheetIDs[p.Title] = p.SheetId
	}
	return titles, nil
}

// CreatePartition adds a sheet at the end of the tab list.
func (c *Client) CreatePartition(ctx context.Context, label string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: label}},
	}}}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("%w: %q", sheets.ErrPartitionExists, label)
		}
		return fmt.Errorf("add sheet %q: %w", label, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		c.mu.Lock()
		c.sheetIDs[label] = resp.Replies[0].AddSheet.Properties.SheetId
		c.mu.Unlock()
	}
	c.logger.InfoContext(ctx, "Sheet created", log.FieldPartition, label)
	return nil
}

// sheetID resolves a title to its numeric id, refreshing the cache once on a miss.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}
	if _, err := c.ListPartitions(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", sheets.ErrPartitionNotFound, title)
}

// quoteTitle makes a sheet title safe to use as an A1 range.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(gerr.Message), "already exists")
}

func isUnknownRange(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range")
}
