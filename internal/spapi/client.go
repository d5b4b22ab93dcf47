package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/oauth2"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
)

// SQPReportType is the Brand Analytics search query performance report
const SQPReportType = "GET_BRAND_ANALYTICS_SEARCH_QUERY_PERFORMANCE_REPORT"

const reportsPath = "/reports/2021-06-30/reports"

// Report processing states
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFatal      = "FATAL"
	StatusCancelled  = "CANCELLED"
)

// Client is a minimal SP-API Reports client scoped to SQP reports.
// The LWA access token travels in the x-amz-access-token header;
// document downloads go to presigned URLs without it.
type Client struct {
	cfg    *Config
	http   *http.Client
	tokens oauth2.TokenSource
	logger *logging.Logger
}

// NewClient builds a client. tokens may be nil for endpoints that do
// not require auth (tests); httpClient nil gets a 30s-timeout default.
func NewClient(cfg *Config, httpClient *http.Client, tokens oauth2.TokenSource, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, tokens: tokens, logger: logger}
}

// ReportStatus is one report's lifecycle state
type ReportStatus struct {
	ReportID         string            `json:"reportId"`
	ProcessingStatus string            `json:"processingStatus"`
	ReportDocumentID string            `json:"reportDocumentId,omitempty"`
	ReportType       string            `json:"reportType,omitempty"`
	CreatedTime      string            `json:"createdTime,omitempty"`
	ReportOptions    map[string]string `json:"reportOptions,omitempty"`
}

// ReportDocument points at a downloadable, possibly compressed payload
type ReportDocument struct {
	ReportDocumentID     string `json:"reportDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm,omitempty"`
}

type createReportRequest struct {
	ReportType     string            `json:"reportType"`
	MarketplaceIDs []string          `json:"marketplaceIds"`
	ReportOptions  map[string]string `json:"reportOptions"`
	DataStartTime  string            `json:"dataStartTime"`
	DataEndTime    string            `json:"dataEndTime"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

type listReportsResponse struct {
	Reports []ReportStatus `json:"reports"`
}

// CreateReport requests a weekly SQP report for the ASIN. weekStart
// must be the Sunday the reporting week begins on; the period runs
// through the following Saturday.
func (c *Client) CreateReport(ctx context.Context, asin string, weekStart time.Time) (string, error) {
	if weekStart.Weekday() != time.Sunday {
		return "", sqperrors.NewSqpError(
			sqperrors.Validation,
			fmt.Sprintf("week start %s is a %s; SQP weekly reports begin on a Sunday", weekStart.Format("2006-01-02"), weekStart.Weekday()),
			nil, nil,
		)
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	req := createReportRequest{
		ReportType:     SQPReportType,
		MarketplaceIDs: []string{c.cfg.MarketplaceID},
		ReportOptions: map[string]string{
			"reportPeriod": "WEEK",
			"asin":         asin,
		},
		DataStartTime: weekStart.Format("2006-01-02") + "T00:00:00Z",
		DataEndTime:   weekEnd.Format("2006-01-02") + "T23:59:59Z",
	}

	var resp createReportResponse
	if err := c.doJSON(ctx, http.MethodPost, reportsPath, nil, req, &resp); err != nil {
		return "", err
	}
	c.logger.Info("report requested", map[string]interface{}{
		"report_id": resp.ReportID,
		"asin":      asin,
		"period":    req.DataStartTime[:10] + ".." + req.DataEndTime[:10],
	})
	return resp.ReportID, nil
}

// GetReport fetches one report's processing status
func (c *Client) GetReport(ctx context.Context, reportID string) (*ReportStatus, error) {
	var status ReportStatus
	if err := c.doJSON(ctx, http.MethodGet, reportsPath+"/"+url.PathEscape(reportID), nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListReports returns recent SQP reports, newest first
func (c *Client) ListReports(ctx context.Context, pageSize int) ([]ReportStatus, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	query := url.Values{
		"reportTypes": {SQPReportType},
		"pageSize":    {fmt.Sprintf("%d", pageSize)},
	}
	var resp listReportsResponse
	if err := c.doJSON(ctx, http.MethodGet, reportsPath, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

// GetReportDocument resolves a document id to its presigned URL
func (c *Client) GetReportDocument(ctx context.Context, documentID string) (*ReportDocument, error) {
	var doc ReportDocument
	path := "/reports/2021-06-30/documents/" + url.PathEscape(documentID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DownloadDocument fetches the document payload from its presigned URL
// and decompresses it when the API says it is gzipped.
func (c *Client) DownloadDocument(ctx context.Context, doc *ReportDocument) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.URL, nil)
	if err != nil {
		return nil, err
	}
	// Presigned URL: no access token here.
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.SpapiError, "document download failed", err, nil,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sqperrors.NewSqpError(
			sqperrors.SpapiError,
			fmt.Sprintf("document download returned %s", resp.Status),
			nil, nil,
		)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(doc.CompressionAlgorithm, "GZIP") {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, sqperrors.NewSqpError(
				sqperrors.SpapiError, "cannot decompress report document", err, nil,
			)
		}
		defer gz.Close()
		if data, err = io.ReadAll(gz); err != nil {
			return nil, sqperrors.NewSqpError(
				sqperrors.SpapiError, "cannot decompress report document", err, nil,
			)
		}
	}
	return data, nil
}

// WaitForReport polls until the report finishes. SQP reports take 30
// to 60 minutes; cancellation and the configured timeout both stop the
// wait.
func (c *Client) WaitForReport(ctx context.Context, reportID string) (*ReportStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout())
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval())
	defer ticker.Stop()

	for {
		status, err := c.GetReport(ctx, reportID)
		if err != nil {
			return nil, err
		}
		switch status.ProcessingStatus {
		case StatusDone:
			return status, nil
		case StatusFatal, StatusCancelled:
			return nil, sqperrors.NewSqpError(
				sqperrors.SpapiError,
				fmt.Sprintf("report %s ended as %s", reportID, status.ProcessingStatus),
				nil, nil,
			).WithDetails(map[string]interface{}{"reportDocumentId": status.ReportDocumentID})
		}

		c.logger.Debug("report not ready", map[string]interface{}{
			"report_id": reportID,
			"status":    status.ProcessingStatus,
		})

		select {
		case <-ctx.Done():
			return nil, sqperrors.NewSqpError(
				sqperrors.SpapiError,
				fmt.Sprintf("gave up waiting for report %s", reportID),
				ctx.Err(), nil,
			)
		case <-ticker.C:
		}
	}
}

// FetchWeeklyReport runs the whole lifecycle: create, wait, download.
func (c *Client) FetchWeeklyReport(ctx context.Context, asin string, weekStart time.Time) ([]byte, error) {
	reportID, err := c.CreateReport(ctx, asin, weekStart)
	if err != nil {
		return nil, err
	}
	return c.FetchReportByID(ctx, reportID)
}

// FetchReportByID waits for an existing report and downloads it
func (c *Client) FetchReportByID(ctx context.Context, reportID string) ([]byte, error) {
	status, err := c.WaitForReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if status.ReportDocumentID == "" {
		return nil, sqperrors.NewSqpError(
			sqperrors.SpapiError,
			fmt.Sprintf("report %s finished without a document", reportID),
			nil, nil,
		)
	}
	doc, err := c.GetReportDocument(ctx, status.ReportDocumentID)
	if err != nil {
		return nil, err
	}
	return c.DownloadDocument(ctx, doc)
}

// TestConnection verifies auth and endpoint reachability with a
// one-row report listing.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.ListReports(ctx, 1)
	return err
}

// apiErrorResponse is the SP-API error envelope
type apiErrorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details,omitempty"`
	} `json:"errors"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return sqperrors.NewSqpError(
				sqperrors.AuthError,
				"cannot obtain LWA access token",
				err,
				[]sqperrors.FixAction{
					{Type: sqperrors.RunCommand, Description: "Re-enter your LWA credentials", Command: "sqptrack auth set"},
				},
			)
		}
		req.Header.Set("x-amz-access-token", tok.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return sqperrors.NewSqpError(
			sqperrors.SpapiError,
			fmt.Sprintf("request to %s failed", path),
			err, nil,
		)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("%s %s returned %s", method, path, resp.Status)
		var envelope apiErrorResponse
		if json.Unmarshal(data, &envelope) == nil && len(envelope.Errors) > 0 {
			msg = fmt.Sprintf("%s: %s (%s)", msg, envelope.Errors[0].Message, envelope.Errors[0].Code)
		}
		code := sqperrors.SpapiError
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = sqperrors.AuthError
		}
		return sqperrors.NewSqpError(code, msg, nil, nil)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return sqperrors.NewSqpError(
				sqperrors.SpapiError,
				fmt.Sprintf("cannot decode %s response", path),
				err, nil,
			)
		}
	}
	return nil
}
