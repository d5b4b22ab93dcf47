package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/oauth2"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &Config{
		Endpoint:            server.URL,
		MarketplaceID:       "ATVPDKIKX0DER",
		PollIntervalSeconds: 1,
		PollTimeoutMinutes:  1,
	}
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-access-token"})
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	return NewClient(cfg, server.Client(), tokens, logger), server
}

func TestCreateReport(t *testing.T) {
	var captured createReportRequest
	var gotToken string

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reports/2021-06-30/reports" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotToken = r.Header.Get("x-amz-access-token")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"reportId": "129706020488"})
	}))

	// 2025-04-06 is a Sunday.
	weekStart := time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC)
	reportID, err := client.CreateReport(context.Background(), "B0SCOOP0001", weekStart)
	if err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	if reportID != "129706020488" {
		t.Errorf("unexpected report id: %s", reportID)
	}
	if gotToken != "test-access-token" {
		t.Errorf("expected access token header, got %q", gotToken)
	}
	if captured.ReportType != SQPReportType {
		t.Errorf("unexpected report type: %s", captured.ReportType)
	}
	if len(captured.MarketplaceIDs) != 1 || captured.MarketplaceIDs[0] != "ATVPDKIKX0DER" {
		t.Errorf("unexpected marketplaces: %v", captured.MarketplaceIDs)
	}
	if captured.ReportOptions["reportPeriod"] != "WEEK" || captured.ReportOptions["asin"] != "B0SCOOP0001" {
		t.Errorf("unexpected report options: %v", captured.ReportOptions)
	}
	if captured.DataStartTime != "2025-04-06T00:00:00Z" || captured.DataEndTime != "2025-04-12T23:59:59Z" {
		t.Errorf("unexpected period: %s .. %s", captured.DataStartTime, captured.DataEndTime)
	}
}

func TestCreateReportRejectsNonSunday(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid week start")
	}))

	monday := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	_, err := client.CreateReport(context.Background(), "B0SCOOP0001", monday)
	if !sqperrors.IsCode(err, sqperrors.Validation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestFetchReportLifecycle(t *testing.T) {
	// Gzip the document payload the way SP-API serves it.
	payload := []byte(`{"dataByAsin":[]}`)
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write(payload)
	gz.Close()

	mux := http.NewServeMux()
	var docURL string
	mux.HandleFunc("/reports/2021-06-30/reports/129706020488", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ReportStatus{
			ReportID:         "129706020488",
			ProcessingStatus: StatusDone,
			ReportDocumentID: "DOC.123",
		})
	})
	mux.HandleFunc("/reports/2021-06-30/documents/DOC.123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ReportDocument{
			ReportDocumentID:     "DOC.123",
			URL:                  docURL,
			CompressionAlgorithm: "GZIP",
		})
	})
	mux.HandleFunc("/document-download", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-amz-access-token") != "" {
			t.Error("presigned download must not carry the access token")
		}
		w.Write(compressed.Bytes())
	})

	client, server := testClient(t, mux)
	docURL = server.URL + "/document-download"

	data, err := client.FetchReportByID(context.Background(), "129706020488")
	if err != nil {
		t.Fatalf("FetchReportByID failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("unexpected payload: %s", data)
	}
}

func TestWaitForReportFatal(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ReportStatus{
			ReportID:         "111",
			ProcessingStatus: StatusFatal,
			ReportDocumentID: "DOC.ERR",
		})
	}))

	_, err := client.WaitForReport(context.Background(), "111")
	if !sqperrors.IsCode(err, sqperrors.SpapiError) {
		t.Errorf("expected SPAPI_ERROR for FATAL report, got %v", err)
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{
				{"code": "InvalidInput", "message": "dataStartTime must align to a week boundary"},
			},
		})
	}))

	_, err := client.GetReport(context.Background(), "bad")
	if !sqperrors.IsCode(err, sqperrors.SpapiError) {
		t.Fatalf("expected SPAPI_ERROR, got %v", err)
	}
	if msg := err.Error(); !bytes.Contains([]byte(msg), []byte("InvalidInput")) {
		t.Errorf("error should carry the API code, got %q", msg)
	}
}

func TestAuthErrorOnForbidden(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"code":"Unauthorized","message":"access denied"}]}`))
	}))

	err := client.TestConnection(context.Background())
	if !sqperrors.IsCode(err, sqperrors.AuthError) {
		t.Errorf("expected AUTH_ERROR on 403, got %v", err)
	}
}

func TestListReports(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("reportTypes"); got != SQPReportType {
			t.Errorf("unexpected reportTypes: %s", got)
		}
		if got := r.URL.Query().Get("pageSize"); got != "5" {
			t.Errorf("unexpected pageSize: %s", got)
		}
		json.NewEncoder(w).Encode(listReportsResponse{Reports: []ReportStatus{
			{ReportID: "1", ProcessingStatus: StatusDone},
			{ReportID: "2", ProcessingStatus: StatusInProgress},
		}})
	}))

	reports, err := client.ListReports(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 2 || reports[0].ReportID != "1" {
		t.Errorf("unexpected reports: %+v", reports)
	}
}
