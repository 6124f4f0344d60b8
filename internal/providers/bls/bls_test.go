package bls

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"labordash/internal/model"
	"labordash/internal/providers"
)

const okResponse = `{
  "status": "REQUEST_SUCCEEDED",
  "message": [],
  "Results": {
    "series": [
      {"seriesID": "LNS14000000", "data": [
        {"year": "2024", "period": "M02", "periodName": "February", "value": "3.9"},
        {"year": "2024", "period": "M01", "periodName": "January", "value": "3.7"}
      ]},
      {"seriesID": "CIU1010000000000A", "data": [
        {"year": 2023, "period": "Q04", "value": 162.3}
      ]}
    ]
  }
}`

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	provider, err := New(Config{BaseURL: url, APIKey: "secret", Timeout: 2 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return provider
}

func TestFetchSeries(t *testing.T) {
	var got request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body: %v", err)
		}
		_, _ = io.WriteString(w, okResponse)
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	observations, err := provider.FetchSeries(context.Background(), []string{"LNS14000000", "CIU1010000000000A", "JTS00000000JOL"}, 2018, 2024)
	if err != nil {
		t.Fatalf("FetchSeries() error = %v", err)
	}

	wantRequest := request{
		SeriesID:        []string{"LNS14000000", "CIU1010000000000A", "JTS00000000JOL"},
		StartYear:       "2018",
		EndYear:         "2024",
		RegistrationKey: "secret",
	}
	if diff := cmp.Diff(wantRequest, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	want := []model.RawObservation{
		{SeriesID: "LNS14000000", Year: "2024", Period: "M02", Value: "3.9"},
		{SeriesID: "LNS14000000", Year: "2024", Period: "M01", Value: "3.7"},
		{SeriesID: "CIU1010000000000A", Year: "2023", Period: "Q04", Value: "162.3"},
	}
	if diff := cmp.Diff(want, observations); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchSeriesRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"missing results", http.StatusOK, `{"status":"REQUEST_NOT_PROCESSED","message":["Invalid key"]}`},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`},
		{"empty results", http.StatusOK, `{"status":"REQUEST_NOT_PROCESSED","message":["daily threshold reached"],"Results":{}}`},
		{"no series", http.StatusOK, `{"status":"REQUEST_NOT_PROCESSED","Results":{"series":[]}}`},
		{"server error with results", http.StatusInternalServerError, `{"status":"REQUEST_SUCCEEDED","Results":{"series":[{"seriesID":"X","data":[{"year":"2024","period":"M01","value":"1"}]}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestProvider(t, server.URL).FetchSeries(context.Background(), []string{"X"}, 2020, 2024)
			if !errors.Is(err, providers.ErrUpstreamRejected) {
				t.Fatalf("error = %v, want ErrUpstreamRejected", err)
			}
			var rejected *providers.RejectedError
			if !errors.As(err, &rejected) {
				t.Fatalf("error %T is not *RejectedError", err)
			}
			if string(rejected.Payload) != tt.body || rejected.Status != tt.status {
				t.Errorf("rejected = %d %q, want %d %q", rejected.Status, rejected.Payload, tt.status, tt.body)
			}
		})
	}
}

func TestFetchSeriesTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestProvider(t, url).FetchSeries(context.Background(), []string{"X"}, 2020, 2024)
	if !errors.Is(err, providers.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if errors.Is(err, providers.ErrUpstreamRejected) {
		t.Error("transport failure also matched ErrUpstreamRejected")
	}
}

func TestFetchSeriesTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	provider, err := New(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = provider.FetchSeries(context.Background(), []string{"X"}, 2020, 2024)
	if !errors.Is(err, providers.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestFetchSeriesOmitsEmptyKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["registrationkey"]; ok {
			t.Error("registrationkey sent without a configured key")
		}
		_, _ = io.WriteString(w, `{"status":"REQUEST_SUCCEEDED","Results":{"series":[]}}`)
	}))
	defer server.Close()

	provider, _ := New(Config{BaseURL: server.URL}, nil)
	observations, err := provider.FetchSeries(context.Background(), []string{"X"}, 2020, 2024)
	if err != nil || len(observations) != 0 {
		t.Fatalf("FetchSeries() = %v, %v; want empty, nil", observations, err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "ftp://example.com"}, nil); err == nil {
		t.Error("New() accepted a non-http base url")
	}
}
