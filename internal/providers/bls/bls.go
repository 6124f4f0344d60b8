package bls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"labordash/internal/model"
	"labordash/internal/providers"
)

const (
	DefaultBaseURL        = "https://api.bls.gov/publicAPI/v2/timeseries/data/"
	DefaultTimeoutSeconds = 30
	DefaultUserAgent      = "labordash/0.1"
	maxErrorPayload       = 64 << 10

	statusSucceeded = "REQUEST_SUCCEEDED"
)

type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

type Provider struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	return NewWithClient(cfg, nil, logger)
}

// NewWithClient lets callers supply the HTTP client. A nil client gets one
// bounded by cfg.Timeout.
func NewWithClient(cfg Config, client *http.Client, logger *zap.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("bls: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		config: cfg,
		client: client,
		logger: logger.With(zap.String("provider", "bls")),
	}, nil
}

func (p *Provider) Name() string {
	return "bls"
}

type request struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
}

type response struct {
	Status  string   `json:"status"`
	Message []string `json:"message"`
	Results *struct {
		Series []seriesPayload `json:"series"`
	} `json:"Results"`
}

type seriesPayload struct {
	SeriesID string      `json:"seriesID"`
	Data     []dataPoint `json:"data"`
}

type dataPoint struct {
	Year   flexString `json:"year"`
	Period string     `json:"period"`
	Value  flexString `json:"value"`
}

// flexString accepts both JSON strings and bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// FetchSeries sends a single bulk request for every series over
// [startYear, endYear] and flattens the result. Series missing from the
// response simply contribute no observations.
func (p *Provider) FetchSeries(ctx context.Context, seriesIDs []string, startYear, endYear int) ([]model.RawObservation, error) {
	if len(seriesIDs) == 0 {
		return nil, errors.New("bls: no series requested")
	}
	if startYear > endYear {
		return nil, fmt.Errorf("bls: start year %d after end year %d", startYear, endYear)
	}

	payload, err := json.Marshal(request{
		SeriesID:        seriesIDs,
		StartYear:       strconv.Itoa(startYear),
		EndYear:         strconv.Itoa(endYear),
		RegistrationKey: strings.TrimSpace(p.config.APIKey),
	})
	if err != nil {
		return nil, err
	}

	status, body, err := p.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	var decoded response
	decodeErr := json.Unmarshal(body, &decoded)
	reject := func(reason string) error {
		rejected := &providers.RejectedError{
			Provider: p.Name(),
			Status:   status,
			Messages: decoded.Message,
			Payload:  truncate(body, maxErrorPayload),
		}
		if reason != "" {
			rejected.Messages = append(rejected.Messages, reason)
		}
		return rejected
	}

	switch {
	case decodeErr != nil:
		return nil, reject("decode: " + decodeErr.Error())
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, reject("")
	case decoded.Results == nil:
		return nil, reject("")
	}
	if len(decoded.Message) > 0 {
		p.logger.Warn("upstream messages", zap.Strings("messages", decoded.Message), zap.String("status", decoded.Status))
	}

	observations := make([]model.RawObservation, 0)
	for _, series := range decoded.Results.Series {
		for _, point := range series.Data {
			observations = append(observations, model.RawObservation{
				SeriesID: series.SeriesID,
				Year:     string(point.Year),
				Period:   point.Period,
				Value:    string(point.Value),
			})
		}
	}
	// Throttled and invalid requests come back with an empty Results block.
	if len(observations) == 0 && decoded.Status != statusSucceeded {
		return nil, reject("")
	}
	return observations, nil
}

func (p *Provider) doRequest(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, providers.TransportError(p.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, providers.TransportError(p.Name(), err)
	}

	return resp.StatusCode, body, nil
}

func truncate(body []byte, limit int) []byte {
	if len(body) <= limit {
		return append([]byte(nil), body...)
	}
	return append([]byte(nil), body[:limit]...)
}
