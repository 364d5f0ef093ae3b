package blitz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/models"

	pkgerrors "github.com/pkg/errors"
)

// BatchRequest targets an existing batch in the delivery platform.
type BatchRequest struct {
	SequenceType     int      `json:"sequenceType"`
	BatchID          int64    `json:"batchId"`
	MerchantOrderIDs []string `json:"merchantOrderIds"`
	HubID            int64    `json:"hubId"`
}

// CreateBatchRequest creates a fresh batch bound to one driver.
type CreateBatchRequest struct {
	Orders      []*models.MerchantOrder `json:"orders"`
	DriverID    string                  `json:"driverId"`
	DriverName  string                  `json:"driverName"`
	DriverPhone string                  `json:"driverPhone"`
	Business    int64                   `json:"business"`
	City        int64                   `json:"city"`
	ServiceType int64                   `json:"serviceType"`
	HubID       int64                   `json:"hubId"`
	Coordinates [2]float64              `json:"coordinates"`
}

// BatchResult is the outcome of adding orders to an existing batch.
type BatchResult struct {
	AssignmentID string
}

// CreateBatchResult is the outcome of creating a batch with a driver.
type CreateBatchResult struct {
	BatchID       int64
	AssignmentID  string
	Uploaded      bool
	UploadedCount int
}

// Client talks to the external delivery platform's batch API. The caller's
// bearer token is forwarded on every request.
type Client interface {
	ValidateBatchOrders(ctx context.Context, authorization string, req BatchRequest) error
	AddBatchOrders(ctx context.Context, authorization string, req BatchRequest) (*BatchResult, error)
	CreateBatchWithDriver(ctx context.Context, authorization string, req CreateBatchRequest) (*CreateBatchResult, error)
}

type httpClient struct {
	cfg  config.BlitzConfig
	http *http.Client
}

// NewClient creates an HTTP batch API client from config.
func NewClient(cfg config.BlitzConfig) Client {
	return &httpClient{
		cfg:  cfg,
		http: &http.Client{},
	}
}

func (c *httpClient) post(ctx context.Context, authorization, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to encode batch request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "batch API call %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("batch API call %s returned HTTP %d: %s", path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("batch API call %s returned HTTP %d", path, resp.StatusCode)
	}

	return pkgerrors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "batch API call %s returned invalid body", path)
}

func (c *httpClient) ValidateBatchOrders(ctx context.Context, authorization string, req BatchRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.BatchTimeout)
	defer cancel()

	var resp struct {
		Result bool `json:"result"`
	}
	if err := c.post(ctx, authorization, "/api/blitz-proxy/validate-batch-orders", req, &resp); err != nil {
		return err
	}
	if !resp.Result {
		return pkgerrors.New("batch validation failed")
	}
	return nil
}

func (c *httpClient) AddBatchOrders(ctx context.Context, authorization string, req BatchRequest) (*BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.BatchTimeout)
	defer cancel()

	var resp struct {
		Result bool `json:"result"`
		Data   struct {
			Assignment struct {
				ID string `json:"id"`
			} `json:"assignment"`
		} `json:"data"`
	}
	if err := c.post(ctx, authorization, "/api/blitz-proxy/add-batch-orders", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Result {
		return nil, pkgerrors.New("adding orders to batch failed")
	}
	return &BatchResult{AssignmentID: resp.Data.Assignment.ID}, nil
}

func (c *httpClient) CreateBatchWithDriver(ctx context.Context, authorization string, req CreateBatchRequest) (*CreateBatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CreateTimeout)
	defer cancel()

	var resp struct {
		Success       bool   `json:"success"`
		Message       string `json:"message"`
		BatchID       int64  `json:"batchId"`
		AssignmentID  string `json:"assignmentId"`
		Uploaded      bool   `json:"uploaded"`
		UploadedCount int    `json:"uploadedCount"`
	}
	if err := c.post(ctx, authorization, "/api/blitz-proxy/create-batch-with-driver", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Message != "" {
			return nil, pkgerrors.New(resp.Message)
		}
		return nil, pkgerrors.New("batch creation failed")
	}
	return &CreateBatchResult{
		BatchID:       resp.BatchID,
		AssignmentID:  resp.AssignmentID,
		Uploaded:      resp.Uploaded,
		UploadedCount: resp.UploadedCount,
	}, nil
}
