package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/fleetops/config"

	pkgerrors "github.com/pkg/errors"
)

// Record is one bitable row with its field values flattened to strings.
type Record struct {
	ID     string
	Fields map[string]string
}

// RecordSource pages through every row of a bitable table.
type RecordSource interface {
	FetchRecords(ctx context.Context, tableID string) ([]Record, error)
}

type recordSource struct {
	cfg    config.LarkConfig
	tokens TokenProvider
	http   *http.Client
}

// NewRecordSource creates a pager over the configured bitable app.
func NewRecordSource(cfg config.LarkConfig, tokens TokenProvider) RecordSource {
	return &recordSource{
		cfg:    cfg,
		tokens: tokens,
		http:   &http.Client{},
	}
}

type recordPage struct {
	HasMore   bool   `json:"has_more"`
	PageToken string `json:"page_token"`
	Items     []struct {
		RecordID string                     `json:"record_id"`
		Fields   map[string]json.RawMessage `json:"fields"`
	} `json:"items"`
}

// FetchRecords walks the table in pages of 500 until the continuation token
// runs out.
func (s *recordSource) FetchRecords(ctx context.Context, tableID string) ([]Record, error) {
	var records []Record
	pageToken := ""

	for {
		page, err := s.fetchPage(ctx, tableID, pageToken)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			fields := make(map[string]string, len(item.Fields))
			for name, raw := range item.Fields {
				fields[name] = FormatValue(raw)
			}
			records = append(records, Record{ID: item.RecordID, Fields: fields})
		}

		if !page.HasMore || page.PageToken == "" {
			return records, nil
		}
		pageToken = page.PageToken
	}
}

func (s *recordSource) fetchPage(ctx context.Context, tableID, pageToken string) (*recordPage, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records?page_size=500",
		s.cfg.BaseURL, s.cfg.AppToken, tableID)
	if pageToken != "" {
		endpoint += "&page_token=" + url.QueryEscape(pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "bitable records request failed")
	}
	defer resp.Body.Close()

	var payload struct {
		Code int         `json:"code"`
		Msg  string      `json:"msg"`
		Data *recordPage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(err, "invalid bitable records response")
	}
	if payload.Code != 0 || payload.Data == nil {
		return nil, fmt.Errorf("lark API error: %s", payload.Msg)
	}
	return payload.Data, nil
}

// FormatValue flattens a raw bitable field value to a display string.
// Epoch-millisecond numbers become dd/mm/yyyy dates, option objects
// collapse to their name, arrays join with commas.
func FormatValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 1_000_000_000 {
			t := time.UnixMilli(int64(n))
			return t.Format("02/01/2006")
		}
		return fmt.Sprintf("%v", n)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return fmt.Sprintf("%v", b)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	}

	var named struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &named); err == nil {
		if named.Name != "" {
			return named.Name
		}
		if named.Text != "" {
			return named.Text
		}
	}
	return string(raw)
}
