package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/doclexa/doclexa/internal/rates"
)

// ExchangeRates queries the remote rate table, ordered by currency code.
// Satisfies rates.Source.
func (c *Client) ExchangeRates(ctx context.Context) ([]rates.Rate, error) {
	path := "/rest/v1/exchange_rates?select=currency_code,rate_to_usd&order=currency_code"
	respBody, err := c.doData(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []rates.Rate
	if err := unmarshalJSON(respBody, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AnalysisInsert is the payload persisted per completed analysis.
type AnalysisInsert struct {
	UserID       string `json:"user_id"`
	DocumentType string `json:"document_type"`
	Language     string `json:"language"`
	ResultText   string `json:"result_text"`
	SourceImage  string `json:"source_image,omitempty"`
}

// RemoteAnalysis is a stored analysis row.
type RemoteAnalysis struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	DocumentType string `json:"document_type"`
	Language     string `json:"language"`
	ResultText   string `json:"result_text"`
	SourceImage  string `json:"source_image,omitempty"`
	TokensUsed   int    `json:"tokens_used"`
	CreatedAt    string `json:"created_at"`
}

// InsertAnalysis persists a completed analysis for the signed-in user.
func (c *Client) InsertAnalysis(ctx context.Context, record AnalysisInsert) error {
	if c.Session() == nil {
		return apperrors.ErrNotSignedIn
	}

	headers := map[string]string{"Prefer": "return=minimal"}
	_, err := c.doData(ctx, http.MethodPost, "/rest/v1/document_analyses", record, headers)
	return err
}

// ListAnalyses returns the most recent analyses for a user, newest first.
func (c *Client) ListAnalyses(ctx context.Context, userID string, limit int) ([]RemoteAnalysis, error) {
	if c.Session() == nil {
		return nil, apperrors.ErrNotSignedIn
	}
	if limit <= 0 {
		limit = 10
	}

	path := fmt.Sprintf(
		"/rest/v1/document_analyses?select=*&user_id=eq.%s&order=created_at.desc&limit=%d",
		url.QueryEscape(userID), limit,
	)
	respBody, err := c.doData(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []RemoteAnalysis
	if err := unmarshalJSON(respBody, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Profile is the account row the backend maintains per user.
type Profile struct {
	ID            string `json:"id"`
	FreeTrialUsed bool   `json:"free_trial_used"`
	Plan          string `json:"plan"`
	TotalAnalyses int    `json:"total_analyses"`
	UsedAnalyses  int    `json:"used_analyses"`
	CreatedAt     string `json:"created_at"`
}

// Profile fetches the signed-in user's profile row.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	session := c.Session()
	if session == nil {
		return nil, apperrors.ErrNotSignedIn
	}

	path := fmt.Sprintf("/rest/v1/profiles?select=*&id=eq.%s", url.QueryEscape(session.User.ID))
	respBody, err := c.doData(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []Profile
	if err := unmarshalJSON(respBody, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &rows[0], nil
}

// MarkFreeTrialUsed flips the free-trial flag on the user's profile.
func (c *Client) MarkFreeTrialUsed(ctx context.Context) error {
	session := c.Session()
	if session == nil {
		return apperrors.ErrNotSignedIn
	}

	path := fmt.Sprintf("/rest/v1/profiles?id=eq.%s", url.QueryEscape(session.User.ID))
	body := map[string]bool{"free_trial_used": true}
	headers := map[string]string{"Prefer": "return=minimal"}
	_, err := c.doData(ctx, http.MethodPatch, path, body, headers)
	return err
}

func unmarshalJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrBackendRejected.Code, "malformed backend response")
	}
	return nil
}
