package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/heera-08/voice-ai/pkg/logger"
	"go.uber.org/zap"
)

const defaultPlivoBaseURL = "https://api.plivo.com"

// PlivoDialer places calls through the Plivo voice API. The request timeout
// bounds the outbound call so a slow provider cannot stall the caller.
type PlivoDialer struct {
	authID     string
	authToken  string
	answerURL  string
	hangupURL  string
	baseURL    string
	httpClient *http.Client
}

// NewPlivoDialer creates a Plivo dialer. answerURL and hangupURL are the
// webhook callbacks handed to the provider with every call.
func NewPlivoDialer(authID, authToken, answerURL, hangupURL string) *PlivoDialer {
	return &PlivoDialer{
		authID:    authID,
		authToken: authToken,
		answerURL: answerURL,
		hangupURL: hangupURL,
		baseURL:   defaultPlivoBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type plivoCallRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	AnswerURL    string `json:"answer_url"`
	AnswerMethod string `json:"answer_method"`
	HangupURL    string `json:"hangup_url"`
	HangupMethod string `json:"hangup_method"`
}

type plivoCallResponse struct {
	Message     string `json:"message"`
	RequestUUID string `json:"request_uuid"`
	APIID       string `json:"api_id"`
	Error       string `json:"error"`
}

// Dial originates a call and returns Plivo's request UUID. Any transport
// error or non-2xx response surfaces as a *TriggerError; nothing is retried.
func (d *PlivoDialer) Dial(ctx context.Context, to, from string) (string, error) {
	payload := plivoCallRequest{
		From:         from,
		To:           to,
		AnswerURL:    d.answerURL,
		AnswerMethod: http.MethodPost,
		HangupURL:    d.hangupURL,
		HangupMethod: http.MethodPost,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &TriggerError{Provider: "plivo", Message: "encode request", Err: err}
	}

	url := fmt.Sprintf("%s/v1/Account/%s/Call/", strings.TrimSuffix(d.baseURL, "/"), d.authID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &TriggerError{Provider: "plivo", Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(d.authID, d.authToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", &TriggerError{Provider: "plivo", Message: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", &TriggerError{Provider: "plivo", Message: "read response", Err: err}
	}

	var result plivoCallResponse
	if err := json.Unmarshal(respBody, &result); err != nil && resp.StatusCode < 300 {
		return "", &TriggerError{Provider: "plivo", Message: "decode response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return "", &TriggerError{
			Provider: "plivo",
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, msg),
		}
	}

	logger.Base().Info("Outbound call initiated",
		zap.String("to", to),
		zap.String("request_uuid", result.RequestUUID),
		zap.String("api_id", result.APIID))

	return result.RequestUUID, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (d *PlivoDialer) SetBaseURL(baseURL string) {
	d.baseURL = baseURL
}
