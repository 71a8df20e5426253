package dialer

import (
	"context"
	"fmt"

	"github.com/heera-08/voice-ai/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// TwilioDialer places calls through the Twilio REST API. The answer webhook
// receives TwiML instead of Plivo XML; call-status callbacks carry the hangup.
type TwilioDialer struct {
	answerURL string
	hangupURL string
	client    callCreator
}

// NewTwilioDialer creates a Twilio dialer from account credentials.
func NewTwilioDialer(accountSID, authToken, answerURL, hangupURL string) *TwilioDialer {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioDialer{
		answerURL: answerURL,
		hangupURL: hangupURL,
		client:    rest.Api,
	}
}

// Dial originates a call and returns the Twilio call SID.
func (d *TwilioDialer) Dial(ctx context.Context, to, from string) (string, error) {
	_ = ctx // the generated Twilio client carries its own HTTP timeout

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetUrl(d.answerURL)
	params.SetMethod("POST")
	params.SetStatusCallback(d.hangupURL)
	params.SetStatusCallbackMethod("POST")

	resp, err := d.client.CreateCall(params)
	if err != nil {
		return "", &TriggerError{Provider: "twilio", Message: "create call", Err: err}
	}
	if resp == nil || resp.Sid == nil {
		return "", &TriggerError{Provider: "twilio", Message: fmt.Sprintf("missing call sid in response for %s", to)}
	}

	logger.Base().Info("Outbound call initiated",
		zap.String("to", to),
		zap.String("call_sid", *resp.Sid))

	return *resp.Sid, nil
}
