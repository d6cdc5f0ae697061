package sms

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/ignatzorin/corent-backend/internal/models"
)

// messageCreator описывает часть API Twilio, которая нужна провайдеру.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioProvider отправляет сообщения через Twilio Messages API.
type TwilioProvider struct {
	api  messageCreator
	from string
}

// NewTwilioProvider создаёт провайдер с REST-клиентом Twilio.
func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{api: rc.Api, from: from}
}

func (p *TwilioProvider) Name() string { return models.ProviderTwilio }

type createResult struct {
	resp *openapi.ApiV2010Message
	err  error
}

// Send создаёт сообщение. SDK не принимает context, поэтому вызов идёт в горутине,
// а ожидание ограничено ctx.
func (p *TwilioProvider) Send(ctx context.Context, msg Message) (*models.DeliveryResult, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(p.from)
	params.SetBody(msg.Body)
	if msg.StatusCallback != "" {
		params.SetStatusCallback(msg.StatusCallback)
	}
	if msg.ValidityPeriod > 0 {
		params.SetValidityPeriod(msg.ValidityPeriod)
	}

	start := time.Now()
	done := make(chan createResult, 1)
	go func() {
		resp, err := p.api.CreateMessage(params)
		done <- createResult{resp: resp, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("twilio: create message: %w", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("twilio: create message: %w", res.err)
	}

	out := &models.DeliveryResult{
		Success:        true,
		Provider:       models.ProviderTwilio,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if res.resp != nil {
		if res.resp.Sid != nil {
			out.MessageID = *res.resp.Sid
		}
		if res.resp.Status != nil {
			out.Status = *res.resp.Status
		}
		if res.resp.Price != nil {
			// Twilio отдаёт цену отрицательной строкой, например "-0.00750".
			if price, err := strconv.ParseFloat(*res.resp.Price, 64); err == nil {
				if price < 0 {
					price = -price
				}
				out.Cost = price
			}
		}
	}
	return out, nil
}

// SignatureValidator проверяет заголовок X-Twilio-Signature у callback-запросов.
type SignatureValidator struct {
	validator client.RequestValidator
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: client.NewRequestValidator(authToken)}
}

// Validate проверяет подпись для полного URL запроса и его form-параметров.
func (v *SignatureValidator) Validate(url string, params map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	return v.validator.Validate(url, params, signature)
}
