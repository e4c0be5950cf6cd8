// Package exchange implements the Exchange Web Services (EWS) calendar backend.
package exchange

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"exchange_calendar/pkg/resilience"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	DefaultServerVersion = "Exchange2013"
	maxResponseSize      = 32 << 20
)

var (
	ErrUnauthorized   = errors.New("exchange: unauthorized")
	ErrSoapFault      = errors.New("exchange: soap fault")
	ErrResponseError  = errors.New("exchange: error response")
	ErrUnexpectedBody = errors.New("exchange: unexpected response body")
)

// ResponseError is an EWS response message with ResponseClass="Error".
type ResponseError struct {
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("exchange: %s: %s", e.Code, e.Message)
}

func (e *ResponseError) Unwrap() error { return ErrResponseError }

// Client sends SOAP requests to one EWS endpoint.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	version     string
	username    string
	password    string
	impersonate string
	cb          *gobreaker.CircuitBreaker
	log         zerolog.Logger
}

// EndpointURL returns the EWS URL of server. A full URL is used as-is.
func EndpointURL(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if strings.HasPrefix(server, "http://") || strings.HasPrefix(server, "https://") {
		return server
	}
	return "https://" + server + "/EWS/Exchange.asmx"
}

func (c *Client) Breaker() *gobreaker.CircuitBreaker {
	return c.cb
}

// call posts one request body and decodes the SOAP response body.
func (c *Client) call(ctx context.Context, op string, req body) (*responseBody, error) {
	env := envelope{
		XMLNSSoap: nsSoap,
		XMLNST:    nsTypes,
		XMLNSM:    nsMessages,
		Header: header{
			RequestServerVersion: requestServerVersion{Version: c.version},
		},
		Body: req,
	}
	if c.impersonate != "" {
		env.Header.ExchangeImpersonation = &exchangeImpersonation{
			ConnectingSID: connectingSID{SmtpAddress: c.impersonate},
		}
	}

	payload, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op, err)
	}
	payload = append([]byte(xml.Header), payload...)

	return resilience.Execute(c.cb, func() (*responseBody, error) {
		res, err := c.post(ctx, op, payload)
		if err != nil && ctx.Err() != nil {
			return nil, resilience.NotCounted(err)
		}
		return res, err
	})
}

func (c *Client) post(ctx context.Context, op string, payload []byte) (*responseBody, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("Accept", "text/xml")
	if c.username != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	var env responseEnvelope
	decodeErr := xml.Unmarshal(data, &env)

	// EWS는 SOAP fault를 500으로 돌려준다
	if decodeErr == nil && env.Body.Fault != nil {
		return nil, fmt.Errorf("%s: %w: %s: %s", op, ErrSoapFault, env.Body.Fault.FaultCode, env.Body.Fault.FaultString)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, decodeErr)
	}

	c.log.Debug().Str("op", op).Int("bytes", len(data)).Msg("ews call")
	return &env.Body, nil
}

func (m *responseMessage) err() error {
	if m.ResponseClass != "Error" {
		return nil
	}
	return &ResponseError{Code: m.ResponseCode, Message: m.MessageText}
}
