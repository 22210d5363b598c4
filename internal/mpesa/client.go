package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/linemk/gogol-pizza/internal/lib/clock"
)

const (
	SandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	ProductionBaseURL = "https://api.safaricom.co.ke"

	tokenPath       = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath     = "/mpesa/stkpush/v1/processrequest"
	transactionType = "CustomerPayBillOnline"
	timestampLayout = "20060102150405"
	maxBodyBytes    = 1 << 20
)

// BaseURLFor picks the Daraja host. An explicit override wins (used against stubs).
func BaseURLFor(env, override string) string {
	if override != "" {
		return override
	}
	if env == "production" {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// Client talks to the Daraja STK push API. It never retries.
type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	clock   clock.Clock
}

func NewClient(baseURL string, creds Credentials, httpClient *http.Client, clk clock.Clock) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		client:  httpClient,
		clock:   clk,
	}
}

type STKPushRequest struct {
	Phone       string
	Amount      int64
	Reference   string
	Description string
}

// STKPushResponse is Daraja's acknowledgement; Raw keeps the body exactly as received.
type STKPushResponse struct {
	MerchantRequestID   string          `json:"MerchantRequestID"`
	CheckoutRequestID   string          `json:"CheckoutRequestID"`
	ResponseCode        string          `json:"ResponseCode"`
	ResponseDescription string          `json:"ResponseDescription"`
	CustomerMessage     string          `json:"CustomerMessage"`
	Raw                 json.RawMessage `json:"-"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// STKPush validates the phone, amount and callback URL, then requests a token and submits
// the payment prompt.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	const op = "mpesa.Client.STKPush"

	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ValidateCallbackURL(c.creds.CallbackURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.Amount < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	timestamp := c.clock.Now().UTC().Format(timestampLayout)
	payload := stkPushPayload{
		BusinessShortCode: c.creds.ShortCode,
		Password:          Password(c.creds.ShortCode, c.creds.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            phone,
		PartyB:            c.creds.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.creds.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   req.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp STKPushResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w: undecodable response: %v", op, ErrGatewayTransport, err)
	}
	if resp.ResponseCode != "0" || resp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%s: %w", op, &GatewayError{
			StatusCode: http.StatusOK,
			Code:       resp.ResponseCode,
			Message:    resp.ResponseDescription,
		})
	}
	resp.Raw = raw
	return &resp, nil
}

// Token fetches a fresh OAuth access token.
func (c *Client) Token(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.SetBasicAuth(c.creds.ConsumerKey, c.creds.ConsumerSecret)

	raw, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("token: %w: no access token in response", ErrGatewayTransport)
	}
	return tok.AccessToken, nil
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &GatewayError{StatusCode: resp.StatusCode, Message: string(raw)}
		var de darajaError
		if json.Unmarshal(raw, &de) == nil && de.ErrorMessage != "" {
			gwErr.Code = de.ErrorCode
			gwErr.Message = de.ErrorMessage
		}
		return nil, gwErr
	}
	return raw, nil
}
