package mpesa

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const receiptItemName = "MpesaReceiptNumber"

// Callback is the part of an STK callback needed to settle an order.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Receipt           *string
}

func (c Callback) Success() bool {
	return c.ResultCode == 0
}

type callbackEnvelope struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        json.RawMessage `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback extracts the correlation id, result code and receipt.
// Anything missing or of the wrong shape yields ErrMalformedCallback.
func ParseCallback(body []byte) (Callback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Callback{}, ErrMalformedCallback
	}
	if env.Body == nil || env.Body.StkCallback == nil {
		return Callback{}, ErrMalformedCallback
	}
	stk := env.Body.StkCallback

	id := strings.TrimSpace(stk.CheckoutRequestID)
	if id == "" {
		return Callback{}, ErrMalformedCallback
	}
	code, ok := parseResultCode(stk.ResultCode)
	if !ok {
		return Callback{}, ErrMalformedCallback
	}

	cb := Callback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: id,
		ResultCode:        code,
		ResultDesc:        stk.ResultDesc,
	}
	if stk.CallbackMetadata != nil {
		for _, item := range stk.CallbackMetadata.Item {
			if item.Name != receiptItemName {
				continue
			}
			if v, ok := scalarString(item.Value); ok {
				cb.Receipt = &v
			}
			break
		}
	}
	return cb, nil
}

// parseResultCode accepts 0 as well as "0".
func parseResultCode(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
