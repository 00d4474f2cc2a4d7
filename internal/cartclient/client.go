package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mirabelleshop/cart-backend/internal/cartsync"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/logger"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	retryBaseDelay    = 200 * time.Millisecond
)

// Options configure a Client. BaseURL is required.
type Options struct {
	BaseURL      string
	SessionToken string
	HTTPClient   *http.Client
	Logger       *logger.Logger
	MaxRetries   uint64
}

// Client is the HTTP implementation of the cart gateway. Transport errors
// and 5xx responses are retried with fibonacci backoff; 4xx responses are
// not, since repeating a rejected request cannot change the answer.
type Client struct {
	base       *url.URL
	token      string
	http       *http.Client
	logg       *logger.Logger
	maxRetries uint64
}

var _ cartsync.Gateway = (*Client)(nil)

// New builds a gateway client against the cart API.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		base:       base,
		token:      opts.SessionToken,
		http:       httpClient,
		logg:       opts.Logger,
		maxRetries: maxRetries,
	}, nil
}

type addLineRequest struct {
	CartID    string         `json:"cart_id,omitempty"`
	ProductID string         `json:"product_id"`
	VariantID *string        `json:"variant_id,omitempty"`
	Quantity  int            `json:"quantity"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

type promotionsRequest struct {
	Codes []string `json:"codes"`
}

type rewardsRequest struct {
	Points int64 `json:"points"`
}

type shippingRequest struct {
	CartID           string `json:"cart_id,omitempty"`
	ShippingOptionID string `json:"shipping_option_id"`
}

// AddLine posts a new line and returns the authoritative snapshot.
func (c *Client) AddLine(ctx context.Context, cartID string, input cartsync.AddLineInput) (*types.CartSnapshot, error) {
	body := addLineRequest{
		CartID:    cartID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Quantity:  input.Quantity,
		Metadata:  input.Metadata,
	}
	return c.doSnapshot(ctx, http.MethodPost, "/v1/cart/lines", body)
}

// RemoveLine deletes a line and returns the authoritative snapshot.
func (c *Client) RemoveLine(ctx context.Context, lineID string) (*types.CartSnapshot, error) {
	return c.doSnapshot(ctx, http.MethodDelete, "/v1/cart/lines/"+url.PathEscape(lineID), nil)
}

// UpdateLineQuantity rewrites a line's quantity and returns the snapshot.
func (c *Client) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*types.CartSnapshot, error) {
	return c.doSnapshot(ctx, http.MethodPatch, "/v1/cart/lines/"+url.PathEscape(lineID), updateLineRequest{Quantity: quantity})
}

// FetchCart loads the session's cart; a null payload means no cart exists.
func (c *Client) FetchCart(ctx context.Context) (*types.CartSnapshot, error) {
	return c.doSnapshot(ctx, http.MethodGet, "/v1/cart", nil)
}

// ApplyPromotionCodes replaces the applied promotion codes.
func (c *Client) ApplyPromotionCodes(ctx context.Context, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	return c.do(ctx, http.MethodPost, "/v1/cart/promotions", promotionsRequest{Codes: codes}, nil)
}

// ApplyRewardPoints requests a reward spend.
func (c *Client) ApplyRewardPoints(ctx context.Context, points int64) error {
	return c.do(ctx, http.MethodPost, "/v1/cart/rewards", rewardsRequest{Points: points}, nil)
}

// SetShippingMethod selects the shipping option.
func (c *Client) SetShippingMethod(ctx context.Context, cartID, shippingOptionID string) error {
	return c.do(ctx, http.MethodPut, "/v1/cart/shipping-method", shippingRequest{
		CartID:           cartID,
		ShippingOptionID: shippingOptionID,
	}, nil)
}

func (c *Client) doSnapshot(ctx context.Context, method, path string, body any) (*types.CartSnapshot, error) {
	var snap *types.CartSnapshot
	if err := c.do(ctx, method, path, body, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// do performs one API call with retries and decodes the success envelope's
// data into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = encoded
	}

	target := c.base.JoinPath(path).String()
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(retryBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer res.Body.Close()

		raw, err := io.ReadAll(res.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("reading response body: %w", err))
		}

		if res.StatusCode >= http.StatusInternalServerError {
			if c.logg != nil {
				c.logg.Warn(ctx, fmt.Sprintf("cart api %s %s returned %d, retrying", method, path, res.StatusCode))
			}
			return retry.RetryableError(decodeError(res.StatusCode, raw))
		}
		if res.StatusCode >= http.StatusBadRequest {
			return decodeError(res.StatusCode, raw)
		}

		if out == nil {
			return nil
		}
		var envelope types.SuccessEnvelope
		envelope.Data = out
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

// decodeError maps an API error envelope back to a typed error, preserving
// the server's public message.
func decodeError(status int, raw []byte) error {
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return pkgerrors.New(codeForStatus(status, envelope.Error.Code), envelope.Error.Message)
	}
	return pkgerrors.New(codeForStatus(status, ""), fmt.Sprintf("cart api returned status %d", status))
}

func codeForStatus(status int, apiCode string) pkgerrors.Code {
	if apiCode != "" {
		if code := pkgerrors.Code(apiCode); code.IsValid() {
			return code
		}
	}
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status >= http.StatusInternalServerError:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeValidation
	}
}
