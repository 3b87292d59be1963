package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
)

// Client talks to the fulfillment provider (Khfy-store style REST API).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *utils.Logger
}

func NewClient(baseURL, apiKey string, logger *utils.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// DispatchResult is the synchronous reply to a purchase request. The
// terminal outcome arrives later on the webhook.
type DispatchResult struct {
	Status  string
	Message string
}

func (c *Client) Dispatch(ctx context.Context, productCode, destination, reffID string) (*DispatchResult, error) {
	reqURL := fmt.Sprintf("%strx?produk=%s&tujuan=%s&reff_id=%s&api_key=%s",
		c.baseURL,
		url.QueryEscape(productCode),
		url.QueryEscape(destination),
		url.QueryEscape(reffID),
		url.QueryEscape(c.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid provider response: %w", err)
	}

	if data.Status == "" {
		data.Status = "PENDING"
	}
	if data.Message == "" {
		data.Message = "Transaksi sedang diproses."
	}

	return &DispatchResult{Status: data.Status, Message: data.Message}, nil
}

// FetchStock pulls the provider's product/stock list. Numeric fields
// arrive sometimes as strings, so they are decoded leniently.
func (c *Client) FetchStock(ctx context.Context) ([]models.Product, error) {
	reqURL := c.baseURL + "cek_stock_akrab"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stock request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stock request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Data []struct {
			Type  string      `json:"type"`
			Nama  string      `json:"nama"`
			Sisa  json.Number `json:"sisa_slot"`
			Harga json.Number `json:"harga"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid stock response: %w", err)
	}
	if data.Data == nil {
		return nil, fmt.Errorf("unrecognized stock response format")
	}

	products := make([]models.Product, 0, len(data.Data))
	for _, item := range data.Data {
		stock, _ := item.Sisa.Int64()
		price, _ := item.Harga.Int64()
		products = append(products, models.Product{
			Code:  item.Type,
			Name:  item.Nama,
			Stock: int(stock),
			Price: price,
		})
	}
	return products, nil
}
