package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yusufpr/akrab_bot/utils"
)

// QRISClient generates payment QR images from the external QRIS service.
type QRISClient struct {
	apiURL        string
	staticPayload string
	http          *http.Client
	logger        *utils.Logger
}

func NewQRISClient(apiURL, staticPayload string, logger *utils.Logger) *QRISClient {
	return &QRISClient{
		apiURL:        apiURL,
		staticPayload: staticPayload,
		http:          &http.Client{Timeout: 20 * time.Second},
		logger:        logger,
	}
}

// Generate returns PNG bytes of a QR code for the given amount.
func (c *QRISClient) Generate(ctx context.Context, amount int64) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{
		"amount":      strconv.FormatInt(amount, 10),
		"qris_statis": c.staticPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QRIS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build QRIS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("QRIS request failed: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		QRISBase64 string `json:"qris_base64"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid QRIS response: %w", err)
	}

	if data.Status != "success" || data.QRISBase64 == "" {
		if data.Message == "" {
			data.Message = "gagal generate QRIS"
		}
		return nil, fmt.Errorf("QRIS service error: %s", data.Message)
	}

	img, err := base64.StdEncoding.DecodeString(data.QRISBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode QRIS image: %w", err)
	}
	return img, nil
}
