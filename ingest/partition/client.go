package partition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"surveyrag/config"
	"surveyrag/types"
)

// Client talks to the external PDF partition service. The service does the
// layout analysis and OCR and returns typed segments with table HTML; we
// treat it as a black box.
type Client struct {
	url    string
	client *http.Client
}

type partitionResponse struct {
	Segments []types.Segment `json:"elements"`
}

func NewClient(cfg config.PartitionerConfig) *Client {
	return &Client{
		url:    cfg.URL,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
	}
}

// Partition uploads the PDF and returns its typed segments in document order.
func (c *Client) Partition(ctx context.Context, filePath string) ([]types.Segment, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filePath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partition request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("partition service error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var pr partitionResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}
	return pr.Segments, nil
}
