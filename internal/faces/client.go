package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/observability"
)

const serviceName = "face_db"

// RemoteError is a non-2xx answer from the face database. Its text is the
// response body exactly as received.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("face database returned status %d", e.StatusCode)
	}
	return e.Body
}

type RegisterResponse struct {
	UUID string `json:"uuid"`
}

// Candidate is one search hit. Probability is in [0, 1].
type Candidate struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	UUID        string  `json:"uuid"`
}

// Client talks to a Luxand-compatible face database.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(cfg config.FaceDBConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

// RegisterPerson stores a named person with one photo in the given collection.
func (c *Client) RegisterPerson(ctx context.Context, name, collection string, image []byte) (*RegisterResponse, error) {
	fields := map[string]string{
		"name":        name,
		"store":       "1",
		"collections": collection,
	}
	body, err := c.postImage(ctx, "register", "/v2/person", "photos", image, fields)
	if err != nil {
		return nil, err
	}

	var resp RegisterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse register response: %w", err)
	}
	return &resp, nil
}

// SearchPhoto looks up the faces in a photo. No match is an empty slice.
func (c *Client) SearchPhoto(ctx context.Context, image []byte) ([]Candidate, error) {
	body, err := c.postImage(ctx, "search", "/photo/search/v2", "photo", image, nil)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return candidates, nil
}

func (c *Client) postImage(ctx context.Context, op, endpoint, field string, image []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile(field, "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("token", c.token)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RemoteCallDuration.WithLabelValues(serviceName, op, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()
	observability.RemoteCallDuration.WithLabelValues(serviceName, op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
