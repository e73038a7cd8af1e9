package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// Config configures a Client
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the bill store over HTTP
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewClient creates a new Client
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("store base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parsing store base url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Bills returns the bills resource
func (c *Client) Bills() Bills {
	return &billsResource{c: c}
}

type billsResource struct {
	c *Client
}

func (b *billsResource) List(ctx context.Context, req ListRequest) ([]bill.Bill, error) {
	u := b.c.baseURL + "/bills"
	if req.Email != "" {
		u += "?email=" + url.QueryEscape(req.Email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var bills []bill.Bill
	if err := b.c.do(httpReq, &bills); err != nil {
		return nil, err
	}
	if bills == nil {
		bills = []bill.Bill{}
	}
	return bills, nil
}

func (b *billsResource) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("email", req.Email); err != nil {
		return nil, fmt.Errorf("writing email field: %w", err)
	}
	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.c.baseURL+"/bills", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var resp CreateResponse
	if err := b.c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, decodeError(fmt.Errorf("create response has no id"))
	}
	return &resp, nil
}

func (b *billsResource) Update(ctx context.Context, req UpdateRequest) (*bill.Bill, error) {
	if !json.Valid([]byte(req.Data)) {
		return nil, &RemoteError{Kind: KindClient, Message: "Données invalides", Err: fmt.Errorf("update data is not valid JSON")}
	}

	u := b.c.baseURL + "/bills/" + url.PathEscape(req.Selector)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, strings.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var updated bill.Bill
	if err := b.c.do(httpReq, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// do sends req and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out interface{}) error {
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, errorDetail(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return decodeError(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// errorDetail extracts the message of a {"error": "..."} body, or returns the raw text
func errorDetail(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
