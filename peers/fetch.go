package peers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Fetch retrieves a node's identity record straight from its descriptor
// endpoint. The client may be nil.
func Fetch(ctx context.Context, client *http.Client, nodeURL string) (NodeInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(nodeURL, "/")+"/", nil)
	if err != nil {
		return NodeInfo{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return NodeInfo{}, fmt.Errorf("fetching node info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NodeInfo{}, fmt.Errorf("fetching node info: unexpected status %d", resp.StatusCode)
	}

	var info NodeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return NodeInfo{}, fmt.Errorf("decoding node info: %w", err)
	}
	return info, nil
}

// Client talks to a peer directory.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a directory client. The HTTP client may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Announce publishes a signed identity record to the directory.
func (c *Client) Announce(ctx context.Context, ann *SignedAnnouncement) error {
	payload, err := json.Marshal(ann)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/nodes", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("announcing node: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("announcing node: unexpected status %d", resp.StatusCode)
	}

	var ack AnnounceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decoding announce response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("announcing node: %s", ack.Message)
	}
	return nil
}

// Withdraw removes a record; the announcement proves key ownership.
func (c *Client) Withdraw(ctx context.Context, ann *SignedAnnouncement) error {
	payload, err := json.Marshal(ann)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/nodes/"+ann.Node.Hotkey, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("withdrawing node: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("withdrawing node: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// List fetches every announcement the directory holds, verifying each
// signature and dropping records that fail.
func (c *Client) List(ctx context.Context) ([]NodeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nodes", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing nodes: unexpected status %d", resp.StatusCode)
	}

	var list ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding node list: %w", err)
	}

	nodes := make([]NodeInfo, 0, len(list.Nodes))
	for _, ann := range list.Nodes {
		node, err := ann.Recover()
		if err != nil {
			continue
		}
		nodes = append(nodes, *node)
	}
	return nodes, nil
}

// Get fetches one verified record by hotkey.
func (c *Client) Get(ctx context.Context, hotkey string) (NodeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nodes/"+hotkey, nil)
	if err != nil {
		return NodeInfo{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NodeInfo{}, fmt.Errorf("fetching node: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return NodeInfo{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return NodeInfo{}, fmt.Errorf("fetching node: unexpected status %d", resp.StatusCode)
	}

	var ann SignedAnnouncement
	if err := json.NewDecoder(resp.Body).Decode(&ann); err != nil {
		return NodeInfo{}, fmt.Errorf("decoding node: %w", err)
	}
	node, err := ann.Recover()
	if err != nil {
		return NodeInfo{}, err
	}
	return *node, nil
}
