package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/indyforge/groupindustry/internal/config"
	"github.com/tidwall/gjson"
)

// TreeBuilder expands one product into its production tree.
type TreeBuilder interface {
	BuildProductionTree(ctx context.Context, productTypeID int, runs int64, meLevel int, excludedTypeIDs []int) (*TreeNode, error)
}

// HTTPTreeBuilder calls the production tree service over HTTP.
type HTTPTreeBuilder struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewHTTPTreeBuilder(cfg *config.TreeBuilderConfig) *HTTPTreeBuilder {
	return &HTTPTreeBuilder{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newRetryClient(cfg.TimeoutSeconds, cfg.RetryMax),
	}
}

// newRetryClient builds a quiet retrying client that hands the last response
// back to the caller instead of swallowing it, so error bodies can be read.
func newRetryClient(timeoutSeconds, retryMax int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = retryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if timeoutSeconds > 0 {
		client.HTTPClient.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return client
}

type treeRequest struct {
	ProductTypeID   int   `json:"product_type_id"`
	Runs            int64 `json:"runs"`
	MELevel         int   `json:"me_level"`
	ExcludedTypeIDs []int `json:"excluded_type_ids"`
}

func (b *HTTPTreeBuilder) BuildProductionTree(ctx context.Context, productTypeID int, runs int64, meLevel int, excludedTypeIDs []int) (tree *TreeNode, err error) {
	started := time.Now()
	defer func() { recordUpstreamCall("tree_builder", err, started) }()

	if excludedTypeIDs == nil {
		excludedTypeIDs = []int{}
	}
	payload, err := json.Marshal(treeRequest{
		ProductTypeID:   productTypeID,
		Runs:            runs,
		MELevel:         meLevel,
		ExcludedTypeIDs: excludedTypeIDs,
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/production-tree", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := doUpstream(b.client, req, "tree_builder")
	if err != nil {
		return nil, err
	}

	tree = &TreeNode{}
	if err := json.Unmarshal(body, tree); err != nil {
		return nil, &UpstreamUnavailableError{Service: "tree_builder", Err: fmt.Errorf("decode tree for type %d: %w", productTypeID, err)}
	}
	if tree.ProductTypeID == 0 {
		tree.ProductTypeID = productTypeID
	}
	return tree, nil
}

// doUpstream executes req and returns the body of a 2xx response. Everything
// else becomes an UpstreamUnavailableError.
func doUpstream(client *retryablehttp.Client, req *retryablehttp.Request, service string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, &UpstreamUnavailableError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamUnavailableError{Service: service, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "message").String()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamUnavailableError{
			Service: service,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, msg),
		}
	}
	return body, nil
}
