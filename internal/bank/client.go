package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the production Mono v2 endpoint.
const DefaultBaseURL = "https://api.withmono.com/v2"

// ErrNoBalance is returned when the account payload carries no balance.
var ErrNoBalance = errors.New("bank: balance not present in response")

// StatusError reports a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bank: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient implements Client against the live API.
type HTTPClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client. A nil httpClient uses http.DefaultClient;
// per-request deadlines come from the caller's context.
func NewHTTPClient(baseURL, secretKey string, httpClient *http.Client) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: httpClient,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("mono-sec-key", c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// FetchTransactions requests one page of transactions.
func (c *HTTPClient) FetchTransactions(ctx context.Context, externalAccountID string, page int) (*TransactionsPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(PageSize))

	body, err := c.get(ctx, "/accounts/"+url.PathEscape(externalAccountID)+"/transactions", query)
	if err != nil {
		return nil, fmt.Errorf("FetchTransactions: page %d: %w", page, err)
	}

	var out TransactionsPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("FetchTransactions: decoding page %d: %w", page, err)
	}
	out.Raw = body
	return &out, nil
}

type accountResponse struct {
	Data struct {
		Account struct {
			Balance *int64 `json:"balance"`
		} `json:"account"`
	} `json:"data"`
}

// FetchBalance requests the account details and returns data.account.balance.
func (c *HTTPClient) FetchBalance(ctx context.Context, externalAccountID string) (int64, error) {
	body, err := c.get(ctx, "/accounts/"+url.PathEscape(externalAccountID), nil)
	if err != nil {
		return 0, fmt.Errorf("FetchBalance: %w", err)
	}

	var out accountResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("FetchBalance: decoding: %w", err)
	}
	if out.Data.Account.Balance == nil {
		return 0, ErrNoBalance
	}
	return *out.Data.Account.Balance, nil
}
