package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ethtracker/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultEtherscanURL = "https://api.etherscan.io/api"
	userAgent           = "EthereumTransactionTracker/1.0"
	maxErrorBody        = 512
)

// Waiter gates outgoing requests. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// EtherscanClient reads account history from an Etherscan compatible REST API.
type EtherscanClient struct {
	baseURL    string
	apiKey     string
	chainID    uint64
	httpClient *http.Client
	limiter    Waiter
}

func newEtherscanClient(opts Options) (*EtherscanClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: etherscan api key is required", domain.ErrConfiguration)
	}
	if opts.Limiter == nil {
		return nil, fmt.Errorf("%w: rate limiter is required", domain.ErrConfiguration)
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultEtherscanURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &EtherscanClient{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		chainID:    opts.ChainID,
		httpClient: httpClient,
		limiter:    opts.Limiter,
	}, nil
}

func (c *EtherscanClient) FetchNormal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.UnifiedTransaction, error) {
	rows, err := c.get(ctx, "txlist", c.accountParams(address, startBlock, endBlock, page, pageSize))
	if err != nil {
		return nil, err
	}
	transactions := make([]domain.UnifiedTransaction, 0, len(rows))
	for _, raw := range rows {
		tx, err := parseNormalTransaction(raw)
		if err != nil {
			slog.Warn("skip normal transaction", "address", address, "err", err)
			continue
		}
		transactions = append(transactions, tx)
	}
	slog.Info("retrieved normal transactions", "address", address, "page", page, "count", len(transactions))
	return transactions, nil
}

func (c *EtherscanClient) FetchInternal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.InternalTransactionRecord, error) {
	rows, err := c.get(ctx, "txlistinternal", c.accountParams(address, startBlock, endBlock, page, pageSize))
	if err != nil {
		return nil, err
	}
	records := make([]domain.InternalTransactionRecord, 0, len(rows))
	for _, raw := range rows {
		record, err := parseInternalTransaction(raw)
		if err != nil {
			slog.Warn("skip internal transaction", "address", address, "err", err)
			continue
		}
		records = append(records, record)
	}
	slog.Info("retrieved internal transactions", "address", address, "page", page, "count", len(records))
	return records, nil
}

func (c *EtherscanClient) FetchTokenTransfers(ctx context.Context, address, contractAddress string, startBlock, endBlock uint64, page, pageSize int) ([]domain.TokenTransferRecord, error) {
	params := c.accountParams(address, startBlock, endBlock, page, pageSize)
	if contractAddress != "" {
		params.Set("contractaddress", strings.ToLower(contractAddress))
	}
	rows, err := c.get(ctx, "tokentx", params)
	if err != nil {
		return nil, err
	}
	transfers := make([]domain.TokenTransferRecord, 0, len(rows))
	for _, raw := range rows {
		transfer, err := parseTokenTransfer(raw)
		if err != nil {
			slog.Warn("skip token transfer", "address", address, "err", err)
			continue
		}
		transfers = append(transfers, transfer)
	}
	slog.Info("retrieved token transfers", "address", address, "page", page, "count", len(transfers))
	return transfers, nil
}

func (c *EtherscanClient) accountParams(address string, startBlock, endBlock uint64, page, pageSize int) url.Values {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("address", address)
	params.Set("startblock", strconv.FormatUint(startBlock, 10))
	params.Set("endblock", strconv.FormatUint(endBlock, 10))
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(pageSize))
	params.Set("sort", "desc")
	return params
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *EtherscanClient) get(ctx context.Context, action string, params url.Values) (rows []row, err error) {
	ctx, span := otel.Tracer("ethtracker/explorer").Start(ctx, "explorer."+action)
	span.SetAttributes(
		attribute.String("explorer.action", action),
		attribute.String("address", params.Get("address")),
		attribute.String("page", params.Get("page")),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("action", action)
	params.Set("apikey", c.apiKey)
	if c.chainID != 0 {
		params.Set("chainid", strconv.FormatUint(c.chainID, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// url.Error embeds the request URL, which carries the api key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTransport, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &domain.APIError{Provider: string(ProviderEtherscan), StatusCode: resp.StatusCode, Message: "rate limit exceeded", RateLimit: true}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.APIError{Provider: string(ProviderEtherscan), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var decoded envelope
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", domain.ErrTransport, action, err)
	}
	if decoded.Status != "1" {
		if isEmptyResult(decoded) {
			return nil, nil
		}
		message := errorMessage(decoded)
		return nil, &domain.APIError{
			Provider:  string(ProviderEtherscan),
			Message:   message,
			RateLimit: strings.Contains(strings.ToLower(message), "rate limit"),
		}
	}
	if len(decoded.Result) == 0 || string(decoded.Result) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(decoded.Result, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: decode result: %v", domain.ErrTransport, action, err)
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func isEmptyResult(decoded envelope) bool {
	message := strings.ToLower(decoded.Message)
	if strings.HasPrefix(message, "no transactions found") || strings.HasPrefix(message, "no records found") {
		return true
	}
	return false
}

func errorMessage(decoded envelope) string {
	message := decoded.Message
	if message == "" {
		message = "unknown error"
	}
	var detail string
	if err := json.Unmarshal(decoded.Result, &detail); err == nil && detail != "" {
		message = message + ": " + detail
	}
	return message
}
