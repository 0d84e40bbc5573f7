package plaidclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/plaid/plaid-go/v24/plaid"
	"github.com/sony/gobreaker"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

const (
	serviceName  = "plaid"
	syncPageSize = 500
)

type Adapter struct {
	client  *plaid.APIClient
	breaker *gobreaker.CircuitBreaker
}

func NewAdapter(clientID, secret string, env dto.PlaidEnvironment) *Adapter {
	cfg := plaid.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	cfg.AddDefaultHeader("PLAID-SECRET", secret)
	cfg.UseEnvironment(toPlaidEnv(env))

	return &Adapter{
		client:  plaid.NewAPIClient(cfg),
		breaker: newBreaker(),
	}
}

// newBreaker opens after five consecutive transient failures. Permanent
// errors such as an expired item login do not count against Plaid's health.
func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var ext *errs.ExternalServiceError
			if errors.As(err, &ext) {
				return !ext.Transient
			}
			return err == nil
		},
	})
}

// execute runs one Plaid call through the breaker and converts failures to
// ExternalServiceError.
func (a *Adapter) execute(ctx context.Context, op string, call func() (*http.Response, error)) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		httpResp, err := call()
		if err != nil {
			return nil, classify(op, httpResp, err)
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.FromContext(ctx).Warn("plaid circuit breaker rejected call", "operation", op, "state", a.breaker.State().String())
		return errs.NewExternalServiceError(serviceName, fmt.Sprintf("%s: plaid temporarily unavailable", op), true, err)
	}
	return err
}

// classify marks rate limits, server errors and transport failures as transient.
func classify(op string, httpResp *http.Response, err error) error {
	transient := true
	status := 0
	if httpResp != nil {
		status = httpResp.StatusCode
		transient = status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	msg := fmt.Sprintf("%s failed", op)
	if status != 0 {
		msg = fmt.Sprintf("%s failed with status %d", op, status)
	}
	var apiErr *plaid.GenericOpenAPIError
	if errors.As(err, &apiErr) && len(apiErr.Body()) > 0 {
		if perr, convErr := plaid.ToPlaidError(err); convErr == nil {
			msg = fmt.Sprintf("%s: %s", msg, perr.GetErrorCode())
		}
	}
	return errs.NewExternalServiceError(serviceName, msg, transient, err)
}

func (a *Adapter) CreateLinkToken(ctx context.Context, uid string) (string, error) {
	req := plaid.NewLinkTokenCreateRequest(
		"Envelope Ledger",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		plaid.LinkTokenCreateRequestUser{ClientUserId: uid},
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	var resp plaid.LinkTokenCreateResponse
	err := a.execute(ctx, "link_token_create", func() (*http.Response, error) {
		var (
			httpResp *http.Response
			err      error
		)
		resp, httpResp, err = a.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
		return httpResp, err
	})
	if err != nil {
		return "", err
	}
	return resp.GetLinkToken(), nil
}

func (a *Adapter) ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	var resp plaid.ItemPublicTokenExchangeResponse
	err = a.execute(ctx, "item_public_token_exchange", func() (*http.Response, error) {
		var (
			httpResp *http.Response
			err      error
		)
		resp, httpResp, err = a.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
		return httpResp, err
	})
	if err != nil {
		return "", "", err
	}
	return resp.GetItemId(), resp.GetAccessToken(), nil
}

// RemoveItem revokes the access token at Plaid.
func (a *Adapter) RemoveItem(ctx context.Context, accessToken string) error {
	req := plaid.NewItemRemoveRequest(accessToken)
	return a.execute(ctx, "item_remove", func() (*http.Response, error) {
		_, httpResp, err := a.client.PlaidApi.ItemRemove(ctx).ItemRemoveRequest(*req).Execute()
		return httpResp, err
	})
}

func (a *Adapter) GetAccounts(ctx context.Context, accessToken string) ([]dto.PlaidAccount, error) {
	req := plaid.NewAccountsGetRequest(accessToken)
	var resp plaid.AccountsGetResponse
	err := a.execute(ctx, "accounts_get", func() (*http.Response, error) {
		var (
			httpResp *http.Response
			err      error
		)
		resp, httpResp, err = a.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
		return httpResp, err
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]dto.PlaidAccount, 0, len(resp.GetAccounts()))
	for _, acc := range resp.GetAccounts() {
		balances := acc.GetBalances()
		accounts = append(accounts, dto.PlaidAccount{
			AccountID:    acc.GetAccountId(),
			Name:         acc.GetName(),
			OfficialName: acc.GetOfficialName(),
			Mask:         acc.GetMask(),
			Type:         string(acc.GetType()),
			Subtype:      string(acc.GetSubtype()),
			Currency:     balances.GetIsoCurrencyCode(),
			Balance:      balances.GetCurrent(),
		})
	}
	return accounts, nil
}

func (a *Adapter) SyncTransactionsPage(ctx context.Context, in dto.PlaidSyncRequest) (dto.PlaidSyncPage, error) {
	req := plaid.NewTransactionsSyncRequest(in.AccessToken)
	if in.Cursor != "" {
		req.SetCursor(in.Cursor)
	}
	req.SetCount(syncPageSize)
	opts := plaid.NewTransactionsSyncRequestOptions()
	opts.SetIncludePersonalFinanceCategory(true)
	if in.Cursor == "" && in.DaysRequested > 0 {
		opts.SetDaysRequested(int32(in.DaysRequested))
	}
	req.SetOptions(*opts)

	var page dto.PlaidSyncPage
	var resp plaid.TransactionsSyncResponse
	err := a.execute(ctx, "transactions_sync", func() (*http.Response, error) {
		var (
			httpResp *http.Response
			err      error
		)
		resp, httpResp, err = a.client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*req).Execute()
		return httpResp, err
	})
	if err != nil {
		return page, err
	}

	page.Added = make([]dto.PlaidTransaction, 0, len(resp.GetAdded()))
	for _, t := range resp.GetAdded() {
		page.Added = append(page.Added, convertTransaction(t))
	}
	page.Modified = make([]dto.PlaidTransaction, 0, len(resp.GetModified()))
	for _, t := range resp.GetModified() {
		page.Modified = append(page.Modified, convertTransaction(t))
	}
	page.Removed = make([]string, 0, len(resp.GetRemoved()))
	for _, r := range resp.GetRemoved() {
		page.Removed = append(page.Removed, r.GetTransactionId())
	}
	page.NextCursor = resp.GetNextCursor()
	page.HasMore = resp.GetHasMore()

	return page, nil
}

func convertTransaction(t plaid.Transaction) dto.PlaidTransaction {
	categories := t.GetCategory()
	if pfc, ok := t.GetPersonalFinanceCategoryOk(); ok && pfc != nil && pfc.GetPrimary() != "" {
		categories = []string{pfc.GetPrimary(), pfc.GetDetailed()}
	}
	return dto.PlaidTransaction{
		TransactionID:  t.GetTransactionId(),
		AccountID:      t.GetAccountId(),
		Amount:         t.GetAmount(),
		Date:           t.GetDate(),
		AuthorizedDate: t.GetAuthorizedDate(),
		Pending:        t.GetPending(),
		Name:           t.GetName(),
		MerchantName:   t.GetMerchantName(),
		Categories:     categories,
	}
}

func toPlaidEnv(env dto.PlaidEnvironment) plaid.Environment {
	switch env {
	case dto.PlaidSandbox:
		return plaid.Sandbox
	case dto.PlaidDevelopment:
		return plaid.Development
	default: // dto.PlaidProduction
		return plaid.Production
	}
}
