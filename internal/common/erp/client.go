// internal/common/erp/client.go
package erp

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
	"time"

	"pos-interpreter/internal/common/config"
	apphttp "pos-interpreter/internal/common/http"
	"pos-interpreter/internal/models"
)

const (
	getListPath  = "/api/method/frappe.client.get_list"
	getItemsPath = "/api/method/posawesome.posawesome.api.posapp.get_items"
)

var (
	ErrAuthNotConfigured = errors.New("ERP_AUTH_NOT_CONFIGURED")
	ErrRequestFailed     = errors.New("ERP_REQUEST_FAILED")
)

// Client talks to the Frappe/ERPNext REST API and the POS Awesome app.
type Client struct {
	baseURL    string
	authHeader string
	profile    Profile
	httpClient *apphttp.Client
}

// Profile carries the business defaults sent with every item lookup.
type Profile struct {
	Company   string
	Name      string
	Warehouse string
	PriceList string
	Currency  string
}

func NewClient(cfg config.ERPConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: AuthHeader(cfg.Token, cfg.APIKey, cfg.APISecret),
		profile: Profile{
			Company:   cfg.Company,
			Name:      cfg.Profile,
			Warehouse: cfg.Warehouse,
			PriceList: cfg.PriceList,
			Currency:  cfg.Currency,
		},
		httpClient: apphttp.NewClient(timeout),
	}
}

// AuthHeader builds the Authorization value. A full token wins over a
// key/secret pair; a bare key is accepted as a last resort.
func AuthHeader(token, key, secret string) string {
	token = strings.TrimSpace(token)
	key = strings.TrimSpace(key)
	secret = strings.TrimSpace(secret)
	switch {
	case token != "":
		if strings.HasPrefix(strings.ToLower(token), "token ") {
			return token
		}
		return "token " + token
	case key != "" && secret != "":
		return fmt.Sprintf("token %s:%s", key, secret)
	case key != "":
		return "token " + key
	}
	return ""
}

func (c *Client) Company() string { return c.profile.Company }

// GetList runs frappe.client.get_list and returns the message rows.
func (c *Client) GetList(ctx context.Context, doctype string, fields []string, filters interface{}, limit, page int) ([]map[string]interface{}, error) {
	if c.authHeader == "" {
		return nil, ErrAuthNotConfigured
	}
	if page < 1 {
		page = 1
	}
	payload := map[string]interface{}{
		"doctype":           doctype,
		"fields":            fields,
		"filters":           filters,
		"limit_page_length": limit,
		"limit_start":       (page - 1) * limit,
	}

	var out struct {
		Message []map[string]interface{} `json:"message"`
	}
	headers := map[string]string{"Authorization": c.authHeader}
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.baseURL+getListPath, headers, payload, &out); err != nil {
		return nil, fmt.Errorf("%w: get_list %s: %v", ErrRequestFailed, doctype, err)
	}
	return out.Message, nil
}

// ModesOfPayment lists enabled modes of payment with their accounts for
// the configured company. A failing account lookup leaves accounts empty.
func (c *Client) ModesOfPayment(ctx context.Context) ([]models.PaymentMethod, error) {
	rows, err := c.GetList(ctx, "Mode of Payment",
		[]string{"name", "enabled"},
		[][]interface{}{{"Mode of Payment", "enabled", "=", 1}},
		200, 1)
	if err != nil {
		return nil, err
	}

	accounts := map[string][]models.PaymentAccount{}
	if c.profile.Company != "" {
		accRows, accErr := c.GetList(ctx, "Mode of Payment Account",
			[]string{"parent as mode_of_payment", "company", "default_account as account"},
			[][]interface{}{{"Mode of Payment Account", "company", "=", c.profile.Company}},
			500, 1)
		if accErr == nil {
			for _, r := range accRows {
				mop := stringField(r, "mode_of_payment")
				if mop == "" {
					continue
				}
				accounts[mop] = append(accounts[mop], models.PaymentAccount{
					Company: stringField(r, "company"),
					Account: stringField(r, "account"),
				})
			}
		}
	}

	methods := make([]models.PaymentMethod, 0, len(rows))
	for _, r := range rows {
		name := stringField(r, "name")
		if name == "" {
			continue
		}
		accs := accounts[name]
		if accs == nil {
			accs = []models.PaymentAccount{}
		}
		methods = append(methods, models.PaymentMethod{Name: name, Accounts: accs})
	}
	return methods, nil
}

// GetItems calls the POS get_items endpoint with the configured profile.
func (c *Client) GetItems(ctx context.Context, query string, limit, page int) ([]models.Item, error) {
	if c.authHeader == "" {
		return nil, ErrAuthNotConfigured
	}
	if page < 1 {
		page = 1
	}
	profile, err := json.Marshal(map[string]interface{}{
		"name":                c.profile.Name,
		"price_list":          c.profile.PriceList,
		"price_list_currency": c.profile.Currency,
		"plc_conversion_rate": 1,
		"conversion_rate":     1,
		"warehouse":           c.profile.Warehouse,
	})
	if err != nil {
		return nil, fmt.Errorf("encode pos profile: %w", err)
	}

	form := url.Values{}
	form.Set("search_term", query)
	form.Set("page_length", strconv.Itoa(limit))
	form.Set("start", strconv.Itoa((page-1)*limit))
	form.Set("warehouse", c.profile.Warehouse)
	form.Set("price_list", c.profile.PriceList)
	form.Set("price_list_currency", c.profile.Currency)
	form.Set("plc_conversion_rate", "1")
	form.Set("conversion_rate", "1")
	form.Set("pos_profile", string(profile))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+getItemsPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get_items: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get_items status %d: %s", ErrRequestFailed, resp.StatusCode, truncate(string(body), 512))
	}

	var out struct {
		Message []models.Item `json:"message"`
		Data    []models.Item `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: get_items decode: %v", ErrRequestFailed, err)
	}
	if len(out.Message) > 0 {
		return out.Message, nil
	}
	if out.Data != nil {
		return out.Data, nil
	}
	return []models.Item{}, nil
}

// SearchItems returns the first page of POS items for query.
func (c *Client) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	return c.GetItems(ctx, query, limit, 1)
}

func stringField(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
