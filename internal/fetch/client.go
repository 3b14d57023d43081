// Package fetch retrieves receipt document links from provider HTTP
// endpoints.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/soyeahso/tellerbot/internal/logging"
)

// Endpoint describes a provider's receipt API.
type Endpoint struct {
	// URLTemplate has two %s verbs: the utility sub-provider id and the
	// transaction id, in that order.
	URLTemplate string

	// Host and Referer override the respective request headers when
	// non-empty. Some provider endpoints check them.
	Host    string
	Referer string
}

// Client fetches receipt links.
type Client struct {
	client *http.Client
	log    *logging.Logger
}

// NewClient creates a fetch client. timeout bounds one endpoint call;
// values of zero and below fall back to 30 seconds.
func NewClient(timeout time.Duration, log *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		log:    log.Sub("fetch"),
	}
}

// downloadedLink is the JSON body the receipt endpoints return.
type downloadedLink struct {
	Link string `json:"link"`
}

// FetchLink calls the provider endpoint for the given utility sub-provider
// and transaction id and returns the unescaped document URL.
func (c *Client) FetchLink(ctx context.Context, ep Endpoint, utilityID, trxID string) (string, error) {
	if ep.URLTemplate == "" {
		return "", errors.New("fetch: endpoint has no URL template")
	}
	addr := fmt.Sprintf(ep.URLTemplate, utilityID, trxID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.67 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7")
	if ep.Host != "" {
		req.Host = ep.Host
	}
	if ep.Referer != "" {
		req.Header.Set("Referer", ep.Referer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: endpoint returned %d", resp.StatusCode)
	}

	var link downloadedLink
	if err := json.Unmarshal(body, &link); err != nil {
		return "", fmt.Errorf("fetch: parsing response: %w", err)
	}
	if link.Link == "" {
		return "", errors.New("fetch: response has no link")
	}

	unescaped, err := url.PathUnescape(link.Link)
	if err != nil {
		return "", fmt.Errorf("fetch: unescaping link: %w", err)
	}
	return unescaped, nil
}
