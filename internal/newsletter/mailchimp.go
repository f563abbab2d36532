package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// subscribeTimeout bounds the provider call so a slow mailing-list
// service cannot stall signup. A timed-out call is an ordinary failure.
const subscribeTimeout = 5 * time.Second

// mailchimpNotifier subscribes members through the Mailchimp v3 API
type mailchimpNotifier struct {
	cfg        *Config
	baseURL    string
	httpClient *http.Client
}

func newMailchimpNotifier(cfg *Config) *mailchimpNotifier {
	return &mailchimpNotifier{
		cfg:     cfg,
		baseURL: fmt.Sprintf("https://%s.api.mailchimp.com/3.0", cfg.Server),
		httpClient: &http.Client{
			Timeout: subscribeTimeout,
		},
	}
}

// memberPayload is the "add list member" request body
type memberPayload struct {
	EmailAddress string            `json:"email_address"`
	Status       string            `json:"status"`
	MergeFields  map[string]string `json:"merge_fields"`
}

// errorResponse is the provider's error body; only the detail matters here
type errorResponse struct {
	Detail string `json:"detail"`
}

// Subscribe adds the email to the configured list. HTTP 200 and the
// "already a list member" rejection both count as success; transport
// errors, timeouts and any other status count as failure.
func (n *mailchimpNotifier) Subscribe(ctx context.Context, email, firstName, lastName string) bool {
	payload := memberPayload{
		EmailAddress: email,
		Status:       "subscribed",
		MergeFields: map[string]string{
			"FNAME": firstName,
			"LNAME": lastName,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal newsletter payload for %s: %v", email, err)
		return false
	}

	url := fmt.Sprintf("%s/lists/%s/members", n.baseURL, n.cfg.ListID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("Failed to build newsletter request for %s: %v", email, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	// Mailchimp basic auth ignores the username.
	req.SetBasicAuth("anystring", n.cfg.APIKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.Printf("Newsletter subscription failed for %s: %v", email, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		log.Printf("Subscribed %s to newsletter", email)
		return true
	}

	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		log.Printf("Newsletter subscription failed for %s: status %d", email, resp.StatusCode)
		return false
	}

	if strings.Contains(strings.ToLower(errResp.Detail), "already a list member") {
		log.Printf("%s already subscribed to newsletter", email)
		return true
	}

	log.Printf("Newsletter subscription failed for %s: %s", email, errResp.Detail)
	return false
}

func (n *mailchimpNotifier) Configured() bool { return true }
