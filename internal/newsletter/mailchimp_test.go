package newsletter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testNotifier points a mailchimp notifier at a fake provider
func testNotifier(serverURL string) *mailchimpNotifier {
	n := newMailchimpNotifier(&Config{APIKey: "key-us1", ListID: "list123", Server: "us1"})
	n.baseURL = serverURL
	return n
}

func TestSubscribe_Success(t *testing.T) {
	var gotPath string
	var gotPayload memberPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if user, pass, ok := r.BasicAuth(); !ok || user != "anystring" || pass != "key-us1" {
			t.Errorf("unexpected basic auth: %q %q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	if !n.Subscribe(context.Background(), "a@x.com", "A", "B") {
		t.Fatal("expected success on 200 response")
	}

	if gotPath != "/lists/list123/members" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotPayload.EmailAddress != "a@x.com" || gotPayload.Status != "subscribed" {
		t.Errorf("unexpected payload: %+v", gotPayload)
	}
	if gotPayload.MergeFields["FNAME"] != "A" || gotPayload.MergeFields["LNAME"] != "B" {
		t.Errorf("unexpected merge fields: %v", gotPayload.MergeFields)
	}
}

func TestSubscribe_AlreadyMemberIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "a@x.com is Already a List Member. Use PUT to insert."})
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	if !n.Subscribe(context.Background(), "a@x.com", "A", "B") {
		t.Error("already-a-member response should count as success")
	}
}

func TestSubscribe_ProviderErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "service unavailable"})
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	if n.Subscribe(context.Background(), "a@x.com", "A", "B") {
		t.Error("provider error should count as failure")
	}
}

func TestSubscribe_TimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise Close hangs forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	n.httpClient.Timeout = 50 * time.Millisecond

	if n.Subscribe(context.Background(), "a@x.com", "A", "B") {
		t.Error("timed-out call should count as failure")
	}
}

func TestNewNotifier_Unconfigured(t *testing.T) {
	n := NewNotifier(&Config{})
	if n.Configured() {
		t.Error("empty config should disable the integration")
	}
	// Unconfigured means "nothing to do", which is success.
	if !n.Subscribe(context.Background(), "a@x.com", "A", "B") {
		t.Error("unconfigured notifier should report success without calling out")
	}
}

func TestNewConfig_ServerFromAPIKeySuffix(t *testing.T) {
	t.Setenv("MAILCHIMP_API_KEY", "deadbeef-us21")
	t.Setenv("MAILCHIMP_LIST_ID", "list123")
	t.Setenv("MAILCHIMP_SERVER", "")

	cfg := NewConfig()
	if cfg.Server != "us21" {
		t.Errorf("expected server prefix us21 from key suffix, got %q", cfg.Server)
	}
	if !cfg.Configured() {
		t.Error("config with key, list and derived server should be configured")
	}
}
