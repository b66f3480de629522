package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(h Handlers, secret string, verify bool) http.Handler {
	s := NewServer(ServerConfig{
		ChannelSecret:   secret,
		VerifySignature: verify,
		Router:          NewRouter(h, testLogger()),
		Logger:          testLogger(),
	})
	return s.Handler()
}

func do(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(&recordingHandlers{}, "", false)
	for _, path := range []string{"/health", "/"} {
		rr := do(h, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["status"] != "healthy" || body["service"] != "line-webhook-receiver" {
			t.Errorf("%s: unexpected body %v", path, body)
		}
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := newTestServer(&recordingHandlers{}, "", false)
	rr := do(h, http.MethodPut, "/", "", nil)
	if rr.Code != http.StatusMethodNotAllowed || rr.Body.String() != "Method not allowed" {
		t.Fatalf("expected 405, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	h := newTestServer(&recordingHandlers{}, "", false)
	rr := do(h, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "linedoc_uptime_seconds") {
		t.Fatalf("unexpected metrics response %d", rr.Code)
	}
}

func TestServer_WebhookDispatches(t *testing.T) {
	rh := &recordingHandlers{}
	h := newTestServer(rh, "", false)
	rr := do(h, http.MethodPost, "/", `{"events":[{"type":"follow","replyToken":"x","source":{"userId":"U1"}}]}`, nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", rr.Code, rr.Body.String())
	}
	if len(rh.Calls()) != 1 {
		t.Errorf("expected one handler call, got %v", rh.Calls())
	}
}

func TestServer_UnknownMessageTypeNoOutbound(t *testing.T) {
	n := &mockNotifier{}
	f := &mockFetcher{}
	handlers := NewEventHandlers(HandlerConfig{Notifier: n, Fetcher: f, Logger: testLogger()})
	h := newTestServer(handlers, "", false)

	rr := do(h, http.MethodPost, "/", `{"events":[{"type":"message","replyToken":"x","source":{"userId":"U1"},"message":{"id":"1","type":"sticker"}}]}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(n.Sent()) != 0 || len(f.requests) != 0 {
		t.Errorf("expected no outbound calls, got %+v / %+v", n.Sent(), f.requests)
	}
}

func TestServer_MalformedBody(t *testing.T) {
	h := newTestServer(&recordingHandlers{}, "", false)
	rr := do(h, http.MethodPost, "/", `not json`, nil)
	if rr.Code != http.StatusInternalServerError || rr.Body.String() != "Error" {
		t.Fatalf("expected 500 Error, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestServer_Signature(t *testing.T) {
	const secret = "channel-secret"
	body := `{"events":[]}`
	h := newTestServer(&recordingHandlers{}, secret, true)

	if rr := do(h, http.MethodPost, "/", body, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("missing signature: expected 401, got %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/", body, map[string]string{"X-Line-Signature": "bogus"}); rr.Code != http.StatusForbidden {
		t.Errorf("bad signature: expected 403, got %d", rr.Code)
	}
	sig := Sign([]byte(body), secret)
	if rr := do(h, http.MethodPost, "/", body, map[string]string{"X-Line-Signature": sig}); rr.Code != http.StatusOK {
		t.Errorf("valid signature: expected 200, got %d", rr.Code)
	}
}

func TestServer_SignatureSkippedWithoutSecret(t *testing.T) {
	h := newTestServer(&recordingHandlers{}, "", true)
	if rr := do(h, http.MethodPost, "/", `{}`, nil); rr.Code != http.StatusOK {
		t.Fatalf("expected verification disabled without secret, got %d", rr.Code)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	if !verifySignature(body, "s", Sign(body, "s")) {
		t.Error("valid signature should verify")
	}
	if verifySignature(body, "s", Sign(body, "other")) {
		t.Error("signature from another secret should not verify")
	}
	if verifySignature(body, "s", "") {
		t.Error("empty signature should not verify")
	}
}

func TestServer_UnknownPath(t *testing.T) {
	h := newTestServer(&recordingHandlers{}, "", false)
	if rr := do(h, http.MethodPost, "/other", "{}", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestServer_OversizedBodyRejected(t *testing.T) {
	const secret = "channel-secret"
	rec := &recordingHandlers{}
	h := newTestServer(rec, secret, true)

	padded := func(size int) string {
		head := `{"events":[{"type":"follow","replyToken":"rt"}]`
		return head + strings.Repeat(" ", size-len(head)-1) + "}"
	}

	atLimit := padded(maxBodyBytes)
	rr := do(h, http.MethodPost, "/", atLimit, map[string]string{signatureHeader: Sign([]byte(atLimit), secret)})
	if rr.Code != http.StatusOK {
		t.Fatalf("body at the limit: expected 200, got %d %q", rr.Code, rr.Body.String())
	}

	over := padded(maxBodyBytes + 1)
	rr = do(h, http.MethodPost, "/", over, map[string]string{signatureHeader: Sign([]byte(over), secret)})
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body: expected 413, got %d %q", rr.Code, rr.Body.String())
	}
	if n := len(rec.Calls()); n != 1 {
		t.Errorf("expected only the in-limit body to be dispatched, got %d calls", n)
	}
}
