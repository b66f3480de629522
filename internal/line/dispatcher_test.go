package line

import (
	"context"
	"io"
	"net/http"
	"testing"
)

func newTestDispatcher(api *fakeAPI) *Dispatcher {
	return NewDispatcher(DispatcherConfig{Client: api.client(), Logger: testLogger()})
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{}`)
}

func invalidTokenHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusBadRequest)
	io.WriteString(w, `{"message":"Invalid reply token"}`)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   SendResult
	}{
		{200, `{}`, SendOK},
		{400, `{"message":"Invalid reply token"}`, SendInvalidToken},
		{400, `{"message":"The request body has 1 error(s)"}`, SendFailed},
		{401, `{"message":"Invalid reply token"}`, SendFailed},
		{500, `oops`, SendFailed},
	}
	for _, tc := range cases {
		got, err := classify(tc.status, []byte(tc.body))
		if got != tc.want {
			t.Errorf("classify(%d, %s) = %s, want %s", tc.status, tc.body, got, tc.want)
		}
		if got == SendOK && err != nil {
			t.Errorf("unexpected error for success: %v", err)
		}
		if got != SendOK && err == nil {
			t.Errorf("expected error for %d", tc.status)
		}
	}
}

func TestDispatcher_ReplyOK(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /v2/bot/message/reply", okHandler)
	api.handle("POST /v2/bot/message/push", okHandler)

	newTestDispatcher(api).Reply(context.Background(), "token-1", "hello", "U1")

	calls := api.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	c := calls[0]
	if c.Path != "/v2/bot/message/reply" {
		t.Errorf("unexpected path %s", c.Path)
	}
	if c.Auth != "Bearer test-token" {
		t.Errorf("unexpected auth header %q", c.Auth)
	}
	if c.Body["replyToken"] != "token-1" {
		t.Errorf("unexpected reply token %v", c.Body["replyToken"])
	}
	msgs := c.Body["messages"].([]any)
	msg := msgs[0].(map[string]any)
	if msg["type"] != "text" || msg["text"] != "hello" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestDispatcher_InvalidTokenFallsBackToPush(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /v2/bot/message/reply", invalidTokenHandler)
	api.handle("POST /v2/bot/message/push", okHandler)

	newTestDispatcher(api).Reply(context.Background(), "expired", "original text", "U1")

	calls := api.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected reply + push, got %d calls", len(calls))
	}
	push := calls[1]
	if push.Path != "/v2/bot/message/push" {
		t.Fatalf("expected push, got %s", push.Path)
	}
	if push.Body["to"] != "U1" {
		t.Errorf("unexpected push target %v", push.Body["to"])
	}
	msg := push.Body["messages"].([]any)[0].(map[string]any)
	if msg["text"] != "original text" {
		t.Errorf("push should carry the original text, got %v", msg["text"])
	}
}

func TestDispatcher_InvalidTokenWithoutUserMakesNoFurtherCall(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /v2/bot/message/reply", invalidTokenHandler)
	api.handle("POST /v2/bot/message/push", okHandler)

	newTestDispatcher(api).Reply(context.Background(), "expired", "text", "")

	if n := len(api.Calls()); n != 1 {
		t.Fatalf("expected only the reply call, got %d", n)
	}
}

func TestDispatcher_OtherReplyFailureDoesNotPush(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /v2/bot/message/reply", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	api.handle("POST /v2/bot/message/push", okHandler)

	newTestDispatcher(api).Reply(context.Background(), "token", "text", "U1")

	if n := len(api.Calls()); n != 1 {
		t.Fatalf("expected no push after a non-token failure, got %d calls", n)
	}
}

func TestDispatcher_NoTokenPushesDirectly(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /v2/bot/message/push", okHandler)

	newTestDispatcher(api).Reply(context.Background(), "", "text", "U1")

	calls := api.Calls()
	if len(calls) != 1 || calls[0].Path != "/v2/bot/message/push" {
		t.Fatalf("expected a single push, got %+v", calls)
	}
}

func TestDispatcher_NoTokenNoUserDrops(t *testing.T) {
	api := newFakeAPI(t)
	newTestDispatcher(api).Reply(context.Background(), "", "text", "")
	if n := len(api.Calls()); n != 0 {
		t.Fatalf("expected no calls, got %d", n)
	}
}

func TestDispatcher_PushEmptyRecipient(t *testing.T) {
	api := newFakeAPI(t)
	d := newTestDispatcher(api)
	d.Push(context.Background(), "", "text")
	if n := len(api.Calls()); n != 0 {
		t.Fatalf("expected no calls, got %d", n)
	}
	if res, err := d.SendPush(context.Background(), "", "text"); res != SendFailed || err == nil {
		t.Fatalf("expected SendFailed with error, got %s, %v", res, err)
	}
}

func TestDispatcher_PushTransportFailureIsSwallowed(t *testing.T) {
	api := newFakeAPI(t)
	d := newTestDispatcher(api)
	api.server.Close()

	// Must not panic or block.
	d.Push(context.Background(), "U1", "text")

	res, err := d.SendPush(context.Background(), "U1", "text")
	if res != SendFailed || err == nil {
		t.Fatalf("expected SendFailed, got %s, %v", res, err)
	}
}
