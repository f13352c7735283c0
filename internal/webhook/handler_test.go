package webhook

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"railalert/internal/platform/logger"
	"railalert/internal/subscription/models"
	"railalert/internal/subscription/service"
	"railalert/internal/subscription/service/mocks"
	"railalert/internal/subscription/store"
	"railalert/pkg/platform/sentinel"
	"railalert/pkg/testutil"
)

const sender = "whatsapp:+6591234567"

type WebhookSuite struct {
	suite.Suite
	store  *store.InMemory
	router http.Handler
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookSuite))
}

func (s *WebhookSuite) SetupTest() {
	s.store = store.NewInMemory()
	registry, err := service.New(s.store, store.NewInMemoryCache(), service.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	s.router = newRouter(registry)
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, logger.Discard()).Register(r)
	return r
}

func (s *WebhookSuite) send(from, body string) string {
	form := url.Values{}
	if from != "" {
		form.Set("From", from)
	}
	if body != "" {
		form.Set("Body", body)
	}
	rr := testutil.DoRequest(s.router, testutil.NewFormRequest(s.T(), "/twilio/whatsapp", form))
	return decodeTwiML(s.T(), rr)
}

func decodeTwiML(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("expected application/xml, got %q", ct)
	}
	var resp twimlResponse
	if err := xml.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid twiml %q: %v", rr.Body.String(), err)
	}
	return resp.Message
}

func (s *WebhookSuite) TestMissingFields() {
	s.Equal(replyMissingFields, s.send("", "SUB NEL"))
	s.Equal(replyMissingFields, s.send(sender, ""))
}

func (s *WebhookSuite) TestSubscribeAndList() {
	s.Equal("✅ Subscribed you to: NEL, EWL", s.send(sender, "sub nel ewl"))
	s.Equal(2, s.store.Count())

	s.Equal("You are subscribed to: EWL, NEL", s.send("whatsapp:6591234567", "LINES"))

	s.Equal("✅ Unsubscribed you from: NEL", s.send(sender, "UNSUB NEL"))
	s.Equal("You are subscribed to: EWL", s.send(sender, "lines"))

	s.Equal("✅ Unsubscribed you from: EWL", s.send(sender, "UNSUB EWL"))
	s.Equal(replyNotSubscribed, s.send(sender, "LINES"))
}

func (s *WebhookSuite) TestUsageHints() {
	s.Equal("Tell me which line. Example: SUB NEL", s.send(sender, "SUB"))
	s.Equal("Tell me which line. Example: UNSUB NEL", s.send(sender, "unsub"))
	s.Equal(replyHelp, s.send(sender, "hi"))
}

func (s *WebhookSuite) TestUnknownLineChangesNothing() {
	reply := s.send(sender, "SUB NEL FOO")
	s.Contains(reply, "Unknown line: FOO")
	s.Equal(0, s.store.Count())
}

func TestWebhookStoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().Add(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub models.Subscription) (bool, error) {
			if sub.Recipient != sender {
				t.Errorf("unexpected recipient %s", sub.Recipient)
			}
			return false, sentinel.ErrUnavailable
		})
	registry, err := service.New(st, mocks.NewMockCache(ctrl), service.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	form := url.Values{"From": {sender}, "Body": {"SUB NEL"}}
	rr := testutil.DoRequest(newRouter(registry), testutil.NewFormRequest(t, "/twilio/whatsapp", form))
	if got := decodeTwiML(t, rr); got != replyUnavailable {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestWebhookPartialFailureNamesAppliedLines(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	gomock.InOrder(
		st.EXPECT().Add(gomock.Any(), gomock.Any()).Return(true, nil),
		st.EXPECT().Add(gomock.Any(), gomock.Any()).Return(false, sentinel.ErrUnavailable),
	)
	cache := store.NewInMemoryCache()
	registry, err := service.New(st, cache, service.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	form := url.Values{"From": {sender}, "Body": {"SUB NEL EWL"}}
	rr := testutil.DoRequest(newRouter(registry), testutil.NewFormRequest(t, "/twilio/whatsapp", form))

	want := "✅ Subscribed you to: NEL\nCould not update EWL right now. Please try again later."
	if got := decodeTwiML(t, rr); got != want {
		t.Fatalf("unexpected reply %q", got)
	}
}
