package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/adeilh/digitally/advisor"
	"github.com/adeilh/digitally/api"
	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/cache"
	"github.com/adeilh/digitally/config"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/llm"
	"github.com/adeilh/digitally/payments"
	"github.com/adeilh/digitally/queue"
	"github.com/adeilh/digitally/resumes"
	"github.com/adeilh/digitally/store/memory"
	"github.com/adeilh/digitally/users"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const webhookSecret = "whsec_test"

type fixture struct {
	client *httpx.Client
	users  *users.Service
}

// newFixture serves the API over in-memory stores and a gateway without a
// key, so every model call returns the canned mock payloads.
func newFixture(t *testing.T, limits config.RateLimitConfig) *fixture {
	t.Helper()
	signer, err := auth.NewSigner([]byte(strings.Repeat("k", auth.MinSecretLength)))
	require.NoError(t, err)
	tokens := auth.NewTokens(signer, 0, 0)
	accounts := users.NewService(memory.NewUsers(), tokens)
	admin, err := auth.NewAdmin("admin", "hunter2", "", tokens)
	require.NoError(t, err)

	leadStore := memory.NewLeads()
	q := queue.New()
	c := cache.New[json.RawMessage]()
	gw := llm.NewGateway()
	adv := advisor.NewService(gw, q, c, leadStore, nil)
	t.Cleanup(adv.Wait)

	h := api.New(api.Deps{
		Leads:    leads.NewService(leadStore, nil, nil),
		Users:    accounts,
		Resumes:  resumes.NewService(memory.NewResumes(), accounts, gw, q, nil),
		Advisor:  adv,
		Payments: payments.NewService(accounts, payments.WithWebhookSecret(webhookSecret)),
		Admin:    admin,
		Guard:    auth.NewGuard(tokens, accounts),
		Limits:   limits,
		Queue:    q,
		Cache:    c,
		Gateway:  gw,
	})
	srv := httpx.NewServer()
	srv.RegisterRoutes(h.Register)
	ts := httpx.NewTestServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{client: httpx.NewClient(httpx.WithBaseURL(ts.BaseURL())), users: accounts}
}

func (f *fixture) do(t *testing.T, method, path string, body any, opts ...httpx.RequestOption) *resty.Response {
	t.Helper()
	ctx := context.Background()
	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = f.client.Get(ctx, path, nil, opts...)
	case http.MethodPost:
		resp, err = f.client.Post(ctx, path, body, nil, opts...)
	case http.MethodPatch:
		resp, err = f.client.Patch(ctx, path, body, nil, opts...)
	default:
		t.Fatalf("unsupported method %s", method)
	}
	require.NotNil(t, resp, "transport error: %v", err)
	return resp
}

func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/users", map[string]string{"email": email})
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	var s struct {
		Token string `json:"token"`
	}
	decode(t, resp, &s)
	return s.Token
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "hunter2"})
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decode(t *testing.T, resp *resty.Response, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body(), v), resp.String())
}

func message(t *testing.T, resp *resty.Response) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decode(t, resp, &body)
	return body.Message
}

func adminHeader(token string) httpx.RequestOption {
	return httpx.WithRequestHeaders(map[string]string{auth.AdminHeader: token})
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})
	resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, resp.String())
}

func TestRoastReportsSourceTier(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})

	first := f.do(t, http.MethodPost, "/api/ai/roast-website", map[string]string{"url": "Example.com/"})
	require.Equal(t, http.StatusOK, first.StatusCode(), first.String())
	assert.Equal(t, string(advisor.SourceModel), first.Header().Get(api.SourceHeader))
	var roast advisor.RoastResult
	decode(t, first, &roast)
	assert.Equal(t, 85.0, roast.Score)

	second := f.do(t, http.MethodPost, "/api/ai/roast-website", map[string]string{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, second.StatusCode())
	assert.Equal(t, string(advisor.SourceMemory), second.Header().Get(api.SourceHeader))
	assert.JSONEq(t, first.String(), second.String())

	missing := f.do(t, http.MethodPost, "/api/ai/roast-website", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode())
	assert.JSONEq(t, `{"error":"URL is required"}`, missing.String())

	invalid := f.do(t, http.MethodPost, "/api/ai/roast-website", map[string]string{"url": "ftp://example.com"})
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode())
}

func TestAgencyTools(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})

	resp := f.do(t, http.MethodPost, "/api/ai/chat", map[string]any{
		"message": "What do you do?",
		"history": []map[string]string{{"role": "user", "content": "hi"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var chat struct {
		Reply string `json:"reply"`
	}
	decode(t, resp, &chat)
	assert.NotEmpty(t, chat.Reply)

	resp = f.do(t, http.MethodPost, "/api/ai/chat", map[string]string{"message": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp = f.do(t, http.MethodPost, "/api/ai/qualify-lead", map[string]string{"budget": "$5k"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Business type is required", message(t, resp))

	resp = f.do(t, http.MethodPost, "/api/ai/qualify-lead", advisor.LeadInfo{
		BusinessType: "Bakery", BiggestChallenge: "No traffic", Budget: "$5k", Timeline: "ASAP",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, string(advisor.SourceModel), resp.Header().Get(api.SourceHeader))
	var q advisor.Qualification
	decode(t, resp, &q)
	assert.NotEmpty(t, q.NextStep)

	resp = f.do(t, http.MethodPost, "/api/ai/generate-response", advisor.Feedback{ClientName: "Ana", Feedback: "Great work"})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var reply struct {
		Response string `json:"response"`
		FollowUp string `json:"followUp"`
	}
	decode(t, resp, &reply)
	assert.NotEmpty(t, reply.Response)
	assert.NotEmpty(t, reply.FollowUp)
}

func TestUsers(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})

	resp := f.do(t, http.MethodPost, "/api/users", map[string]string{"email": "Ana@Example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	var session struct {
		ID      string `json:"_id"`
		Email   string `json:"email"`
		Token   string `json:"token"`
		Credits int    `json:"credits"`
		Plan    string `json:"plan"`
	}
	decode(t, resp, &session)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "ana@example.com", session.Email)
	assert.Equal(t, users.SignupCredits, session.Credits)
	assert.Equal(t, "free", session.Plan)

	tests := []struct {
		name string
		path string
		body map[string]string
		want string
	}{
		{"duplicate", "/api/users", map[string]string{"email": "ana@example.com"}, "User already exists"},
		{"empty", "/api/users", map[string]string{}, "Please add all fields"},
		{"malformed", "/api/users", map[string]string{"email": "nope"}, "Please add a valid email"},
		{"unknown login", "/api/users/login", map[string]string{"email": "who@example.com"}, "Invalid credentials"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
			assert.Equal(t, tc.want, message(t, resp))
		})
	}

	resp = f.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode())

	resp = f.do(t, http.MethodGet, "/api/users/me", nil, httpx.WithBearer(session.Token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"id":"`+session.ID+`","email":"ana@example.com","credits":1,"plan":"free"}`, resp.String())

	resp = f.do(t, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "Not authorized, no token", message(t, resp))
}

func TestCareerTools(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})
	token := f.register(t, "career@example.com")

	resp := f.do(t, http.MethodPost, "/api/chat/consultant", map[string]string{"message": "Should I quit?"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp = f.do(t, http.MethodPost, "/api/chat/consultant", map[string]string{"message": "Should I quit?"}, httpx.WithBearer(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var consult struct {
		Reply string `json:"reply"`
	}
	decode(t, resp, &consult)
	assert.Contains(t, consult.Reply, "mock")

	resp = f.do(t, http.MethodPost, "/api/chat/content", map[string]string{}, httpx.WithBearer(token))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Topic required", message(t, resp))

	resp = f.do(t, http.MethodPost, "/api/chat/content", map[string]string{"topic": "Go"}, httpx.WithBearer(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var post advisor.LinkedInPost
	decode(t, resp, &post)
	assert.NotEmpty(t, post.Hook)

	// rewrite is open to guests
	resp = f.do(t, http.MethodPost, "/api/chat/rewrite", map[string]string{"bullet": "Did stuff"})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var rw struct {
		Rewritten string `json:"rewritten"`
	}
	decode(t, resp, &rw)
	assert.Contains(t, rw.Rewritten, "Rationale:")

	resp = f.do(t, http.MethodPost, "/api/chat/rewrite", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Bullet point required", message(t, resp))
}

func multipartResume(t *testing.T, name, contentType, body string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="resume"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestResumes(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	// guest upload through JSON
	resp := f.do(t, http.MethodPost, "/api/resumes", map[string]string{"text": "Go engineer, 5 years"})
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	var guest resumes.Resume
	decode(t, resp, &guest)
	assert.Empty(t, guest.UserID)

	resp = f.do(t, http.MethodPost, "/api/resumes/"+guest.ID+"/analyze", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	var analyzed resumes.Resume
	decode(t, resp, &analyzed)
	require.NotNil(t, analyzed.Analysis)
	assert.Equal(t, 72.0, analyzed.Analysis.Score)

	// owned upload through multipart
	body, ctype := multipartResume(t, "cv.txt", "text/plain", "Senior Go engineer")
	resp = f.do(t, http.MethodPost, "/api/resumes", body, httpx.WithBearer(alice),
		httpx.WithRequestHeaders(map[string]string{"Content-Type": ctype}))
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	var owned resumes.Resume
	decode(t, resp, &owned)
	assert.NotEmpty(t, owned.UserID)
	assert.Equal(t, "cv.txt", owned.OriginalName)

	resp = f.do(t, http.MethodGet, "/api/resumes/"+owned.ID, nil, httpx.WithBearer(bob))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "User not authorized", message(t, resp))

	resp = f.do(t, http.MethodGet, "/api/resumes/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp = f.do(t, http.MethodPost, "/api/resumes/"+owned.ID+"/analyze", nil, httpx.WithBearer(alice))
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	// the signup credit is spent
	resp = f.do(t, http.MethodPost, "/api/resumes/"+owned.ID+"/analyze", nil, httpx.WithBearer(alice))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.Equal(t, "No credits remaining. Please upgrade.", message(t, resp))

	resp = f.do(t, http.MethodGet, "/api/resumes?ids="+guest.ID, nil, httpx.WithBearer(alice))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var list []resumes.Summary
	decode(t, resp, &list)
	assert.Len(t, list, 2)

	resp = f.do(t, http.MethodGet, "/api/resumes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `[]`, resp.String())

	body, ctype = multipartResume(t, "virus.exe", "application/octet-stream", "MZ")
	resp = f.do(t, http.MethodPost, "/api/resumes", body,
		httpx.WithRequestHeaders(map[string]string{"Content-Type": ctype}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Error: Resumes Only (PDF/DOC)!", message(t, resp))
}

func TestContactAndAdmin(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})

	resp := f.do(t, http.MethodPost, "/api/contact", map[string]string{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp = f.do(t, http.MethodPost, "/api/contact", leads.ContactRequest{
		Name: "Ana", Email: "ana@example.com", Service: "SEO", Message: "Help",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Lead received successfully!", message(t, resp))

	resp = f.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "Invalid ID or password", message(t, resp))

	resp = f.do(t, http.MethodGet, "/api/admin/leads", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "Not authorized as admin", message(t, resp))

	// a user token is not an admin token
	userToken := f.register(t, "sneaky@example.com")
	resp = f.do(t, http.MethodGet, "/api/admin/leads", nil, adminHeader(userToken))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	token := f.adminToken(t)
	resp = f.do(t, http.MethodGet, "/api/admin/leads?type=contact", nil, adminHeader(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var list []leads.Lead
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, leads.StatusNew, list[0].Status)

	resp = f.do(t, http.MethodGet, "/api/admin/leads?limit=x", nil, adminHeader(token))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp = f.do(t, http.MethodPatch, "/api/admin/leads/"+list[0].ID, map[string]string{"status": "contacted"}, adminHeader(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var updated leads.Lead
	decode(t, resp, &updated)
	assert.Equal(t, leads.StatusContacted, updated.Status)

	resp = f.do(t, http.MethodPatch, "/api/admin/leads/"+list[0].ID, map[string]string{"status": "lost"}, adminHeader(token))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	resp = f.do(t, http.MethodPatch, "/api/admin/leads/missing", map[string]string{"status": "closed"}, adminHeader(token))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp = f.do(t, http.MethodGet, "/api/admin/stats", nil, adminHeader(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var st leads.Stats
	decode(t, resp, &st)
	assert.Equal(t, 1, st.TotalLeads)
	assert.Equal(t, 0, st.NewLeads)

	f.do(t, http.MethodPost, "/api/ai/roast-website", map[string]string{"url": "example.com"})
	resp = f.do(t, http.MethodGet, "/api/admin/metrics", nil, adminHeader(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var m struct {
		Queue   queue.Stats      `json:"queue"`
		Cache   cache.Stats      `json:"cache"`
		Gateway llm.GatewayStats `json:"gateway"`
		Advisor advisor.Stats    `json:"advisor"`
	}
	decode(t, resp, &m)
	assert.Equal(t, int64(1), m.Queue.Submitted)
	assert.Equal(t, 1, m.Cache.Size)
	assert.True(t, m.Gateway.Mock)
	assert.Equal(t, int64(1), m.Advisor.Results[advisor.SourceModel])

	resp = f.do(t, http.MethodPost, "/api/admin/logout", nil, adminHeader(token))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	resp = f.do(t, http.MethodGet, "/api/admin/leads", nil, adminHeader(token))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestPayments(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{})
	token := f.register(t, "payer@example.com")

	resp := f.do(t, http.MethodPost, "/api/payments/subscribe", map[string]string{"planId": payments.PlanProMonthly})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp = f.do(t, http.MethodPost, "/api/payments/subscribe", map[string]string{"planId": "gold"}, httpx.WithBearer(token))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Invalid Plan", message(t, resp))

	resp = f.do(t, http.MethodPost, "/api/payments/subscribe", map[string]string{"planId": payments.PlanProMonthly}, httpx.WithBearer(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var order payments.Order
	decode(t, resp, &order)
	assert.True(t, strings.HasPrefix(order.ID, "order_mock_"))
	assert.Equal(t, int64(199900), order.Amount)

	u, err := f.users.Login(context.Background(), "payer@example.com")
	require.NoError(t, err)
	event, err := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{"payment": map[string]any{"entity": map[string]any{
			"id":    "pay_9",
			"notes": map[string]string{"userId": u.User.ID, "planId": payments.PlanProMonthly},
		}}},
	})
	require.NoError(t, err)

	sig := func(s string) httpx.RequestOption {
		return httpx.WithRequestHeaders(map[string]string{api.SignatureHeader: s})
	}
	resp = f.do(t, http.MethodPost, "/api/payments/webhook", event, sig("deadbeef"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.JSONEq(t, `{"status":"invalid_signature"}`, resp.String())

	resp = f.do(t, http.MethodPost, "/api/payments/webhook", event, sig(payments.Sign(webhookSecret, event)))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, resp.String())

	resp = f.do(t, http.MethodGet, "/api/users/me", nil, httpx.WithBearer(token))
	require.Equal(t, http.StatusOK, resp.StatusCode())
	var me struct {
		Plan    string `json:"plan"`
		Credits int    `json:"credits"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "pro", me.Plan)
	assert.Equal(t, users.ProCredits, me.Credits)
}

func TestRateLimits(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{
		API: config.Limit{Requests: 100, Window: time.Minute},
		AI:  config.Limit{Requests: 2, Window: time.Minute},
	})

	for i := 0; i < 2; i++ {
		resp := f.do(t, http.MethodPost, "/api/ai/chat", map[string]string{"message": "hi"})
		require.Equal(t, http.StatusOK, resp.StatusCode())
	}
	resp := f.do(t, http.MethodPost, "/api/ai/chat", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
	assert.Equal(t, "AI request limit reached. Please try again in 15 minutes.", message(t, resp))

	// the general budget is separate
	resp = f.do(t, http.MethodPost, "/api/contact", leads.ContactRequest{Name: "A", Email: "a@example.com", Message: "m"})
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}
