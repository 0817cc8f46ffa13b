package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	activityUseCase "github.com/hilthontt/nodeline/internal/application/usecases/activity"
	autoReplyUseCase "github.com/hilthontt/nodeline/internal/application/usecases/autoreply"
	messagingUseCase "github.com/hilthontt/nodeline/internal/application/usecases/messaging"
	sessionUseCase "github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/configs"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
	"github.com/hilthontt/nodeline/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/nodeline/internal/infrastructure/repository"
	"github.com/hilthontt/nodeline/internal/infrastructure/ws"
	activityHandler "github.com/hilthontt/nodeline/internal/presentation/handler/activity"
	autoRepliesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/autoreplies"
	healthHandler "github.com/hilthontt/nodeline/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/messages"
	nodesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/nodes"
	sessionsHandler "github.com/hilthontt/nodeline/internal/presentation/handler/sessions"
	"github.com/hilthontt/nodeline/internal/presentation/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caller struct {
	id    string
	staff bool
}

var (
	anonymous = caller{}
	alice     = caller{id: "u-alice"}
	bob       = caller{id: "u-bob"}
	sysop     = caller{id: "u-sysop", staff: true}
)

type testServer struct {
	handler http.Handler
}

type serverOptions struct {
	seed    int
	policy  domain.CapacityPolicy
	probes  map[string]healthHandler.Probe
	limiter ratelimiter.Limiter
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	logger := logging.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	registry := repository.NewNodeRegistry(opts.seed, opts.policy)
	audit := activityUseCase.NewUseCase(repository.NewActivityRepository(), nil, m, logger, nil)
	autoReplies := autoReplyUseCase.NewUseCase(repository.NewAutoReplyRepository(), logger, nil)
	core := ws.NewCore(m, logger)
	sessions := sessionUseCase.NewUseCase(registry, repository.NewUserRepository(), audit, autoReplies, m, logger, nil, sessionUseCase.Options{Live: core})
	messaging := messagingUseCase.NewUseCase(registry, repository.NewMessageRepository(), autoReplies, core, m, logger, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Run(ctx)

	app := NewApplication(configs.Config{}, Handlers{
		Sessions:    sessionsHandler.NewHandler(sessions, logger),
		Nodes:       nodesHandler.NewHandler(sessions, logger),
		Messages:    messagesHandler.NewHandler(messaging, sessions, core, logger),
		AutoReplies: autoRepliesHandler.NewHandler(autoReplies, logger),
		Activity:    activityHandler.NewHandler(audit, logger),
		Health:      healthHandler.NewHandler(opts.probes),
	}, logger, m, reg, opts.limiter)

	return &testServer{handler: app.Mount()}
}

func (s *testServer) do(t *testing.T, as caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if as.id != "" {
		req.Header.Set(utils.HeaderUserID, as.id)
		req.Header.Set(utils.HeaderUserHandle, strings.TrimPrefix(as.id, "u-"))
	}
	if as.staff {
		req.Header.Set(utils.HeaderUserStaff, "true")
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type nodeBody struct {
	Ordinal  int    `json:"ordinal"`
	Status   string `json:"status"`
	Occupant string `json:"occupant"`
}

type acquireBody struct {
	Node      nodeBody `json:"node"`
	Displaced *struct {
		Node int `json:"node"`
	} `json:"displaced"`
	Audit struct {
		Recorded bool `json:"recorded"`
	} `json:"audit"`
}

type messageBody struct {
	Message struct {
		Body   string `json:"body"`
		Target string `json:"target"`
		ToNode int    `json:"toNode"`
	} `json:"message"`
	AutoReply string `json:"autoReply"`
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOptions{seed: 2})

	rec := s.do(t, anonymous, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, alice, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	acquired := decode[acquireBody](t, rec)
	assert.Equal(t, 1, acquired.Node.Ordinal)
	assert.Equal(t, "u-alice", acquired.Node.Occupant)
	assert.True(t, acquired.Audit.Recorded)
	assert.Nil(t, acquired.Displaced)

	rec = s.do(t, alice, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	again := decode[acquireBody](t, rec)
	require.NotNil(t, again.Displaced)
	assert.Equal(t, 1, again.Displaced.Node)

	rec = s.do(t, anonymous, http.MethodGet, "/api/nodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[struct {
		Total    int `json:"total"`
		Occupied int `json:"occupied"`
	}](t, rec)
	assert.Equal(t, 2, listed.Total)
	assert.Equal(t, 1, listed.Occupied)

	rec = s.do(t, alice, http.MethodPost, "/api/sessions/u-alice/activity", map[string]string{"label": "reading mail"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, alice, http.MethodPost, "/api/sessions/u-alice/activity", map[string]string{"label": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, bob, http.MethodDelete, "/api/sessions/u-alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, alice, http.MethodDelete, "/api/sessions/u-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	released := decode[struct {
		Released bool `json:"released"`
		Node     int  `json:"node"`
	}](t, rec)
	assert.True(t, released.Released)
	assert.Equal(t, 1, released.Node)

	rec = s.do(t, anonymous, http.MethodGet, "/api/nodes/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[nodeBody](t, rec).Occupant)

	rec = s.do(t, anonymous, http.MethodGet, "/api/nodes/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, anonymous, http.MethodGet, "/api/nodes/zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcquireConflictWhenPoolFull(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOptions{seed: 1, policy: domain.Bounded(1)})

	require.Equal(t, http.StatusCreated, s.do(t, alice, http.MethodPost, "/api/sessions", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, bob, http.MethodPost, "/api/sessions", nil).Code)
}

func TestMessagingOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOptions{seed: 2})

	require.Equal(t, http.StatusCreated, s.do(t, alice, http.MethodPost, "/api/sessions", nil).Code)
	require.Equal(t, http.StatusCreated, s.do(t, bob, http.MethodPost, "/api/sessions", nil).Code)

	rec := s.do(t, bob, http.MethodPut, "/api/auto-replies/u-bob", map[string]any{"enabled": true, "message": "back soon"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, alice, http.MethodPut, "/api/auto-replies/u-bob", map[string]any{"enabled": true, "message": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, alice, http.MethodPost, "/api/messages", map[string]any{"fromNode": 1, "toNode": 2, "body": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[messageBody](t, rec)
	assert.Equal(t, "hello", sent.Message.Body)
	assert.Equal(t, "direct", sent.Message.Target)
	assert.Equal(t, 2, sent.Message.ToNode)
	assert.Equal(t, "back soon", sent.AutoReply)

	rec = s.do(t, bob, http.MethodPost, "/api/messages", map[string]any{"fromNode": 1, "toNode": 2, "body": "spoofed"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the occupant may send from a node")

	rec = s.do(t, alice, http.MethodPost, "/api/messages", map[string]any{"fromNode": 1, "toNode": 2, "body": "", "extra": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, alice, http.MethodPost, "/api/messages/broadcast", map[string]any{"fromNode": 1, "body": "hi all"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "broadcast", decode[messageBody](t, rec).Message.Target)

	rec = s.do(t, alice, http.MethodPost, "/api/messages/page", map[string]any{"fromNode": 1, "toUser": "u-carol", "body": "ring"})
	assert.Equal(t, http.StatusConflict, rec.Code, "paging an offline user")

	rec = s.do(t, alice, http.MethodGet, "/api/nodes/2/messages/unread", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, bob, http.MethodGet, "/api/nodes/2/messages/unread", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unread := decode[struct {
		Messages []struct {
			Body string `json:"body"`
		} `json:"messages"`
	}](t, rec)
	require.Len(t, unread.Messages, 2)
	assert.Equal(t, "hello", unread.Messages[0].Body)
	assert.Equal(t, "hi all", unread.Messages[1].Body)

	rec = s.do(t, bob, http.MethodDelete, "/api/auto-replies/u-bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, bob, http.MethodGet, "/api/auto-replies/u-bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaffOperations(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOptions{seed: 2})

	require.Equal(t, http.StatusCreated, s.do(t, alice, http.MethodPost, "/api/sessions", nil).Code)

	rec := s.do(t, alice, http.MethodPut, "/api/nodes/1/status", map[string]string{"status": "maintenance"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, sysop, http.MethodPut, "/api/nodes/1/status", map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, sysop, http.MethodPut, "/api/nodes/1/status", map[string]string{"status": "maintenance"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	node := decode[nodeBody](t, rec)
	assert.Equal(t, "MAINTENANCE", node.Status)
	assert.Empty(t, node.Occupant)

	rec = s.do(t, alice, http.MethodGet, "/api/activity", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, alice, http.MethodGet, "/api/activity/users/u-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, sysop, http.MethodGet, "/api/activity/actions/login?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, sysop, http.MethodGet, "/api/activity/actions/reboot", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, sysop, http.MethodGet, "/api/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "LOGIN")
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOptions{
		seed: 1,
		probes: map[string]healthHandler.Probe{
			"redis": func(context.Context) error { return errors.New("dial tcp: connection refused") },
		},
	})

	assert.Equal(t, http.StatusOK, s.do(t, anonymous, http.MethodGet, "/api/health", nil).Code)

	rec := s.do(t, anonymous, http.MethodGet, "/api/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	s.do(t, alice, http.MethodPost, "/api/sessions", nil)
	rec = s.do(t, anonymous, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nodeline_acquires_total")
	assert.Contains(t, rec.Body.String(), "nodeline_http_requests_total")
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	t.Parallel()

	cache := ratelimiter.NewInMemory()
	t.Cleanup(func() { _ = cache.Close() })
	s := newTestServer(t, serverOptions{
		seed:    1,
		limiter: ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, MaxBurst: 2, Store: cache}),
	})

	assert.Equal(t, http.StatusOK, s.do(t, anonymous, http.MethodGet, "/api/nodes", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, anonymous, http.MethodGet, "/api/nodes", nil).Code)

	rec := s.do(t, anonymous, http.MethodGet, "/api/nodes", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, s.do(t, anonymous, http.MethodGet, "/api/health", nil).Code, "health checks are not limited")
}
