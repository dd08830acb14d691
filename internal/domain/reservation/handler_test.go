package reservation_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"esports-scheduler/internal/domain/blackout"
	"esports-scheduler/internal/domain/reservation"
	"esports-scheduler/internal/middleware"
	"esports-scheduler/internal/notify"
	"esports-scheduler/internal/pkg/jwt"
	"esports-scheduler/internal/testutil"
)

const cronSecret = "cron-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type api struct {
	*engine
	router      *gin.Engine
	adminToken  string
	viewerToken string
	jwt         *jwt.Service
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := newEngine(t, nil)
	j := jwt.New("handler-test-secret", time.Hour)

	h := reservation.NewHandler(e.svc, e.hub, 50*time.Millisecond, nil, zap.NewNop())
	r := gin.New()
	v1 := r.Group("/api/v1")
	admin := v1.Group("", middleware.JWTAuth(j), middleware.AdminOnly())
	h.RegisterRoutes(v1, admin)
	h.RegisterCronRoutes(v1.Group("/admin", middleware.CronSecret(cronSecret, zap.NewNop())))

	adminToken, err := j.GenerateToken(e.Admin.ID, e.Admin.Role)
	require.NoError(t, err)
	viewerToken, err := j.GenerateToken(e.Viewer.ID, e.Viewer.Role)
	require.NoError(t, err)

	return &api{engine: e, router: r, adminToken: adminToken, viewerToken: viewerToken, jwt: j}
}

func (a *api) do(t *testing.T, method, target, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func createBody(teamID string, from, to time.Time, ids ...int64) gin.H {
	return gin.H{"teamId": teamID, "computerIds": ids, "startsAt": from, "endsAt": to}
}

func decodeGroup(t *testing.T, env envelope) reservation.Group {
	t.Helper()
	var data struct {
		Group reservation.Group `json:"group"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Group
}

func TestHandler_CreateAndConflict(t *testing.T) {
	a := newAPI(t)
	at := testutil.At

	w, env := a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-valorant-a", at(10, 0), at(12, 0), a.PC(1), a.PC(2)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	g := decodeGroup(t, env)
	assert.Equal(t, []string{"PC-01", "PC-02"}, g.ComputerLabels)

	w, env = a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-cs2-a", at(11, 0), at(13, 0), a.PC(2), a.PC(3)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BOOKING_CONFLICT", env.Error.Code)
	assert.Equal(t, []any{"PC-02"}, env.Error.Details["computers"])
}

func TestHandler_CreateAcceptsSingleComputerID(t *testing.T) {
	a := newAPI(t)

	body := gin.H{"teamId": "team-cs2-a", "computerId": a.PC(4), "startsAt": testutil.At(9, 0), "endsAt": testutil.At(10, 0)}
	w, env := a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []int64{a.PC(4)}, decodeGroup(t, env).ComputerIDs)
}

func TestHandler_CreateErrors(t *testing.T) {
	a := newAPI(t)
	at := testutil.At
	ctx := context.Background()

	require.NoError(t, blackout.NewRepository(a.DB).Create(ctx, &blackout.Window{
		StartsAt: at(20, 0), EndsAt: at(23, 0), Scope: blackout.ScopeAll, Reason: "Finals stream",
	}))

	ghostToken, err := a.jwt.GenerateToken(uuid.NewString(), "ADMIN")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", "", createBody("team-cs2-a", at(10, 0), at(11, 0), 1), http.StatusUnauthorized, "AUTH_HEADER_MISSING"},
		{"viewer", a.viewerToken, createBody("team-cs2-a", at(10, 0), at(11, 0), 1), http.StatusForbidden, "FORBIDDEN"},
		{"stale session", ghostToken, createBody("team-cs2-a", at(10, 0), at(11, 0), a.PC(1)), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed json", a.adminToken, `{"teamId":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing team", a.adminToken, gin.H{"computerIds": []int64{1}, "startsAt": at(10, 0), "endsAt": at(11, 0)}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"reversed window", a.adminToken, createBody("team-cs2-a", at(11, 0), at(10, 0), a.PC(1)), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"blackout", a.adminToken, createBody("team-cs2-a", at(21, 0), at(22, 0), a.PC(1)), http.StatusConflict, "BLACKOUT_CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(t, http.MethodPost, "/api/v1/reservations", tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}

	t.Run("inactive computer is named", func(t *testing.T) {
		w, env := a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-cs2-a", at(10, 0), at(11, 0), a.PC(5)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []any{float64(a.PC(5))}, env.Error.Details["computerIds"])
	})
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	a := newAPI(t)
	at := testutil.At

	_, env := a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-valorant-a", at(10, 0), at(12, 0), a.PC(1)))
	g := decodeGroup(t, env)

	update := createBody("team-valorant-a", at(10, 30), at(12, 30), a.PC(1), a.PC(2))
	update["groupId"] = g.ID
	w, env := a.do(t, http.MethodPut, "/api/v1/reservations", a.adminToken, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"PC-01", "PC-02"}, decodeGroup(t, env).ComputerLabels)

	update["groupId"] = uuid.NewString()
	w, env = a.do(t, http.MethodPut, "/api/v1/reservations", a.adminToken, update)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	delete(update, "groupId")
	w, _ = a.do(t, http.MethodPut, "/api/v1/reservations", a.adminToken, update)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodDelete, "/api/v1/reservations", a.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodDelete, "/api/v1/reservations?groupId="+uuid.NewString(), a.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = a.do(t, http.MethodDelete, "/api/v1/reservations?groupId="+g.ID, a.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"groupId":"`+g.ID+`","deleted":2}`, string(env.Data))
}

func TestHandler_DeleteSingleReservation(t *testing.T) {
	a := newAPI(t)
	at := testutil.At

	_, env := a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-valorant-a", at(10, 0), at(12, 0), a.PC(1), a.PC(2)))
	g := decodeGroup(t, env)
	rowID := g.Reservations[0]

	w, _ := a.do(t, http.MethodDelete, "/api/v1/reservations/"+rowID, a.viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = a.do(t, http.MethodDelete, "/api/v1/reservations/"+rowID, a.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":"`+rowID+`","groupId":"`+g.ID+`","deleted":1}`, string(env.Data))

	w, env = a.do(t, http.MethodDelete, "/api/v1/reservations/"+rowID, a.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHandler_List(t *testing.T) {
	a := newAPI(t)
	at := testutil.At

	a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-valorant-a", at(10, 0), at(12, 0), a.PC(1), a.PC(2)))

	w, env := a.do(t, http.MethodGet, "/api/v1/reservations?grouped=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var grouped struct {
		Groups []reservation.Group `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grouped))
	require.Len(t, grouped.Groups, 1)

	w, env = a.do(t, http.MethodGet, "/api/v1/reservations?computerId="+itoa(a.PC(2)), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var raw struct {
		Reservations []reservation.Reservation `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	require.Len(t, raw.Reservations, 1)
	assert.Equal(t, "PC-02", raw.Reservations[0].Computer.Label)

	w, _ = a.do(t, http.MethodGet, "/api/v1/reservations?computerId=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/v1/reservations?start=yesterday&end=today", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Purge(t *testing.T) {
	a := newAPI(t)
	cutoff := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-cs2-a", testutil.At(9, 0), testutil.At(10, 0), a.PC(1)))
	a.do(t, http.MethodPost, "/api/v1/reservations", a.adminToken, createBody("team-cs2-a", testutil.At(13, 0), testutil.At(14, 0), a.PC(1)))

	target := "/api/v1/admin/purge-reservations?cutoff=" + cutoff.Format(time.RFC3339)

	w, env := a.do(t, http.MethodPost, target, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	req := httptest.NewRequest(http.MethodGet, target+"&dryRun=1", nil)
	req.Header.Set(middleware.CronSecretHeader, cronSecret)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"wouldDelete":1`)
	assert.Contains(t, rec.Body.String(), `"dryRun":true`)

	w, env = a.do(t, http.MethodPost, target+"&secret="+cronSecret, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cutoff":"2026-03-14T12:00:00Z","deleted":1}`, string(env.Data))

	w, _ = a.do(t, http.MethodPost, "/api/v1/admin/purge-reservations?cutoff=soon&secret="+cronSecret, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_StreamDeliversEvents(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/reservations/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitFor := func(pred func(string) bool) string {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed early")
				if pred(line) {
					return line
				}
			case <-deadline:
				t.Fatal("timed out reading stream")
			}
		}
	}

	waitFor(func(l string) bool { return l == ": connected" })
	require.Eventually(t, func() bool { return a.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	g, err := a.book(t, "team-cs2-a", testutil.At(10, 0), testutil.At(11, 0), 1)
	require.NoError(t, err)

	waitFor(func(l string) bool { return l == "event:message" })
	data := waitFor(func(l string) bool { return strings.HasPrefix(l, "data:") })
	var ev notify.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(data, "data:")), &ev))
	assert.Equal(t, notify.ChangeEvent{Type: notify.EventCreated, GroupID: g.ID}, ev)

	waitFor(func(l string) bool { return l == ": ping" })

	cancel()
	require.Eventually(t, func() bool { return a.hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_WebSocketDeliversEvents(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/reservations/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	g, err := a.book(t, "team-valorant-a", testutil.At(10, 0), testutil.At(11, 0), 2)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev notify.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notify.ChangeEvent{Type: notify.EventCreated, GroupID: g.ID}, ev)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return a.hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
