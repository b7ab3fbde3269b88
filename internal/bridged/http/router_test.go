package http_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bridgedhttp "github.com/rockfridrich/villa-sub000/internal/bridged/http"
	"github.com/rockfridrich/villa-sub000/internal/bridged/service"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store/drivers/sqlite"
	"github.com/rockfridrich/villa-sub000/pkg/bridge"
	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testHostOrigin    = "https://shop.example.com"
	testTrustedOrigin = "https://villa.cash"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, _, err := jwtx.GenerateEdDSA("test-key")
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewCommonEdDSA(keys, "bridged-test")

	svc := &service.SessionService{
		Store: st,
		Tickets: &service.TicketService{
			Signer:   signer,
			Verifier: verifier,
			Issuer:   "bridged-test",
			TTL:      time.Minute,
		},
		Logger:     slog.Default(),
		AppID:      "app_test",
		Network:    bridge.NetworkBase,
		HostOrigin: testHostOrigin,
		SessionTTL: 5 * time.Second,
	}

	router := bridgedhttp.NewRouter(keys, verifier, "test", st, slog.Default())
	router.SessionService = svc
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func createSession(t *testing.T, srv *httptest.Server) bridgedhttp.CreateSessionResponse {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testHostOrigin)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out bridgedhttp.CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.SessionID)
	require.NotEmpty(t, out.Ticket)
	return out
}

func postMessage(t *testing.T, srv *httptest.Server, sess bridgedhttp.CreateSessionResponse, origin, data string) *http.Response {
	t.Helper()

	body, err := json.Marshal(bridgedhttp.MessageRequest{Origin: origin, Data: data})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions/"+sess.SessionID+"/messages", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+sess.Ticket)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// sseCommands reads the events stream and sends decoded commands.
func sseCommands(t *testing.T, srv *httptest.Server, sess bridgedhttp.CreateSessionResponse) <-chan service.Command {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + sess.EventsURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() { _ = resp.Body.Close() })

	out := make(chan service.Command, 16)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var cmd service.Command
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cmd); err != nil {
				continue
			}
			out <- cmd
		}
	}()
	return out
}

func nextCommand(t *testing.T, cmds <-chan service.Command) service.Command {
	t.Helper()
	select {
	case cmd, ok := <-cmds:
		require.True(t, ok, "command stream ended early")
		return cmd
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for command")
		return service.Command{}
	}
}

func TestCreateSessionRejectsForeignOrigin(t *testing.T) {
	srv := setupServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFullSignInFlow(t *testing.T) {
	srv := setupServer(t)
	sess := createSession(t, srv)

	cmds := sseCommands(t, srv, sess)

	open := nextCommand(t, cmds)
	require.Equal(t, service.CommandOpen, open.Kind)
	require.Contains(t, open.URL, "https://villa.cash/embed")

	resp := postMessage(t, srv, sess, testTrustedOrigin, `{"type":"VILLA_READY"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, service.CommandReady, nextCommand(t, cmds).Kind)

	success := `{"type":"VILLA_AUTH_SUCCESS","payload":{"identity":{"address":"0x1234567890123456789012345678901234567890","nickname":"alice","avatar":{"style":"adventurer","seed":"x"}}}}`
	resp = postMessage(t, srv, sess, testTrustedOrigin, success)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resolved := nextCommand(t, cmds)
	require.Equal(t, service.CommandResolved, resolved.Kind)
	require.Equal(t, "success", resolved.Event)

	require.Equal(t, service.CommandClose, nextCommand(t, cmds).Kind)
}

func TestMessagesRequireTicket(t *testing.T) {
	srv := setupServer(t)
	sess := createSession(t, srv)

	// No ticket at all
	resp, err := srv.Client().Post(srv.URL+"/v1/sessions/"+sess.SessionID+"/messages", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Ticket from a different session
	other := createSession(t, srv)
	body, _ := json.Marshal(bridgedhttp.MessageRequest{Origin: testTrustedOrigin, Data: "{}"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions/"+sess.SessionID+"/messages", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+other.Ticket)

	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventsRequireValidTicket(t *testing.T) {
	srv := setupServer(t)
	sess := createSession(t, srv)

	resp, err := srv.Client().Get(srv.URL + "/v1/sessions/" + sess.SessionID + "/events?ticket=garbage")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCloseIsIdempotentOverHTTP(t *testing.T) {
	srv := setupServer(t)
	sess := createSession(t, srv)

	closeSession := func(reason string) int {
		var body io.Reader
		if reason != "" {
			raw, _ := json.Marshal(bridgedhttp.CloseRequest{Reason: reason})
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions/"+sess.SessionID+"/close", body)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+sess.Ticket)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusNoContent, closeSession("escape"))

	// Repeat closes still succeed after the session resolved.
	require.Eventually(t, func() bool {
		return closeSession("") == http.StatusNoContent
	}, 2*time.Second, 50*time.Millisecond)
}

func TestHealthEndpoints(t *testing.T) {
	srv := setupServer(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		var health bridgedhttp.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "ok", health.Status, path)
	}
}

func TestModalPageServed(t *testing.T) {
	srv := setupServer(t)

	resp, err := srv.Client().Get(srv.URL + "/modal?session_id=x&ticket=y")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(page), "prefers-reduced-motion")
	require.Contains(t, string(page), "EventSource")
}

func TestJWKSServed(t *testing.T) {
	srv := setupServer(t)

	resp, err := srv.Client().Get(srv.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var jwks jwtx.JWKS
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
}
