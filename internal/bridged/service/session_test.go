package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rockfridrich/villa-sub000/internal/bridged/domain"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store/drivers/sqlite"
	"github.com/rockfridrich/villa-sub000/pkg/bridge"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/frame"
	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testHostOrigin    = "https://shop.example.com"
	testTrustedOrigin = "https://villa.cash"
	testAddress       = "0x1234567890123456789012345678901234567890"
)

var successJSON = []byte(`{
	"type": "VILLA_AUTH_SUCCESS",
	"payload": {"identity": {
		"address": "` + testAddress + `",
		"nickname": "alice",
		"avatar": {"style": "adventurer", "seed": "x"}
	}}
}`)

var readyJSON = []byte(`{"type":"VILLA_READY"}`)

func newTestService(t *testing.T) (*SessionService, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, _, err := jwtx.GenerateEdDSA("test-key")
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	svc := &SessionService{
		Store: st,
		Tickets: &TicketService{
			Signer:   signer,
			Verifier: jwtx.NewCommonEdDSA(keys, "bridged-test"),
			Issuer:   "bridged-test",
			TTL:      time.Minute,
		},
		Logger:     slog.Default(),
		AppID:      "app_test",
		Network:    bridge.NetworkBase,
		HostOrigin: testHostOrigin,
		SessionTTL: 2 * time.Second,
	}
	return svc, st
}

// nextCommand reads a command with a timeout so a stuck stream fails the
// test instead of hanging it.
func nextCommand(t *testing.T, cmds <-chan Command) Command {
	t.Helper()
	select {
	case cmd, ok := <-cmds:
		require.True(t, ok, "command stream closed early")
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return Command{}
	}
}

func getRecord(t *testing.T, st store.Store, sid string) domain.SessionRecord {
	t.Helper()
	rec, err := st.Sessions().GetSessionByID(context.Background(), sid)
	require.NoError(t, err)
	return rec
}

func TestStartRejectsForeignOrigin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Start(context.Background(), "https://evil.example.com")
	require.Error(t, err)
	require.Equal(t, 0, svc.ActiveCount())
}

func TestStartMintsBoundTicket(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	require.NotEmpty(t, res.Ticket)
	require.Contains(t, res.EmbedURL, "https://villa.cash/embed")

	claims, err := svc.Tickets.VerifyForSession(res.Ticket, res.SessionID)
	require.NoError(t, err)
	require.Equal(t, "app_test", claims.AppID)
	require.Equal(t, testHostOrigin, claims.Origin)

	_, err = svc.Tickets.VerifyForSession(res.Ticket, "someone-elses-session")
	require.ErrorIs(t, err, ErrTicketSessionMismatch)

	require.NoError(t, svc.Close(context.Background(), res.SessionID))
}

func TestSuccessFlow(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)

	cmds, err := svc.Commands(res.SessionID)
	require.NoError(t, err)

	open := nextCommand(t, cmds)
	require.Equal(t, CommandOpen, open.Kind)
	require.Contains(t, open.URL, "appId=app_test")

	require.NoError(t, svc.Ingest(res.SessionID, testTrustedOrigin, readyJSON))
	require.Equal(t, CommandReady, nextCommand(t, cmds).Kind)

	require.NoError(t, svc.Ingest(res.SessionID, testTrustedOrigin, successJSON))

	resolved := nextCommand(t, cmds)
	require.Equal(t, CommandResolved, resolved.Kind)
	require.Equal(t, "success", resolved.Event)

	require.Equal(t, CommandClose, nextCommand(t, cmds).Kind)

	require.Eventually(t, func() bool {
		return getRecord(t, st, res.SessionID).Outcome == domain.OutcomeSuccess
	}, 2*time.Second, 10*time.Millisecond)

	rec := getRecord(t, st, res.SessionID)
	require.Equal(t, testAddress, rec.Address)
	require.Equal(t, "alice", rec.Nickname)
	require.Equal(t, "closed", rec.State)

	require.Eventually(t, func() bool { return svc.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestUntrustedOriginLeavesSessionOpen(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)

	require.NoError(t, svc.Ingest(res.SessionID, "https://villa.cash.evil.com", successJSON))

	// The message is dropped; the session never resolves.
	time.Sleep(100 * time.Millisecond)
	require.False(t, getRecord(t, st, res.SessionID).Resolved())
	require.Equal(t, 1, svc.ActiveCount())

	require.NoError(t, svc.Close(context.Background(), res.SessionID))
}

func TestDismissCancels(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)

	require.NoError(t, svc.Dismiss(res.SessionID, frame.DismissEscape))

	require.Eventually(t, func() bool {
		return getRecord(t, st, res.SessionID).Outcome == domain.OutcomeCancelled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), res.SessionID))

	require.Eventually(t, func() bool {
		return getRecord(t, st, res.SessionID).Outcome == domain.OutcomeCancelled
	}, 2*time.Second, 10*time.Millisecond)

	// Closing again after the session resolved is still fine.
	require.NoError(t, svc.Close(context.Background(), res.SessionID))

	require.ErrorIs(t, svc.Close(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV"), ErrSessionNotFound)
}

func TestTimeoutRecordsError(t *testing.T) {
	svc, st := newTestService(t)
	svc.SessionTTL = 100 * time.Millisecond

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rec := getRecord(t, st, res.SessionID)
		return rec.Outcome == domain.OutcomeError && rec.ErrorCode == "TIMEOUT"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInstantTimeoutReleasesSession(t *testing.T) {
	svc, st := newTestService(t)
	svc.SessionTTL = time.Nanosecond

	// The timeout fires while Start is still running; the session must not
	// stay behind in the active map.
	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return svc.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		rec := getRecord(t, st, res.SessionID)
		return rec.Outcome == domain.OutcomeError && rec.ErrorCode == "TIMEOUT"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartFailureLeavesNoActiveEntry(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Network = bridge.Network("devnet")

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.Error(t, err)
	require.Empty(t, res.SessionID)
	require.Equal(t, 0, svc.ActiveCount())
}

func TestHousekeepingPrunesResolved(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.Start(context.Background(), testHostOrigin)
	require.NoError(t, err)
	require.NoError(t, svc.Close(context.Background(), res.SessionID))

	require.Eventually(t, func() bool {
		return getRecord(t, st, res.SessionID).Resolved()
	}, 2*time.Second, 10*time.Millisecond)

	hk := NewHousekeepingService(st, slog.Default(), time.Hour, time.Nanosecond)
	hk.cleanup()

	_, err = st.Sessions().GetSessionByID(context.Background(), res.SessionID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
