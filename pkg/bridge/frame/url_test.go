package frame

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/origin"
	"github.com/stretchr/testify/require"
)

func TestEmbedURL(t *testing.T) {
	t.Parallel()

	t.Run("base network uses production host", func(t *testing.T) {
		raw, err := EmbedURL(origin.NetworkBase, "app_1", []string{"profile", "wallet"}, "https://shop.example.com")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "https", u.Scheme)
		require.Equal(t, "villa.cash", u.Host)
		require.Equal(t, "/embed", u.Path)

		q := u.Query()
		require.Equal(t, "app_1", q.Get("appId"))
		require.Equal(t, "profile,wallet", q.Get("scopes"))
		require.Equal(t, "https://shop.example.com", q.Get("origin"))
		require.Len(t, q, 3, "only whitelisted query parameters")
	})

	t.Run("base-sepolia uses staging host", func(t *testing.T) {
		raw, err := EmbedURL(origin.NetworkBaseSepolia, "app_1", nil, "http://localhost:3000")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(raw, "https://staging.villa.cash/embed?"))

		u, _ := url.Parse(raw)
		require.Empty(t, u.Query().Get("scopes"), "scopes omitted when empty")
	})

	t.Run("caller values are escaped, never interpreted", func(t *testing.T) {
		raw, err := EmbedURL(origin.NetworkBase, "a&b=c", nil, "https://x.test/?q=1")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "villa.cash", u.Host, "host never influenced by caller input")
		require.Equal(t, "a&b=c", u.Query().Get("appId"))
		require.Equal(t, "https://x.test/?q=1", u.Query().Get("origin"))
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := EmbedURL(origin.Network("devnet"), "app_1", nil, "https://x.test")
		require.ErrorIs(t, err, ErrUnknownNetwork)
	})
}

func TestHeadlessLifecycle(t *testing.T) {
	t.Parallel()

	h := NewHeadless()
	require.False(t, h.Opened())

	require.NoError(t, h.Open(t.Context(), OpenRequest{URL: "https://villa.cash/embed?appId=a"}))
	require.True(t, h.Opened())
	require.Equal(t, "https://villa.cash/embed?appId=a", h.OpenURL())

	require.True(t, h.Post("https://villa.cash", []byte(`{"type":"VILLA_READY"}`)))
	require.True(t, h.Dismiss(DismissEscape))

	ev := <-h.Events()
	require.Equal(t, KindMessage, ev.Kind)
	require.Equal(t, "https://villa.cash", ev.Origin)

	ev = <-h.Events()
	require.Equal(t, KindDismissed, ev.Kind)
	require.Equal(t, DismissEscape, ev.Reason)

	require.NoError(t, h.Close(t.Context()))
	require.NoError(t, h.Close(t.Context()), "close is idempotent")
	require.False(t, h.Post("https://villa.cash", nil), "post after close is dropped")

	_, open := <-h.Events()
	require.False(t, open, "events channel closed on teardown")
}

func TestHeadlessFullBufferNeverBlocksClose(t *testing.T) {
	t.Parallel()

	h := NewHeadless()
	require.NoError(t, h.Open(t.Context(), OpenRequest{URL: "https://villa.cash/embed?appId=a"}))

	// Fill the buffer with nobody draining.
	for h.Post("https://villa.cash", []byte(`{"type":"VILLA_READY"}`)) {
	}

	require.False(t, h.Post("https://villa.cash", []byte(`{}`)), "full buffer drops")
	require.False(t, h.Dismiss(DismissEscape), "full buffer drops")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Close(t.Context())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close blocked behind a full event buffer")
	}
	require.True(t, h.Closed())
}
