package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const trackID = "4uLU6hMCjMI75M1A2tKUQC"

func TestParseTrackID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "https://open.spotify.com/track/" + trackID, want: trackID, ok: true},
		{raw: "https://open.spotify.com/track/" + trackID + "?si=abc", want: trackID, ok: true},
		{raw: "https://open.spotify.com/intl-pt/track/" + trackID, want: trackID, ok: true},
		{raw: "spotify:track:" + trackID, want: trackID, ok: true},
		{raw: "https://open.spotify.com/album/" + trackID},
		{raw: "https://evil.example.com/track/" + trackID},
		{raw: "ftp://open.spotify.com/track/" + trackID},
		{raw: "spotify:track:short"},
		{raw: ""},
	}
	for _, tc := range tests {
		got, ok := ParseTrackID(tc.raw)
		require.Equal(t, tc.ok, ok, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestIframeSrc(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"https://open.spotify.com/embed/track/"+trackID+"?utm_source=oembed",
		IframeSrc(`<iframe style="border-radius: 12px" width="100%" height="152" src="https://open.spotify.com/embed/track/`+trackID+`?utm_source=oembed" allow="encrypted-media"></iframe>`),
	)
	require.Empty(t, IframeSrc(`<div>no frame</div>`))
	require.Empty(t, IframeSrc(`<iframe src="javascript:alert(1)"></iframe>`))
}

func newFakeSpotify(t *testing.T, oembed http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/embed/iframe-api/v1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("window.onSpotifyIframeApiReady && 1;"))
	})
	mux.HandleFunc("/oembed", oembed)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireAndMountUsesOEmbed(t *testing.T) {
	t.Parallel()

	srv := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") != "https://open.spotify.com/track/"+trackID {
			http.Error(w, "unexpected url", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html":"<iframe src=\"https://open.spotify.com/embed/track/` + trackID + `?utm_source=oembed\"></iframe>"}`))
	})

	client := NewClient(srv.Client(), srv.URL+"/embed/iframe-api/v1", srv.URL+"/oembed", "")
	embed, err := client.Acquire(context.Background())
	require.NoError(t, err)

	src, err := embed.Mount(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, "https://open.spotify.com/embed/track/"+trackID+"?utm_source=oembed", src)
	require.Equal(t, srv.URL+"/embed/iframe-api/v1", embed.Script())
}

func TestMountRejectsInsecureIframeURL(t *testing.T) {
	t.Parallel()

	srv := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html":"<p>no player</p>","iframe_url":"javascript:alert(1)"}`))
	})

	client := NewClient(srv.Client(), srv.URL+"/embed/iframe-api/v1", srv.URL+"/oembed", "")
	embed, err := client.Acquire(context.Background())
	require.NoError(t, err)

	src, err := embed.Mount(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, DefaultEmbedBaseURL+trackID, src, "non-https iframe_url falls back to the canonical embed")
}

func TestMountUsesHTTPSIframeURL(t *testing.T) {
	t.Parallel()

	srv := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"iframe_url":"https://open.spotify.com/embed/track/` + trackID + `?si=1"}`))
	})

	client := NewClient(srv.Client(), srv.URL+"/embed/iframe-api/v1", srv.URL+"/oembed", "")
	embed, err := client.Acquire(context.Background())
	require.NoError(t, err)

	src, err := embed.Mount(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, "https://open.spotify.com/embed/track/"+trackID+"?si=1", src)
}

func TestMountFallsBackToEmbedURL(t *testing.T) {
	t.Parallel()

	srv := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	client := NewClient(srv.Client(), srv.URL+"/embed/iframe-api/v1", srv.URL+"/oembed", "")
	embed, err := client.Acquire(context.Background())
	require.NoError(t, err)

	src, err := embed.Mount(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, DefaultEmbedBaseURL+trackID, src)
}

func TestAcquireFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.Client(), srv.URL, "", "").Acquire(context.Background())
	require.True(t, errors.Is(err, ErrUnavailable))
}
