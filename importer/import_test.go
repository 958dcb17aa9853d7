package importer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/arednch/nodemon/data"
)

func TestStatusURL(t *testing.T) {
	tests := []struct {
		address string
		want    string
		wantErr bool
	}{
		{address: "localnode.local.mesh", want: "http://localnode.local.mesh/a/sysinfo?link_info=1&nodes=1"},
		{address: "10.1.2.3:8080", want: "http://10.1.2.3:8080/a/sysinfo?link_info=1&nodes=1"},
		{address: " https://node.local.mesh ", want: "https://node.local.mesh/a/sysinfo?link_info=1&nodes=1"},
		{address: "", wantErr: true},
		{address: "ftp://node", wantErr: true},
		{address: "node:99999", wantErr: true},
	}

	for _, tc := range tests {
		got, err := StatusURL(tc.address)
		if tc.wantErr {
			require.Error(t, err, "StatusURL(%q)", tc.address)
			continue
		}
		require.NoError(t, err, "StatusURL(%q)", tc.address)
		if got != tc.want {
			t.Errorf("StatusURL(%q) = %q, want %q", tc.address, got, tc.want)
		}
	}
}

func TestFetch(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"node":"N0CALL-HAP","api_version":"1.5","sysinfo":{"loads":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	c := NewClient()
	got, err := c.Fetch(context.Background(), strings.TrimPrefix(srv.URL, "http://"), time.Second)
	require.NoError(t, err)

	want := data.RawPayload{
		"node":        "N0CALL-HAP",
		"api_version": "1.5",
		"sysinfo":     map[string]any{"loads": []any{0.1, 0.2, 0.3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, sysInfoPath, gotPath)
	require.Equal(t, "link_info=1&nodes=1", gotQuery)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantKind FetchErrorKind
		wantErr  error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantKind: KindBadStatus,
			wantErr:  ErrBadStatus,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantKind: KindBadStatus,
			wantErr:  ErrBadStatus,
		},
		{
			name: "legacy redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/cgi-bin/sysinfo.json", http.StatusFound)
			},
			wantKind: KindBadStatus,
			wantErr:  ErrBadStatus,
		},
		{
			name: "html body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html><body>status</body></html>"))
			},
			wantKind: KindMalformedResponse,
			wantErr:  ErrMalformedResponse,
		},
		{
			name: "array body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[1,2,3]`))
			},
			wantKind: KindMalformedResponse,
			wantErr:  ErrMalformedResponse,
		},
		{
			name: "slow node",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout:  50 * time.Millisecond,
			wantKind: KindTimeout,
			wantErr:  ErrTimeout,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			timeout := tc.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			_, err := NewClient().Fetch(context.Background(), srv.Listener.Addr().String(), timeout)
			require.Error(t, err)
			require.Equal(t, tc.wantKind, KindOf(err))
			require.True(t, errors.Is(err, tc.wantErr), "errors.Is(%v, %v)", err, tc.wantErr)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	_, err := NewClient().Fetch(context.Background(), addr, time.Second)
	require.Equal(t, KindUnreachable, KindOf(err))
	require.ErrorIs(t, err, ErrUnreachable)

	_, err = NewClient().Fetch(context.Background(), "", time.Second)
	require.Equal(t, KindUnreachable, KindOf(err))
}

func TestReadFromFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "sysinfo.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"node":"N0CALL","api_version":"1.5"}`), 0644))
	got, err := ReadFromFile(good)
	require.NoError(t, err)
	require.Equal(t, "N0CALL", got["node"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"just a string"`), 0644))
	_, err = ReadFromFile(bad)
	require.ErrorIs(t, err, ErrMalformedResponse)
}
