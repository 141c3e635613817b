package archiver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pinnedCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "pinata-user",
		"exp": exp.Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func testExec(c *http.Client) *netx.Executor {
	return netx.NewExecutor(c, netx.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
}

func TestNewPinataStore_TokenChecks(t *testing.T) {
	_, err := NewPinataStore(testExec(nil), "https://api.pinata.cloud", "gw.mypinata.cloud", signedToken(t, time.Now().Add(time.Hour)), 0)
	require.NoError(t, err)

	_, err = NewPinataStore(testExec(nil), "https://api.pinata.cloud", "gw", signedToken(t, time.Now().Add(-time.Hour)), 0)
	require.ErrorIs(t, err, common.ErrTokenExpired)

	_, err = NewPinataStore(testExec(nil), "https://api.pinata.cloud", "gw", "not-a-jwt", 0)
	require.Error(t, err)
}

func TestPinataStore_PutAndGet(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	stored := map[string][]byte{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/pinning/pinFileToIPFS":
			assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "doc.json", hdr.Filename)
			b, _ := io.ReadAll(f)
			stored[pinnedCID] = b

			var meta map[string]string
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("pinataMetadata")), &meta))
			assert.Equal(t, "doc.json", meta["name"])

			_, _ = w.Write([]byte(`{"IpfsHash":"` + pinnedCID + `","PinSize":12}`))
		case r.Method == http.MethodGet && r.URL.Path == "/ipfs/"+pinnedCID:
			_, _ = w.Write(stored[pinnedCID])
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	p, err := NewPinataStore(testExec(ts.Client()), ts.URL, ts.URL, token, 1<<10)
	require.NoError(t, err)

	id, err := p.Put(context.Background(), "doc.json", []byte(`{"meme":"gm"}`))
	require.NoError(t, err)
	assert.Equal(t, pinnedCID, id)

	got, err := p.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, `{"meme":"gm"}`, string(got))
}

func TestPinataStore_RejectsBadIdentifiers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"IpfsHash":"garbage"}`))
	}))
	defer ts.Close()

	p, err := NewPinataStore(testExec(ts.Client()), ts.URL, ts.URL, signedToken(t, time.Now().Add(time.Hour)), 0)
	require.NoError(t, err)

	_, err = p.Put(context.Background(), "x.json", []byte("{}"))
	assert.Error(t, err)

	_, err = p.Get(context.Background(), "garbage")
	assert.Error(t, err)
}

func TestPinataStore_GetRejectsOversizedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 65))
	}))
	defer ts.Close()

	p, err := NewPinataStore(testExec(ts.Client()), ts.URL, ts.URL, signedToken(t, time.Now().Add(time.Hour)), 64)
	require.NoError(t, err)

	_, err = p.Get(context.Background(), pinnedCID)
	assert.ErrorIs(t, err, netx.ErrTooLarge)

	p.maxBytes = 65
	got, err := p.Get(context.Background(), pinnedCID)
	require.NoError(t, err)
	assert.Len(t, got, 65)
}
