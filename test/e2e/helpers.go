// Package e2e exercises the full HTTP surface the way client devices
// use it: several devices for the same user pushing local changes and
// pulling each other's through the server.
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/fernledger/fern/internal/api"
	"github.com/fernledger/fern/internal/auth"
	"github.com/fernledger/fern/internal/store"
	fernsync "github.com/fernledger/fern/internal/sync"
	"github.com/fernledger/fern/internal/syncer"
)

const testUser = "user-1"

// newServer boots a real store, sync engine and router on a temp
// database and returns the router plus a token issuer.
func newServer(t *testing.T) (http.Handler, *auth.Manager) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "fern.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := syncer.New(st, logger, syncer.Limits{})
	verifier := auth.New("e2e-secret", time.Hour)

	h := api.NewHandler(svc, st, nil, logger, "e2e")
	return api.NewRouter(h, verifier, logger), verifier
}

// device simulates one client installation: its own local ID namespace
// and its own per-type pull watermarks.
type device struct {
	t         *testing.T
	router    http.Handler
	token     string
	name      string
	watermark map[string]string
}

func newDevice(t *testing.T, router http.Handler, verifier *auth.Manager, name string) *device {
	t.Helper()
	token, err := verifier.Issue(testUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &device{
		t:         t,
		router:    router,
		token:     token,
		name:      name,
		watermark: make(map[string]string),
	}
}

func (d *device) do(method, path string, body, out any) int {
	d.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			d.t.Fatalf("%s: encode: %v", d.name, err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	d.router.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			d.t.Fatalf("%s: decode: %v (body %s)", d.name, err, rec.Body.String())
		}
	}
	return rec.Code
}

// push sends changes and fails the test on transport errors. Per-change
// outcomes are the caller's to assert.
func (d *device) push(changes ...fernsync.Change) *fernsync.PushResponse {
	d.t.Helper()
	var resp fernsync.PushResponse
	code := d.do(http.MethodPost, "/api/v1/sync/push", fernsync.PushRequest{Changes: changes}, &resp)
	if code != http.StatusOK {
		d.t.Fatalf("%s: push status = %d", d.name, code)
	}
	return &resp
}

// mustPush pushes and asserts every change was accepted successfully.
func (d *device) mustPush(changes ...fernsync.Change) *fernsync.PushResponse {
	d.t.Helper()
	resp := d.push(changes...)
	if len(resp.Conflicts) != 0 {
		d.t.Fatalf("%s: unexpected conflicts: %+v", d.name, resp.Conflicts)
	}
	for _, res := range resp.Accepted {
		if !res.Success {
			d.t.Fatalf("%s: change %s/%s failed: %s", d.name, res.EntityType, res.LocalID, res.Error)
		}
	}
	return resp
}

// pull fetches the given types from the device's current watermarks and
// advances them to the response's server time.
func (d *device) pull(types ...string) *fernsync.PullResponse {
	d.t.Helper()

	req := fernsync.PullRequest{LastSyncTimes: make(map[string]string, len(types))}
	for _, typ := range types {
		req.LastSyncTimes[typ] = d.watermark[typ]
	}

	var resp fernsync.PullResponse
	code := d.do(http.MethodPost, "/api/v1/sync/pull", req, &resp)
	if code != http.StatusOK {
		d.t.Fatalf("%s: pull status = %d", d.name, code)
	}

	for _, typ := range types {
		d.watermark[typ] = resp.ServerTime
	}
	return &resp
}

// serverID digs the assigned server ID for a local ID out of a push
// response.
func serverID(t *testing.T, resp *fernsync.PushResponse, localID string) string {
	t.Helper()
	for _, res := range resp.Accepted {
		if res.LocalID == localID {
			if res.ServerID == "" {
				t.Fatalf("change %s accepted without server ID", localID)
			}
			return res.ServerID
		}
	}
	t.Fatalf("no accepted change for local ID %s", localID)
	return ""
}

// findByID returns the pulled item with the given server ID.
func findByID(t *testing.T, items []fernsync.EntityData, id string) fernsync.EntityData {
	t.Helper()
	for _, item := range items {
		if item["id"] == id {
			return item
		}
	}
	t.Fatalf("no pulled item with id %s among %d items", id, len(items))
	return nil
}
