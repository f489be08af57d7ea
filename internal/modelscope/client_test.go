package modelscope

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelriver/mcp-gateway/internal/directory"
)

func TestLogin_storesToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi/v1/user/info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.Login(context.Background(), "tok-123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if c.token != "tok-123" {
		t.Errorf("token not stored")
	}
}

func TestLogin_rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Login(context.Background(), "bad")
	if err == nil || !strings.Contains(err.Error(), "authentication rejected") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestListServers_forwardsQuery(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/openapi/v1/mcp/servers" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		json.NewEncoder(w).Encode(directory.ServerList{ //nolint:errcheck
			TotalCount: 2,
			Servers: []directory.ServerInfo{
				{Name: "a", ID: "@g/a"},
				{Name: "b", ID: "@g/b"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	got, err := c.ListServers(context.Background(), directory.ListQuery{
		Count:  10,
		Search: "map",
		Filter: map[string]any{"category": "location-services"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got.TotalCount != 2 || got.Servers[1].ID != "@g/b" {
		t.Errorf("unexpected result %+v", got)
	}
	if gotBody["total_count"] != float64(10) || gotBody["search"] != "map" {
		t.Errorf("query not forwarded: %v", gotBody)
	}
	if _, ok := gotBody["filter"]; !ok {
		t.Errorf("filter not forwarded: %v", gotBody)
	}
}

func TestListServers_omitsEmptyOptionals(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		json.NewEncoder(w).Encode(directory.ServerList{}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.ListServers(context.Background(), directory.ListQuery{Count: 20}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, ok := gotBody["filter"]; ok {
		t.Errorf("empty filter must be omitted: %v", gotBody)
	}
	if _, ok := gotBody["search"]; ok {
		t.Errorf("empty search must be omitted: %v", gotBody)
	}
}

func TestGetServer_escapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(directory.ServerDetail{ //nolint:errcheck
			ServerInfo: directory.ServerInfo{ID: "@g/name"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	got, err := c.GetServer(context.Background(), "@g/name")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "@g/name" {
		t.Errorf("unexpected detail %+v", got)
	}
	if !strings.HasPrefix(gotPath, "/openapi/v1/mcp/servers/") || strings.Count(gotPath, "/") != 5 {
		t.Errorf("id not path-escaped: %s", gotPath)
	}
}

func TestGetServer_notFoundText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.GetServer(context.Background(), "@x/y")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("not-found faults must say so for classification, got %v", err)
	}
}

func TestDoJSON_transportFaultMentionsConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse all connections

	c := NewClient(srv.URL, time.Second)
	_, err := c.ListServers(context.Background(), directory.ListQuery{Count: 1})
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "connection") {
		t.Fatalf("transport faults must mention the connection, got %v", err)
	}
}

func TestUpstreamMessage_unavailableIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ListOperationalServers(context.Background())
	if err == nil || !strings.Contains(err.Error(), "network error") {
		t.Fatalf("5xx gateway faults must classify as network, got %v", err)
	}
}
