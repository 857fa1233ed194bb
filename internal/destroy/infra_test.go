package destroy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

type platformStub struct {
	mu        sync.Mutex
	lookup    string
	deleted   []string
	listBody  string
	delStatus int
}

func (p *platformStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p.lookup = r.URL.Query().Get("names")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(p.listBody))
	case http.MethodDelete:
		p.deleted = append(p.deleted, r.URL.Path)
		w.WriteHeader(p.delStatus)
	}
}

func newPlatform(t *testing.T, stub *platformStub) *PlatformClient {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewPlatformClient(config.PlatformConfig{APIURL: srv.URL, Token: "secret"})
}

func TestPlatformClient_RemoveSiteInfra(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		listBody    string
		delStatus   int
		wantDeleted []string
		wantErr     bool
	}{
		{
			name:        "deletes the named instance",
			serviceName: "agency-site",
			listBody:    `{"resources":[{"guid":"abc-123","name":"agency-site"}]}`,
			delStatus:   http.StatusAccepted,
			wantDeleted: []string{"/v3/service_instances/abc-123"},
		},
		{
			name:        "absent instance is a no-op",
			serviceName: "agency-site",
			listBody:    `{"resources":[]}`,
		},
		{
			name:        "instance already gone",
			serviceName: "agency-site",
			listBody:    `{"resources":[{"guid":"abc-123"}]}`,
			delStatus:   http.StatusNotFound,
			wantDeleted: []string{"/v3/service_instances/abc-123"},
		},
		{
			name:        "delete rejected",
			serviceName: "agency-site",
			listBody:    `{"resources":[{"guid":"abc-123"}]}`,
			delStatus:   http.StatusUnprocessableEntity,
			wantDeleted: []string{"/v3/service_instances/abc-123"},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &platformStub{listBody: tt.listBody, delStatus: tt.delStatus}
			client := newPlatform(t, stub)

			err := client.RemoveSiteInfra(context.Background(), &core.Site{ID: 1, ServiceName: tt.serviceName})

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.serviceName, stub.lookup)
			assert.Equal(t, tt.wantDeleted, stub.deleted)
		})
	}
}

func TestPlatformClient_NoServiceName(t *testing.T) {
	stub := &platformStub{}
	client := newPlatform(t, stub)

	require.NoError(t, client.RemoveSiteInfra(context.Background(), &core.Site{ID: 1}))
	assert.Empty(t, stub.lookup)
}
