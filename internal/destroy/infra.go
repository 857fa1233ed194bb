package destroy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// InfraRemover deletes platform resources provisioned for a site.
type InfraRemover interface {
	RemoveSiteInfra(ctx context.Context, site *core.Site) error
}

type serviceInstanceList struct {
	Resources []struct {
		GUID string `json:"guid"`
		Name string `json:"name"`
	} `json:"resources"`
}

// PlatformClient removes service instances through the platform API.
type PlatformClient struct {
	client *resty.Client
}

// NewPlatformClient creates a client for the configured platform API.
func NewPlatformClient(cfg config.PlatformConfig) *PlatformClient {
	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json").
		SetTimeout(60 * time.Second)
	return &PlatformClient{client: client}
}

// RemoveSiteInfra deletes the site's service instance. Sites without a
// service, and services already gone, are not errors.
func (p *PlatformClient) RemoveSiteInfra(ctx context.Context, site *core.Site) error {
	if site.ServiceName == "" {
		return nil
	}

	var list serviceInstanceList
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("names", site.ServiceName).
		SetResult(&list).
		Get("/v3/service_instances")
	if err != nil {
		return fmt.Errorf("look up service instance %q: %w", site.ServiceName, err)
	}
	if resp.IsError() {
		return fmt.Errorf("look up service instance %q: status %d", site.ServiceName, resp.StatusCode())
	}

	for _, instance := range list.Resources {
		resp, err := p.client.R().
			SetContext(ctx).
			SetPathParam("guid", instance.GUID).
			Delete("/v3/service_instances/{guid}")
		if err != nil {
			return fmt.Errorf("delete service instance %q: %w", site.ServiceName, err)
		}
		switch resp.StatusCode() {
		case http.StatusAccepted, http.StatusNoContent, http.StatusNotFound:
		default:
			return fmt.Errorf("delete service instance %q: status %d", site.ServiceName, resp.StatusCode())
		}
	}
	return nil
}
