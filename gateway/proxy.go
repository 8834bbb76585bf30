package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/utils"
)

// ServiceClient handles HTTP communication with microservices
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

// ServiceClients holds all service clients
type ServiceClients struct {
	AuthService     *ServiceClient
	TenantService   *ServiceClient
	ProjectService  *ServiceClient
	NotifierService *ServiceClient
}

// NewServiceClient creates a new service client
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProxyRequest proxies requests to the appropriate microservice
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to read request body")
			return
		}
		body = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(c.Request.Method, targetURL, body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}

	// Copy headers
	for key, values := range c.Request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	// Propagate the resolved caller identity to downstream services
	if auth := middleware.GetAuthContext(c); auth != nil {
		req.Header.Set("X-User-ID", auth.UserID)
		req.Header.Set("X-User-Email", auth.Email)
		if membership, ok := auth.PrimaryMembership(); ok {
			req.Header.Set("X-Tenant-ID", membership.TenantID.String())
			req.Header.Set("X-User-Role", membership.Role)
		}
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to communicate with service")
		return
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to read response")
		return
	}

	// Copy response headers
	for key, values := range resp.Header {
		for _, value := range values {
			c.Header(key, value)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), responseBody)
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck() error {
	req, err := http.NewRequest("GET", sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

// GetServiceStatus returns the status of all services
func (scs *ServiceClients) GetServiceStatus() map[string]interface{} {
	status := make(map[string]interface{})

	check := func(name string, client *ServiceClient) {
		if err := client.HealthCheck(); err != nil {
			status[name] = map[string]interface{}{
				"healthy": false,
				"error":   err.Error(),
			}
			return
		}
		status[name] = map[string]interface{}{
			"healthy": true,
		}
	}

	check("auth_service", scs.AuthService)
	check("tenant_service", scs.TenantService)
	check("project_service", scs.ProjectService)
	check("notifier_service", scs.NotifierService)

	return status
}
