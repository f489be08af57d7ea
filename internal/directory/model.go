package directory

import "context"

// Endpoint types exposed by the upstream directory.
const (
	EndpointSSE            = "sse"
	EndpointStreamableHTTP = "streamable_http"
)

// ServerInfo is the basic MCP server record. ID is formatted @group/name.
type ServerInfo struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Endpoint is a reachable network address for a server.
type Endpoint struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ServerDetail is a server record plus its ordered endpoint list.
type ServerDetail struct {
	ServerInfo
	Servers []Endpoint `json:"servers"`
}

// OperationalServer is a server the caller has activated, with its live
// endpoints. Only returned when authenticated.
type OperationalServer struct {
	Name        string     `json:"name"`
	ID          string     `json:"id"`
	Description string     `json:"description"`
	MCPServers  []Endpoint `json:"mcp_servers"`
}

// ServerList is the result of a directory listing.
type ServerList struct {
	TotalCount int          `json:"total_count"`
	Servers    []ServerInfo `json:"servers"`
}

// OperationalList is the result of an operational-server listing.
type OperationalList struct {
	TotalCount int                 `json:"total_count"`
	Servers    []OperationalServer `json:"servers"`
}

// ListQuery carries listing parameters. Count must already be validated to
// [1,100]; Filter semantics are delegated entirely to the upstream service.
type ListQuery struct {
	Filter map[string]any
	Count  int
	Search string
}

// RegistryAPI is the contract consumed from the upstream directory client.
// Every method may fail with an unstructured error carrying only a message
// string; the Service is responsible for classification.
type RegistryAPI interface {
	Login(ctx context.Context, token string) error
	ListServers(ctx context.Context, q ListQuery) (*ServerList, error)
	ListOperationalServers(ctx context.Context) (*OperationalList, error)
	GetServer(ctx context.Context, serverID string) (*ServerDetail, error)
}
