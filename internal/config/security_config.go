// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityPlatform                      // Platform or admin token required
	SecurityAdmin                         // Admin token required
)

// Route names used by the HTTP router and the auth middleware.
const (
	RouteHealth        = "health"
	RouteMetrics       = "metrics"
	RouteRecordJoins   = "record-joins"
	RouteCheckProgress = "check-progress"
	RouteRequestKey    = "request-key"
	RouteResetChat     = "reset-chat"
	RouteLedgerStats   = "ledger-stats"
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	RouteHealth:  SecurityPublic,
	RouteMetrics: SecurityPublic,

	// Platform client
	RouteRecordJoins:   SecurityPlatform,
	RouteCheckProgress: SecurityPlatform,
	RouteRequestKey:    SecurityPlatform,

	// Operators
	RouteResetChat:   SecurityAdmin,
	RouteLedgerStats: SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
