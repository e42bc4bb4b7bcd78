// Package authz decides whether a role may perform an operation.
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/tournament-auth/app/observability/metrics"
	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

// Operation names an action checked against the matrix.
type Operation string

const (
	OpCreate            Operation = "CREATE"
	OpRead              Operation = "READ"
	OpUpdate            Operation = "UPDATE"
	OpDelete            Operation = "DELETE"
	OpManageUsers       Operation = "MANAGE_USERS"
	OpManageTournaments Operation = "MANAGE_TOURNAMENTS"
	OpManageMatches     Operation = "MANAGE_MATCHES"
	OpManageTeam        Operation = "MANAGE_TEAM"
	OpManagePlayers     Operation = "MANAGE_PLAYERS"
	OpViewAnalytics     Operation = "VIEW_ANALYTICS"
	OpViewTactics       Operation = "VIEW_TACTICS"
	OpUpdateProfile     Operation = "UPDATE_PROFILE"
	OpManageSecurity    Operation = "MANAGE_SECURITY"
	OpAuditLogs         Operation = "AUDIT_LOGS"
)

type operationSet map[Operation]struct{}

func setOf(ops ...Operation) operationSet {
	s := make(operationSet, len(ops))
	for _, op := range ops {
		s[op] = struct{}{}
	}
	return s
}

// Matrix is the fixed role to permitted-operations table. It is never mutated after
// NewMatrix returns.
type Matrix struct {
	rules   map[types.Role]operationSet
	trail   *audit.Trail
	logger  *slog.Logger
	denials metric.Int64Counter
}

// NewMatrix builds the permission table.
func NewMatrix(trail *audit.Trail, logger *slog.Logger) *Matrix {
	return &Matrix{
		rules: map[types.Role]operationSet{
			types.RoleAdmin: setOf(OpCreate, OpRead, OpUpdate, OpDelete, OpManageUsers,
				OpManageTournaments, OpViewAnalytics, OpManageSecurity, OpAuditLogs),
			types.RoleTournamentDirector: setOf(OpRead, OpUpdate, OpManageTournaments,
				OpManageMatches, OpViewAnalytics),
			types.RoleTeamManager: setOf(OpRead, OpUpdate, OpManageTeam, OpManagePlayers),
			types.RoleCoach:       setOf(OpRead, OpUpdate, OpManagePlayers, OpViewTactics),
			types.RolePlayer:      setOf(OpRead, OpUpdateProfile),
		},
		trail:   trail,
		logger:  logger,
		denials: metrics.Get().AuthzDenialsTotal,
	}
}

// Allowed reports the decision without side effects.
func (m *Matrix) Allowed(role types.Role, op Operation) bool {
	ops, ok := m.rules[role]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}

// Permissions lists the operations granted to role, sorted.
func (m *Matrix) Permissions(role types.Role) []Operation {
	ops := make([]Operation, 0, len(m.rules[role]))
	for op := range m.rules[role] {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Authorize decides whether role may perform operation on resource. Every denial is
// audited at HIGH severity and counted.
func (m *Matrix) Authorize(ctx context.Context, role types.Role, operation Operation, resource string) bool {
	if _, known := m.rules[role]; !known {
		m.deny(ctx, role, operation, resource, audit.TypeUnauthorizedAccess,
			fmt.Sprintf("role %q has no permissions", role))
		return false
	}
	if !m.Allowed(role, operation) {
		m.deny(ctx, role, operation, resource, audit.TypeUnauthorizedOperation,
			fmt.Sprintf("role %s may not perform %s", role, operation))
		return false
	}
	return true
}

func (m *Matrix) deny(ctx context.Context, role types.Role, op Operation, resource, eventType, description string) {
	m.denials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", string(role)),
		attribute.String("operation", string(op)),
	))
	m.logger.WarnContext(ctx, "Authorization denied",
		slog.String("actor", audit.ActorFromContext(ctx)),
		slog.String("role", string(role)),
		slog.String("operation", string(op)),
		slog.String("resource", resource))
	// role stands in when no authenticated user is on the context
	actor := audit.ActorFromContext(ctx)
	if actor == "" {
		actor = string(role)
	}
	m.trail.Log(ctx, audit.Event{
		Type:        eventType,
		Severity:    audit.SeverityHigh,
		Actor:       actor,
		Resource:    resource,
		Description: description,
	})
}
