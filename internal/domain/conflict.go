package domain

import "time"

// Strategy is a conflict resolution strategy.
type Strategy string

const (
	StrategyClientWins         Strategy = "client_wins"
	StrategyServerWins         Strategy = "server_wins"
	StrategyMostRecentWins     Strategy = "most_recent_wins"
	StrategyPreserveEscalation Strategy = "preserve_escalation"
	StrategyManual             Strategy = "manual"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyClientWins, StrategyServerWins, StrategyMostRecentWins,
		StrategyPreserveEscalation, StrategyManual:
		return true
	}
	return false
}

// Side names the winner of a resolved conflict.
type Side string

const (
	SideClient Side = "client"
	SideServer Side = "server"
	SideNone   Side = "none"
)

// ConflictStatus is the lifecycle state of a ConflictResolutionLog row.
type ConflictStatus string

const (
	ConflictStatusAutoResolved ConflictStatus = "auto_resolved"
	ConflictStatusPending      ConflictStatus = "pending"
	ConflictStatusResolved     ConflictStatus = "resolved"

	// ConflictStatusApplying marks a client win logged before its entity write.
	// It settles to auto_resolved once the write lands, or abandoned if it fails.
	ConflictStatusApplying  ConflictStatus = "applying"
	ConflictStatusAbandoned ConflictStatus = "abandoned"
)

// Resolution is a human or client decision for a pending conflict.
type Resolution string

const (
	ResolutionClientWins Resolution = "client_wins"
	ResolutionServerWins Resolution = "server_wins"
	ResolutionMerge      Resolution = "merge"
)

// ResolutionOptions are offered to the device for manual conflicts.
var ResolutionOptions = []Resolution{ResolutionClientWins, ResolutionServerWins, ResolutionMerge}

// EscalatedField is the payload flag consulted by preserve_escalation.
const EscalatedField = "escalated"

// ConflictPolicy is the per-tenant, per-domain resolution policy.
type ConflictPolicy struct {
	TenantID         string    `json:"tenant_id" db:"tenant_id" validate:"required"`
	Domain           string    `json:"domain" db:"domain" validate:"required"`
	Strategy         Strategy  `json:"resolution_strategy" db:"resolution_strategy" validate:"required,oneof=client_wins server_wins most_recent_wins preserve_escalation manual"`
	AutoResolve      bool      `json:"auto_resolve" db:"auto_resolve"`
	NotifyOnConflict bool      `json:"notify_on_conflict" db:"notify_on_conflict"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
	IsDefault        bool      `json:"is_default"`
}

// DefaultPolicy is used when a tenant has no policy row for a domain.
func DefaultPolicy(tenantID, domain string) ConflictPolicy {
	return ConflictPolicy{
		TenantID:    tenantID,
		Domain:      domain,
		Strategy:    StrategyMostRecentWins,
		AutoResolve: true,
		IsDefault:   true,
	}
}

// EffectiveStrategy applies the auto_resolve override.
func (p ConflictPolicy) EffectiveStrategy() Strategy {
	switch {
	case !p.AutoResolve:
		return StrategyManual
	case !p.Strategy.Valid():
		return StrategyMostRecentWins
	default:
		return p.Strategy
	}
}

// ConflictRecord is an append-only ConflictResolutionLog row.
// Only Status, Resolution and ResolvedAt change, and only for pending rows.
type ConflictRecord struct {
	ID              string         `json:"conflict_id" db:"conflict_id"`
	TenantID        string         `json:"tenant_id" db:"tenant_id"`
	DeviceID        string         `json:"device_id" db:"device_id"`
	Domain          string         `json:"domain" db:"domain"`
	MobileID        string         `json:"mobile_id" db:"mobile_id"`
	ServerVersion   int64          `json:"server_version" db:"server_version"`
	ClientVersion   int64          `json:"client_version" db:"client_version"`
	Strategy        Strategy       `json:"resolution_strategy" db:"resolution_strategy"`
	WinningSide     Side           `json:"winning_side" db:"winning_side"`
	Status          ConflictStatus `json:"status" db:"status"`
	ClientData      map[string]any `json:"client_data,omitempty" db:"client_data"`
	ServerData      map[string]any `json:"server_data,omitempty" db:"server_data"`
	ClientTimestamp time.Time      `json:"client_timestamp" db:"client_timestamp"`
	Resolution      Resolution     `json:"resolution,omitempty" db:"resolution"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Ref returns the entity the conflict is about.
func (c ConflictRecord) Ref() EntityRef {
	return EntityRef{TenantID: c.TenantID, Domain: c.Domain, MobileID: c.MobileID}
}

// ConflictInfo is the wire form of a conflict returned to a device.
type ConflictInfo struct {
	ConflictID        string         `json:"conflict_id"`
	Domain            string         `json:"domain"`
	MobileID          string         `json:"mobile_id"`
	ServerVersion     int64          `json:"server_version"`
	ClientVersion     int64          `json:"client_version"`
	Strategy          Strategy       `json:"resolution_strategy"`
	WinningSide       Side           `json:"winning_side"`
	Resolved          bool           `json:"resolved"`
	NewVersion        int64          `json:"new_version,omitempty"`
	ServerData        map[string]any `json:"server_data,omitempty"`
	ResolutionOptions []Resolution   `json:"resolution_options,omitempty"`
}
