package conflict

import (
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// Decide picks the winning side for a conflict. It is a pure function of its
// inputs so replaying the same conflict always yields the same winner.
func Decide(strategy domain.Strategy, clientTS time.Time, clientFields map[string]any, server *domain.Entity) domain.Side {
	switch strategy {
	case domain.StrategyClientWins:
		return domain.SideClient
	case domain.StrategyServerWins:
		return domain.SideServer
	case domain.StrategyManual:
		return domain.SideNone
	case domain.StrategyPreserveEscalation:
		clientEsc := Escalated(clientFields)
		serverEsc := Escalated(server.Fields)
		switch {
		case clientEsc && !serverEsc:
			return domain.SideClient
		case serverEsc && !clientEsc:
			return domain.SideServer
		}
		return mostRecent(clientTS, server.LastModified)
	default:
		return mostRecent(clientTS, server.LastModified)
	}
}

// mostRecent lets the later timestamp win; an exact tie goes to the server
func mostRecent(clientTS, serverModified time.Time) domain.Side {
	if clientTS.After(serverModified) {
		return domain.SideClient
	}
	return domain.SideServer
}

// Escalated reports whether a payload carries a true escalation flag
func Escalated(fields map[string]any) bool {
	v, ok := fields[domain.EscalatedField].(bool)
	return ok && v
}

// Merge overlays client fields onto a copy of the server fields
func Merge(server, client map[string]any) map[string]any {
	out := make(map[string]any, len(server)+len(client))
	for k, v := range server {
		out[k] = v
	}
	for k, v := range client {
		out[k] = v
	}
	return out
}
