package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/energy"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/limits"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/outlet"
)

// GroupEvent records a combined-limit enforcement transition for the ledger.
type GroupEvent struct {
	Group    string
	Action   string // "enforced" or "recovered"
	UsageKWh float64
	LimitW   float64
	At       time.Time
}

const (
	GroupEnforced  = "enforced"
	GroupRecovered = "recovered"
)

// parseGroups decodes the combined_limit_settings subtree, which is either a
// single group document or a map of department key to group document. The
// returned map key is the store path suffix ("" for the single-document
// form).
func parseGroups(raw json.RawMessage) map[string]models.CombinedLimitGroup {
	groups := make(map[string]models.CombinedLimitGroup)
	if len(raw) == 0 {
		return groups
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return groups
	}
	if looksLikeGroup(probe) {
		var g models.CombinedLimitGroup
		if err := json.Unmarshal(raw, &g); err == nil {
			groups[""] = g
		}
		return groups
	}
	for dept, sub := range probe {
		var g models.CombinedLimitGroup
		if err := json.Unmarshal(sub, &g); err != nil {
			log.Printf("Skipping malformed combined limit group %q: %v", dept, err)
			continue
		}
		groups[dept] = g
	}
	return groups
}

func looksLikeGroup(doc map[string]json.RawMessage) bool {
	for _, field := range []string{"enabled", "selected_outlets", "combined_limit_watts", "device_control"} {
		if _, ok := doc[field]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) groupPath(key string) string {
	if key == "" {
		return e.cfg.GroupsPath
	}
	return e.cfg.GroupsPath + "/" + key
}

// enforceGroups applies group-level cutoff and recovery writes, plus pruning
// of members whose device documents no longer exist. The updated group map
// reflects any writes so the per-device classification that follows sees the
// post-enforcement state.
func (e *Engine) enforceGroups(ctx context.Context, groups map[string]models.CombinedLimitGroup, devices map[string]models.Device) map[string]models.CombinedLimitGroup {
	now := e.clock()
	for key, g := range groups {
		if pruned, changed := pruneMembers(g.SelectedOutlets, devices); changed {
			if err := e.store.Patch(ctx, e.groupPath(key), map[string]any{"selected_outlets": pruned}); err != nil {
				log.Printf("Error pruning members of group %q: %v", key, err)
				e.stats.errors.Add(1)
			} else {
				g.SelectedOutlets = pruned
				groups[key] = g
			}
		}
		if !g.Enabled {
			continue
		}

		usage := limits.GroupUsage(&g, devices, now)
		unlimited := g.CombinedLimit.Unlimited
		exceeded := !unlimited && usage >= energy.Watts(g.CombinedLimit.Watts).AsEnergyThreshold()

		switch {
		case exceeded && g.DeviceControl != models.GroupControlOff:
			reason := fmt.Sprintf("combined monthly limit reached: %.3f kWh of %.0f W cap", float64(usage), g.CombinedLimit.Watts)
			fields := map[string]any{
				"device_control":     models.GroupControlOff,
				"enforcement_reason": reason,
				"last_enforcement":   now.UTC().Format(time.RFC3339),
			}
			if err := e.store.Patch(ctx, e.groupPath(key), fields); err != nil {
				log.Printf("Error enforcing combined limit on group %q: %v", key, err)
				e.stats.errors.Add(1)
				continue
			}
			g.DeviceControl = models.GroupControlOff
			g.EnforcementReason = reason
			groups[key] = g
			log.Printf("Combined limit enforced on group %q: %.3f kWh >= %.0f W", key, float64(usage), g.CombinedLimit.Watts)
			e.emitGroupEvent(ctx, GroupEvent{Group: key, Action: GroupEnforced, UsageKWh: float64(usage), LimitW: g.CombinedLimit.Watts, At: now})

		case !exceeded && g.DeviceControl == models.GroupControlOff:
			// Usage dropped back under the cap (or the cap was lifted):
			// clear the enforcement so schedules govern again.
			fields := map[string]any{
				"device_control":     models.GroupControlOn,
				"enforcement_reason": "",
			}
			if err := e.store.Patch(ctx, e.groupPath(key), fields); err != nil {
				log.Printf("Error clearing enforcement on group %q: %v", key, err)
				e.stats.errors.Add(1)
				continue
			}
			g.DeviceControl = models.GroupControlOn
			g.EnforcementReason = ""
			groups[key] = g
			log.Printf("Combined limit cleared on group %q: %.3f kWh under cap", key, float64(usage))
			e.emitGroupEvent(ctx, GroupEvent{Group: key, Action: GroupRecovered, UsageKWh: float64(usage), LimitW: g.CombinedLimit.Watts, At: now})
		}
	}
	return groups
}

// pruneMembers drops group members that reference no existing device
// document. Unknown members already contribute zero to the aggregate; the
// prune keeps the membership list from accumulating dead names.
func pruneMembers(members []string, devices map[string]models.Device) ([]string, bool) {
	known := make(map[string]bool, len(devices))
	for key := range devices {
		known[outlet.Canonical(key)] = true
	}
	kept := make([]string, 0, len(members))
	for _, m := range members {
		if known[outlet.Canonical(m)] {
			kept = append(kept, m)
		}
	}
	return kept, len(kept) != len(members)
}
