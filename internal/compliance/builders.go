package compliance

import (
	"fmt"
	"math"
	"time"

	"fishing-borders/internal/geo"
	"fishing-borders/internal/zones"
)

// ViolationAlert：禁捕区越界（danger，常驻）
func ViolationAlert(z zones.Zone, now time.Time) Alert {
	msg := fmt.Sprintf("You are in a restricted zone: %s", z.Name)
	if z.Penalty != "" {
		msg += ". Penalty: " + z.Penalty
	}
	return Alert{
		Severity:   SeverityDanger,
		Category:   CategoryProhibited,
		Title:      "🚨 RESTRICTED ZONE VIOLATION: " + z.Name,
		Message:    msg,
		Action:     "Exit immediately",
		Penalty:    z.Penalty,
		ZoneRef:    z.Name,
		CreatedAt:  now,
		Persistent: true,
	}
}

// HighRestrictionAlert：高限制区（需特许证）
func HighRestrictionAlert(z zones.Zone, now time.Time) Alert {
	msg := fmt.Sprintf("Special permits required in %s", z.Name)
	if z.ContactAuthority != "" {
		msg += ". Contact: " + z.ContactAuthority
	}
	return Alert{
		Severity:  SeverityWarning,
		Category:  CategoryHighRestriction,
		Title:     "⚠️ HIGH RESTRICTION ZONE",
		Message:   msg,
		Action:    "Verify documentation",
		Contact:   z.ContactAuthority,
		ZoneRef:   z.Name,
		CreatedAt: now,
	}
}

// SeasonalAlert：季节性禁渔生效
func SeasonalAlert(z zones.Zone, now time.Time) Alert {
	return Alert{
		Severity:  SeverityWarning,
		Category:  CategorySeasonal,
		Title:     "📅 SEASONAL RESTRICTION",
		Message:   fmt.Sprintf("Current seasonal restrictions apply in %s", z.Name),
		Details:   z.SeasonalRestrictions,
		Contact:   z.ContactAuthority,
		ZoneRef:   z.Name,
		CreatedAt: now,
	}
}

// BoatSizeAlert：船型超限
func BoatSizeAlert(z zones.Zone, now time.Time) Alert {
	return Alert{
		Severity:  SeverityWarning,
		Category:  CategoryBoatSize,
		Title:     "🚢 BOAT SIZE RESTRICTION",
		Message:   fmt.Sprintf("Maximum boat size for %s: %s", z.Name, z.MaxBoatSize),
		ZoneRef:   z.Name,
		CreatedAt: now,
	}
}

// ProximityAlert：接近禁捕区边界（info）
func ProximityAlert(z zones.Zone, p geo.Proximity, now time.Time) Alert {
	return Alert{
		Severity:  SeverityInfo,
		Category:  CategoryProximity,
		Title:     "🧭 APPROACHING RESTRICTED ZONE",
		Message:   fmt.Sprintf("Approaching %s: %dm from boundary", z.Name, int(math.Round(p.DistanceM))),
		Action:    "Change course",
		Contact:   z.ContactAuthority,
		ZoneRef:   z.Name,
		CreatedAt: now,
	}
}
