package models

// LeaderboardEntry is one row of the recycled-kg ranking.
type LeaderboardEntry struct {
	Name       string  `json:"name"`
	RecycledKg float64 `json:"recycled_kg"`
}

// DailyProgress is the collected kilograms for a single calendar day,
// date formatted as 2006-01-02.
type DailyProgress struct {
	Date string  `json:"date"`
	Kg   float64 `json:"kg"`
}

// ProfileSummary is the dashboard shape: the member's stats plus the derived
// impact figures shown on the dashboard.
type ProfileSummary struct {
	Name       string             `json:"name"`
	RecycledKg float64            `json:"recycled_kg"`
	Minutes    int                `json:"minutes"`
	Trees      int                `json:"trees"`
	CO2Avoided float64            `json:"co2_avoided"`
	TopUsers   []LeaderboardEntry `json:"top_users"`
}
