package state

import "time"

// Default plan granted to newly created users: 30 days and 100 GB.
const (
	DefaultPlanDays   = 30
	DefaultPlanDataGB = 100
)

// Defaults applied when a server node is created without explicit values.
const (
	DefaultServerCapacityGB = 1000
	DefaultServerDays       = 30
)

// Default seeds a fresh AppState with one pre-provisioned server node and
// an empty user list. The admin credential hash is supplied by the caller
// so this package stays free of hashing concerns.
func Default(now time.Time, adminPasswordHash string) AppState {
	return AppState{
		Users: []UserData{},
		Servers: []ServerNode{
			{
				ID:              "srv-default-1",
				Name:            "Titanium Node (DE)",
				SyncURL:         "",
				ConnectLink:     "vless://uuid@cdn.example.com:443?encryption=none&security=tls&type=ws#Titanium-Node",
				Notice:          "Optimized for Streaming | Low Latency",
				TotalCapacityGB: 500,
				UsedCapacityGB:  124.5,
				TotalDays:       30,
				DaysRemaining:   15,
				Status:          ServerActive,
			},
		},
		Requests:          []JoinRequest{},
		AdminPasswordHash: adminPasswordHash,
		LastSyncTime:      now,
		LastDaySettlement: now,
	}
}

// NewPlan returns the default legacy plan for a new user.
func NewPlan() Plan {
	return Plan{
		TotalDays:     DefaultPlanDays,
		DaysRemaining: DefaultPlanDays,
		TotalDataGB:   DefaultPlanDataGB,
		DataUsedGB:    0,
	}
}
