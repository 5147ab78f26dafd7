package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ghostlayer/internal/state"
)

// Schema keys for the state document. A load miss on the current key
// triggers migration from the known prior keys, oldest-compatible-first.
const (
	CurrentStateKey = "ghostlayer_state_v2"

	legacyStateKeyV1 = "ghostlayer_state_v1"
)

// legacyStateKeys lists prior schema keys in migration order.
var legacyStateKeys = []string{legacyStateKeyV1}

// DefaultAdminPassword seeds a fresh deployment. It is stored only as a
// bcrypt hash and should be rotated immediately after first login.
const DefaultAdminPassword = "admin"

// HashFunc hashes a plaintext credential. The auth package supplies the
// production implementation; it is injected so this package stays free
// of hashing concerns.
type HashFunc func(password string) (string, error)

// StateStore adapts a DocumentStore to typed AppState load/save with
// schema migration and default seeding.
type StateStore struct {
	docs DocumentStore
	hash HashFunc
	log  zerolog.Logger
}

// NewStateStore creates the adapter on top of a document backend.
func NewStateStore(docs DocumentStore, hash HashFunc, log zerolog.Logger) *StateStore {
	return &StateStore{
		docs: docs,
		hash: hash,
		log:  log.With().Str("component", "store").Logger(),
	}
}

// Load returns the persisted state. On a miss for the current schema key
// it attempts migration from prior keys, and when none exists it seeds
// the documented default state: one pre-provisioned server, no users.
func (ss *StateStore) Load(now time.Time) (state.AppState, error) {
	doc, found, err := ss.docs.Load(CurrentStateKey)
	if err != nil {
		return state.AppState{}, err
	}
	if found {
		var s state.AppState
		if err := json.Unmarshal(doc, &s); err != nil {
			return state.AppState{}, fmt.Errorf("failed to decode state document: %w", err)
		}
		// Seed fields introduced after the document was written.
		if s.LastDaySettlement.IsZero() {
			s.LastDaySettlement = now
		}
		if s.Requests == nil {
			s.Requests = []state.JoinRequest{}
		}
		return s, nil
	}

	for _, key := range legacyStateKeys {
		doc, found, err := ss.docs.Load(key)
		if err != nil {
			return state.AppState{}, err
		}
		if !found {
			continue
		}
		migrated, err := ss.migrateV1(doc, now)
		if err != nil {
			ss.log.Error().Err(err).Str("key", key).Msg("legacy state migration failed, seeding defaults")
			break
		}
		ss.log.Info().Str("from", key).Msg("migrated legacy state document")
		return migrated, nil
	}

	ss.log.Info().Msg("no state document found, seeding defaults")
	return ss.seed(now)
}

// Save persists the state under the current schema key. Failures are
// wrapped in a PersistenceError so callers can distinguish them.
func (ss *StateStore) Save(s state.AppState) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return &PersistenceError{Key: CurrentStateKey, Err: err}
	}
	if err := ss.docs.Save(CurrentStateKey, doc); err != nil {
		return &PersistenceError{Key: CurrentStateKey, Err: err}
	}
	return nil
}

func (ss *StateStore) seed(now time.Time) (state.AppState, error) {
	hash, err := ss.hash(DefaultAdminPassword)
	if err != nil {
		return state.AppState{}, fmt.Errorf("failed to hash default admin password: %w", err)
	}
	return state.Default(now, hash), nil
}

// Legacy v1 document shapes. The v1 schema predates multi-server
// support: one implicit global server configuration, camelCase field
// names, millisecond timestamps, and a plaintext admin password.
type legacyStateV1 struct {
	Users           []legacyUserV1 `json:"users"`
	SubscriptionURL string         `json:"subscriptionUrl"`
	BaseVPNConfig   string         `json:"baseVpnConfig"`
	ServerMessage   string         `json:"serverMessage"`
	AdminPassword   string         `json:"adminPassword"`
	LastSyncTime    int64          `json:"lastSyncTime"`
}

type legacyUserV1 struct {
	ID       string            `json:"id"`
	Username string            `json:"username"`
	Code     string            `json:"code"`
	Status   string            `json:"status"`
	Plan     legacyPlanV1      `json:"plan"`
	Messages []legacyMessageV1 `json:"messages"`
	JoinedAt int64             `json:"joinedAt"`
}

type legacyPlanV1 struct {
	TotalDays     int     `json:"totalDays"`
	DaysRemaining int     `json:"daysRemaining"`
	TotalDataGB   float64 `json:"totalDataGB"`
	DataUsedGB    float64 `json:"dataUsedGB"`
}

type legacyMessageV1 struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}

// migrateV1 reshapes a v1 document into the current AppState: the global
// configuration becomes one default server node, every existing user is
// bound to it, the plaintext admin password is replaced by its hash, and
// the settlement timestamp is seeded with now.
func (ss *StateStore) migrateV1(doc []byte, now time.Time) (state.AppState, error) {
	var old legacyStateV1
	if err := json.Unmarshal(doc, &old); err != nil {
		return state.AppState{}, fmt.Errorf("failed to decode legacy state document: %w", err)
	}

	password := old.AdminPassword
	if password == "" {
		password = DefaultAdminPassword
	}
	hash, err := ss.hash(password)
	if err != nil {
		return state.AppState{}, fmt.Errorf("failed to hash migrated admin password: %w", err)
	}

	connectLink := old.BaseVPNConfig
	if connectLink == "" {
		connectLink = "vless://example"
	}
	notice := old.ServerMessage
	if notice == "" {
		notice = "System Operational"
	}

	server := state.ServerNode{
		ID:              "srv-migrated-1",
		Name:            "Primary Server (Migrated)",
		SyncURL:         old.SubscriptionURL,
		ConnectLink:     connectLink,
		Notice:          notice,
		TotalCapacityGB: state.DefaultServerCapacityGB,
		UsedCapacityGB:  0,
		TotalDays:       state.DefaultServerDays,
		DaysRemaining:   state.DefaultServerDays,
		Status:          state.ServerActive,
	}

	users := make([]state.UserData, 0, len(old.Users))
	for _, lu := range old.Users {
		u := state.UserData{
			ID:         lu.ID,
			Username:   lu.Username,
			AccessCode: lu.Code,
			Status:     migrateUserStatus(lu.Status),
			ServerID:   server.ID,
			Plan: state.Plan{
				TotalDays:     lu.Plan.TotalDays,
				DaysRemaining: lu.Plan.DaysRemaining,
				TotalDataGB:   lu.Plan.TotalDataGB,
				DataUsedGB:    lu.Plan.DataUsedGB,
			},
			Messages: make([]state.Message, 0, len(lu.Messages)),
			JoinedAt: fromMillis(lu.JoinedAt),
		}
		u.Plan.Normalize()
		for _, lm := range lu.Messages {
			u.Messages = append(u.Messages, state.Message{
				ID:        lm.ID,
				Sender:    state.Sender(lm.Sender),
				Text:      lm.Text,
				Timestamp: fromMillis(lm.Timestamp),
				Read:      lm.Read,
			})
		}
		users = append(users, u)
	}

	return state.AppState{
		Users:             users,
		Servers:           []state.ServerNode{server},
		Requests:          []state.JoinRequest{},
		AdminPasswordHash: hash,
		LastSyncTime:      fromMillis(old.LastSyncTime),
		LastDaySettlement: now,
	}, nil
}

func migrateUserStatus(s string) state.UserStatus {
	switch state.UserStatus(s) {
	case state.UserActive, state.UserExpired, state.UserPendingPayment, state.UserBanned:
		return state.UserStatus(s)
	}
	return state.UserActive
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
