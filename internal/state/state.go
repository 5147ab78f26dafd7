// Package state defines the domain model for the GhostLayer control plane.
// The whole application state is a single aggregate that is replaced
// atomically on every mutation: operations take a snapshot and produce a
// new snapshot, there is no partial-entity persistence.
package state

import (
	"time"
)

// ServerStatus represents the operational status of a server node.
type ServerStatus string

const (
	ServerActive      ServerStatus = "active"      // Node is provisioned and serving traffic
	ServerMaintenance ServerStatus = "maintenance" // Node is capacity-exhausted or under maintenance
	ServerOffline     ServerStatus = "offline"     // Node validity expired or taken down
)

// UserStatus represents the subscription status of a user account.
type UserStatus string

const (
	UserActive         UserStatus = "active"          // Account in good standing
	UserExpired        UserStatus = "expired"         // Subscription lapsed
	UserPendingPayment UserStatus = "pending_payment" // Awaiting payment confirmation
	UserBanned         UserStatus = "banned"          // Account blocked by an administrator
)

// Sender identifies which party authored a support message.
type Sender string

const (
	SenderUser  Sender = "user"  // Message written by the account holder
	SenderAdmin Sender = "admin" // Message written by an administrator
)

// RequestStatus represents the review state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"  // Awaiting administrator review
	RequestApproved RequestStatus = "approved" // Converted into a user account
	RequestRejected RequestStatus = "rejected" // Declined by an administrator
)

// Message is one entry in a user's append-only, time-ordered support log.
// Messages are never mutated except to flip Read, and never deleted.
// Read is directional: a message is "read" only by the party who did not
// author it.
type Message struct {
	ID        string    `json:"id"`        // Unique identifier for the message
	Sender    Sender    `json:"sender"`    // Which party authored the message
	Text      string    `json:"text"`      // Message body
	Timestamp time.Time `json:"timestamp"` // When the message was sent
	Read      bool      `json:"read"`      // Whether the other party has read it
}

// ServerNode is a provisioned network endpoint with shared capacity and
// validity tracking. The sync URL and connect link are opaque strings:
// the core never dereferences them, they are copied verbatim to clients.
type ServerNode struct {
	ID              string       `json:"id"`                // Unique identifier for the node
	Name            string       `json:"name"`              // Display name
	SyncURL         string       `json:"sync_url"`          // Upstream metering/sync reference (opaque)
	ConnectLink     string       `json:"connect_link"`      // Connection descriptor handed to clients (opaque)
	Notice          string       `json:"notice"`            // Short operator-facing status message
	TotalCapacityGB float64      `json:"total_capacity_gb"` // Provisioned data budget
	UsedCapacityGB  float64      `json:"used_capacity_gb"`  // Accrued usage, 0 <= used <= total
	TotalDays       int          `json:"total_days"`        // Provisioned validity in days
	DaysRemaining   int          `json:"days_remaining"`    // Remaining validity, 0 <= remaining <= total
	Status          ServerStatus `json:"status"`            // Operational status
}

// Plan is the legacy per-user allowance, retained for accounts that are
// not bound to a server node.
type Plan struct {
	TotalDays     int     `json:"total_days"`     // Provisioned validity in days
	DaysRemaining int     `json:"days_remaining"` // Remaining validity
	TotalDataGB   float64 `json:"total_data_gb"`  // Provisioned data budget
	DataUsedGB    float64 `json:"data_used_gb"`   // Accrued usage
}

// UserData is an account bound to zero or one server node. The access
// code is the sole bearer credential for the user; it is unique across
// all users. An empty ServerID means the account is unbound.
type UserData struct {
	ID         string     `json:"id"`                    // Unique identifier for the user
	ExternalID string     `json:"external_id,omitempty"` // Host-platform identity, if known
	Username   string     `json:"username"`              // Display handle
	AccessCode string     `json:"access_code"`           // 24-char hex bearer credential, unique
	Status     UserStatus `json:"status"`                // Subscription status
	ServerID   string     `json:"server_id,omitempty"`   // Bound server node, empty when unbound
	Plan       Plan       `json:"plan"`                  // Legacy per-user allowance
	Messages   []Message  `json:"messages"`              // Append-only support log, insertion-ordered
	JoinedAt   time.Time  `json:"joined_at"`             // Account creation time
}

// JoinRequest is a pending application to join the network, reviewed by
// an administrator.
type JoinRequest struct {
	ID        string        `json:"id"`        // Unique identifier for the request
	Username  string        `json:"username"`  // Requested handle, normalized to "@handle"
	Timestamp time.Time     `json:"timestamp"` // When the request was submitted
	Status    RequestStatus `json:"status"`    // Review state
}

// AppState is the root aggregate. Every mutation replaces the whole
// document; callers must always recompute from the most recently
// persisted snapshot.
type AppState struct {
	Users             []UserData    `json:"users"`               // All user accounts
	Servers           []ServerNode  `json:"servers"`             // All server nodes
	Requests          []JoinRequest `json:"requests"`            // Pending and reviewed join requests
	AdminPasswordHash string        `json:"admin_password_hash"` // bcrypt hash of the admin credential
	LastSyncTime      time.Time     `json:"last_sync_time"`      // Last synchronization engine run
	LastDaySettlement time.Time     `json:"last_day_settlement"` // Last daily expiry settlement
}

// Clone returns a deep copy of the state. Operations clone before
// mutating so that the caller's snapshot is never aliased.
func (s AppState) Clone() AppState {
	out := s

	out.Users = make([]UserData, len(s.Users))
	for i, u := range s.Users {
		out.Users[i] = u
		out.Users[i].Messages = append([]Message(nil), u.Messages...)
	}

	out.Servers = append([]ServerNode(nil), s.Servers...)
	out.Requests = append([]JoinRequest(nil), s.Requests...)

	return out
}

// FindUser returns the index of the user with the given id, or -1.
func (s AppState) FindUser(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// FindServer returns the index of the server with the given id, or -1.
func (s AppState) FindServer(id string) int {
	for i := range s.Servers {
		if s.Servers[i].ID == id {
			return i
		}
	}
	return -1
}

// FindRequest returns the index of the join request with the given id, or -1.
func (s AppState) FindRequest(id string) int {
	for i := range s.Requests {
		if s.Requests[i].ID == id {
			return i
		}
	}
	return -1
}

// CodeInUse reports whether an access code is already assigned to a user.
func (s AppState) CodeInUse(code string) bool {
	for i := range s.Users {
		if s.Users[i].AccessCode == code {
			return true
		}
	}
	return false
}

// Normalize clamps the node's usage and validity into their invariant
// ranges: 0 <= used <= total and 0 <= remaining <= total. It is applied
// on every write that can move these fields.
func (n *ServerNode) Normalize() {
	if n.TotalCapacityGB < 0 {
		n.TotalCapacityGB = 0
	}
	if n.UsedCapacityGB < 0 {
		n.UsedCapacityGB = 0
	}
	if n.UsedCapacityGB > n.TotalCapacityGB {
		n.UsedCapacityGB = n.TotalCapacityGB
	}
	if n.TotalDays < 0 {
		n.TotalDays = 0
	}
	if n.DaysRemaining < 0 {
		n.DaysRemaining = 0
	}
	if n.DaysRemaining > n.TotalDays {
		n.DaysRemaining = n.TotalDays
	}
}

// Normalize clamps the legacy plan into its invariant ranges.
func (p *Plan) Normalize() {
	if p.TotalDataGB < 0 {
		p.TotalDataGB = 0
	}
	if p.DataUsedGB < 0 {
		p.DataUsedGB = 0
	}
	if p.DataUsedGB > p.TotalDataGB {
		p.DataUsedGB = p.TotalDataGB
	}
	if p.TotalDays < 0 {
		p.TotalDays = 0
	}
	if p.DaysRemaining < 0 {
		p.DaysRemaining = 0
	}
	if p.DaysRemaining > p.TotalDays {
		p.DaysRemaining = p.TotalDays
	}
}
