// Package lifecycle implements the administrative and user state
// transitions of the control plane. Every operation is a pure function
// taking a state snapshot and returning a new snapshot: validation
// failures are rejected with a typed error before any mutation, and
// operations referencing a nonexistent id return the input state
// unchanged rather than failing hard.
package lifecycle

import (
	"strings"
	"time"

	"ghostlayer/internal/ident"
	"ghostlayer/internal/state"
)

// maxCodeAttempts bounds access-code regeneration on collision.
const maxCodeAttempts = 5

// newUniqueCode draws access codes until one does not collide with any
// existing user. Collisions are astronomically unlikely with a healthy
// randomness source, so exhausting the retry budget is a ConflictError.
func newUniqueCode(s state.AppState, gen ident.Generator) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := gen.NewAccessCode()
		if err != nil {
			return "", err
		}
		if !s.CodeInUse(code) {
			return code, nil
		}
	}
	return "", &ConflictError{Resource: "access code"}
}

// CreateUser adds a new active user with the default legacy plan, an
// empty message log, and a freshly generated unique access code. The
// serverID and externalID arguments are optional; a non-empty serverID
// must reference an existing server node.
func CreateUser(s state.AppState, gen ident.Generator, username, serverID, externalID string, now time.Time) (state.AppState, state.UserData, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return s, state.UserData{}, &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if serverID != "" && s.FindServer(serverID) == -1 {
		return s, state.UserData{}, &ValidationError{Field: "server_id", Reason: "no such server node"}
	}

	code, err := newUniqueCode(s, gen)
	if err != nil {
		return s, state.UserData{}, err
	}

	user := state.UserData{
		ID:         gen.NewID(),
		ExternalID: externalID,
		Username:   username,
		AccessCode: code,
		Status:     state.UserActive,
		ServerID:   serverID,
		Plan:       state.NewPlan(),
		Messages:   []state.Message{},
		JoinedAt:   now,
	}

	next := s.Clone()
	next.Users = append(next.Users, user)
	return next, user, nil
}

// DeleteUser removes the user from the collection. There are no
// cascading effects elsewhere; a nonexistent id is a no-op.
func DeleteUser(s state.AppState, userID string) state.AppState {
	idx := s.FindUser(userID)
	if idx == -1 {
		return s
	}
	next := s.Clone()
	next.Users = append(next.Users[:idx], next.Users[idx+1:]...)
	return next
}

// ServerPatch carries the fields of an administrative server upsert.
// Nil pointers leave the corresponding field untouched on edit; on
// creation, absent numeric fields fall back to the documented defaults.
// Administrative edits may set any field, including resurrecting a
// downgraded status back to active.
type ServerPatch struct {
	Name            *string             `json:"name,omitempty"`
	SyncURL         *string             `json:"sync_url,omitempty"`
	ConnectLink     *string             `json:"connect_link,omitempty"`
	Notice          *string             `json:"notice,omitempty"`
	TotalCapacityGB *float64            `json:"total_capacity_gb,omitempty"`
	UsedCapacityGB  *float64            `json:"used_capacity_gb,omitempty"`
	TotalDays       *int                `json:"total_days,omitempty"`
	DaysRemaining   *int                `json:"days_remaining,omitempty"`
	Status          *state.ServerStatus `json:"status,omitempty"`
}

func (p ServerPatch) apply(n *state.ServerNode) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.SyncURL != nil {
		n.SyncURL = *p.SyncURL
	}
	if p.ConnectLink != nil {
		n.ConnectLink = *p.ConnectLink
	}
	if p.Notice != nil {
		n.Notice = *p.Notice
	}
	if p.TotalCapacityGB != nil {
		n.TotalCapacityGB = *p.TotalCapacityGB
	}
	if p.UsedCapacityGB != nil {
		n.UsedCapacityGB = *p.UsedCapacityGB
	}
	if p.TotalDays != nil {
		n.TotalDays = *p.TotalDays
	}
	if p.DaysRemaining != nil {
		n.DaysRemaining = *p.DaysRemaining
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
}

func validStatus(st state.ServerStatus) bool {
	switch st {
	case state.ServerActive, state.ServerMaintenance, state.ServerOffline:
		return true
	}
	return false
}

// UpsertServer merges the patch into an existing server when serverID
// matches one, and creates a new node otherwise. Creation requires a
// non-empty name and connect link and starts active with zero usage;
// capacity and validity default to 1000 GB and 30 days when omitted.
// Invariant clamping is applied after every write.
func UpsertServer(s state.AppState, gen ident.Generator, serverID string, patch ServerPatch) (state.AppState, state.ServerNode, error) {
	if patch.Status != nil && !validStatus(*patch.Status) {
		return s, state.ServerNode{}, &ValidationError{Field: "status", Reason: "unknown server status"}
	}

	if idx := s.FindServer(serverID); serverID != "" && idx != -1 {
		next := s.Clone()
		node := &next.Servers[idx]
		patch.apply(node)
		node.Normalize()
		return next, *node, nil
	}

	// Create path.
	if patch.Name == nil || strings.TrimSpace(*patch.Name) == "" {
		return s, state.ServerNode{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.ConnectLink == nil || strings.TrimSpace(*patch.ConnectLink) == "" {
		return s, state.ServerNode{}, &ValidationError{Field: "connect_link", Reason: "must not be empty"}
	}

	node := state.ServerNode{
		ID:              serverID,
		Name:            *patch.Name,
		ConnectLink:     *patch.ConnectLink,
		TotalCapacityGB: state.DefaultServerCapacityGB,
		UsedCapacityGB:  0,
		TotalDays:       state.DefaultServerDays,
		Status:          state.ServerActive,
	}
	if node.ID == "" {
		node.ID = gen.NewID()
	}
	if patch.SyncURL != nil {
		node.SyncURL = *patch.SyncURL
	}
	if patch.Notice != nil {
		node.Notice = *patch.Notice
	}
	if patch.TotalCapacityGB != nil && *patch.TotalCapacityGB > 0 {
		node.TotalCapacityGB = *patch.TotalCapacityGB
	}
	if patch.TotalDays != nil && *patch.TotalDays > 0 {
		node.TotalDays = *patch.TotalDays
	}
	node.DaysRemaining = node.TotalDays
	node.Normalize()

	next := s.Clone()
	next.Servers = append(next.Servers, node)
	return next, node, nil
}

// DeleteServer removes the node and unbinds every user currently bound
// to it in the same state transition. Users are never deleted as a side
// effect. A nonexistent id is a no-op.
func DeleteServer(s state.AppState, serverID string) state.AppState {
	idx := s.FindServer(serverID)
	if idx == -1 {
		return s
	}

	next := s.Clone()
	next.Servers = append(next.Servers[:idx], next.Servers[idx+1:]...)
	for i := range next.Users {
		if next.Users[i].ServerID == serverID {
			next.Users[i].ServerID = ""
		}
	}
	return next
}

// SendMessage appends an unread message to the user's support log. It is
// a no-op when the user does not exist or the text is empty.
func SendMessage(s state.AppState, gen ident.Generator, userID, text string, sender state.Sender, now time.Time) state.AppState {
	if strings.TrimSpace(text) == "" {
		return s
	}
	idx := s.FindUser(userID)
	if idx == -1 {
		return s
	}

	next := s.Clone()
	next.Users[idx].Messages = append(next.Users[idx].Messages, state.Message{
		ID:        gen.NewID(),
		Sender:    sender,
		Text:      text,
		Timestamp: now,
		Read:      false,
	})
	return next
}

// MarkMessagesRead flips Read on every message authored by the party
// opposite to the reader: an admin reader consumes user messages and
// vice versa. It short-circuits to the input state when there is nothing
// unread, avoiding needless snapshot churn.
func MarkMessagesRead(s state.AppState, userID string, reader state.Sender) state.AppState {
	idx := s.FindUser(userID)
	if idx == -1 {
		return s
	}

	var author state.Sender
	switch reader {
	case state.SenderAdmin:
		author = state.SenderUser
	case state.SenderUser:
		author = state.SenderAdmin
	default:
		return s
	}

	hasUnread := false
	for _, m := range s.Users[idx].Messages {
		if m.Sender == author && !m.Read {
			hasUnread = true
			break
		}
	}
	if !hasUnread {
		return s
	}

	next := s.Clone()
	msgs := next.Users[idx].Messages
	for i := range msgs {
		if msgs[i].Sender == author {
			msgs[i].Read = true
		}
	}
	return next
}

// Broadcast appends one unread admin message to every user's log in a
// single transition.
func Broadcast(s state.AppState, gen ident.Generator, text string, now time.Time) (state.AppState, error) {
	if strings.TrimSpace(text) == "" {
		return s, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	next := s.Clone()
	for i := range next.Users {
		next.Users[i].Messages = append(next.Users[i].Messages, state.Message{
			ID:        gen.NewID(),
			Sender:    state.SenderAdmin,
			Text:      text,
			Timestamp: now,
			Read:      false,
		})
	}
	return next, nil
}

// ChangeAdminPassword stores a new admin credential hash. Hashing is the
// caller's concern; an empty hash is rejected.
func ChangeAdminPassword(s state.AppState, newHash string) (state.AppState, error) {
	if newHash == "" {
		return s, &ValidationError{Field: "password", Reason: "must not be empty"}
	}
	next := s.Clone()
	next.AdminPasswordHash = newHash
	return next, nil
}

// SubmitJoinRequest records a pending application from the public signup
// surface. The username is normalized to the "@handle" form.
func SubmitJoinRequest(s state.AppState, gen ident.Generator, username string, now time.Time) (state.AppState, state.JoinRequest, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return s, state.JoinRequest{}, &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}

	req := state.JoinRequest{
		ID:        gen.NewID(),
		Username:  username,
		Timestamp: now,
		Status:    state.RequestPending,
	}

	next := s.Clone()
	next.Requests = append(next.Requests, req)
	return next, req, nil
}

// ApproveJoinRequest converts a pending request into an active user,
// optionally bound to a server node, and marks the request approved. A
// missing or already-reviewed request is a no-op returning a zero user.
func ApproveJoinRequest(s state.AppState, gen ident.Generator, requestID, serverID string, now time.Time) (state.AppState, state.UserData, error) {
	idx := s.FindRequest(requestID)
	if idx == -1 || s.Requests[idx].Status != state.RequestPending {
		return s, state.UserData{}, nil
	}

	next, user, err := CreateUser(s, gen, s.Requests[idx].Username, serverID, "", now)
	if err != nil {
		return s, state.UserData{}, err
	}
	next.Requests[idx].Status = state.RequestApproved
	return next, user, nil
}

// RejectJoinRequest marks a pending request rejected. A missing or
// already-reviewed request is a no-op.
func RejectJoinRequest(s state.AppState, requestID string) state.AppState {
	idx := s.FindRequest(requestID)
	if idx == -1 || s.Requests[idx].Status != state.RequestPending {
		return s
	}
	next := s.Clone()
	next.Requests[idx].Status = state.RequestRejected
	return next
}
