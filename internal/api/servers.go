package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ghostlayer/internal/lifecycle"
	"ghostlayer/internal/state"
)

// UpsertServerRequest carries a server creation or edit. A non-empty id
// matching an existing node edits it; any other id (or none) creates one.
type UpsertServerRequest struct {
	ID string `json:"id,omitempty"`
	lifecycle.ServerPatch
}

// ServerView is a node plus the number of users bound to it.
type ServerView struct {
	state.ServerNode
	UserCount int `json:"user_count"`
}

func serverView(s state.AppState, node state.ServerNode) ServerView {
	view := ServerView{ServerNode: node}
	for i := range s.Users {
		if s.Users[i].ServerID == node.ID {
			view.UserCount++
		}
	}
	return view
}

// ListServers returns all server nodes with their bound-user counts.
func (api *API) ListServers(c *gin.Context) {
	snap := api.mgr.Snapshot()
	views := make([]ServerView, 0, len(snap.Servers))
	for _, node := range snap.Servers {
		views = append(views, serverView(snap, node))
	}
	c.JSON(http.StatusOK, gin.H{"servers": views, "count": len(views)})
}

// UpsertServer creates a server node or merges an edit into an existing
// one. Creation responds 201, edits respond 200.
func (api *API) UpsertServer(c *gin.Context) {
	var req UpsertServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	existing := api.mgr.Snapshot().FindServer(req.ID) != -1

	var node state.ServerNode
	next, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		n, upserted, err := lifecycle.UpsertServer(s, api.ids, req.ID, req.ServerPatch)
		node = upserted
		return n, err
	})
	if err != nil {
		api.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	} else {
		api.log.Info().Str("server", node.Name).Msg("server node created")
	}
	c.JSON(status, serverView(next, node))
}

// DeleteServer removes a node and unbinds every user attached to it.
// Deleting a nonexistent node responds 404 without changing any state.
func (api *API) DeleteServer(c *gin.Context) {
	id := c.Param("id")

	snap := api.mgr.Snapshot()
	if snap.FindServer(id) == -1 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Server not found"})
		return
	}

	if _, err := api.mgr.Apply(func(s state.AppState) (state.AppState, error) {
		return lifecycle.DeleteServer(s, id), nil
	}); err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Server deleted successfully"})
}
