package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/truenumber/truenumber-cli/internal/apiclient"
	"github.com/truenumber/truenumber-cli/internal/history"
	"github.com/truenumber/truenumber-cli/internal/model"
	"github.com/truenumber/truenumber-cli/internal/session"
)

// Controller performs CRUD over the user directory, role toggling and
// cross-user history retrieval. The access guard keeps non-admin sessions
// out at the view boundary; the controller still checks the role itself and
// fails safely, with the server as the final authority.
type Controller struct {
	client  *apiclient.Client
	session *session.Store
	history *history.Cache
	logger  *slog.Logger

	mu       sync.RWMutex
	users    []model.User
	selected *model.UserDetails
	view     model.AdminView

	loadingUsers   bool
	loadingDetails bool
}

// NewController creates an admin controller. The initial view is the user
// directory.
func NewController(client *apiclient.Client, sess *session.Store, hist *history.Cache, logger *slog.Logger) *Controller {
	return &Controller{
		client:  client,
		session: sess,
		history: hist,
		logger:  logger,
		view:    model.AdminViewUsers,
	}
}

// requireAdmin fails fast when the session lacks the admin capability.
func (c *Controller) requireAdmin() error {
	snap := c.session.Snapshot()
	if snap.State != session.StateAuthenticated {
		return model.ErrNotAuthenticated
	}
	if snap.User == nil || snap.User.Role != model.RoleAdmin {
		return model.ErrAdminRequired
	}
	return nil
}

// List fetches the full user directory and replaces the cached list.
func (c *Controller) List(ctx context.Context) ([]model.User, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.loadingUsers = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loadingUsers = false
		c.mu.Unlock()
	}()

	var users []model.User
	if err := c.client.Get(ctx, "/users", &users); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.users = users
	c.mu.Unlock()
	return c.Users(), nil
}

// writeUserRequest mirrors the directory's write payload. Empty fields are
// omitted so an unset password on update means "no change", never "set to
// empty".
type writeUserRequest struct {
	Username string     `json:"username,omitempty"`
	Email    string     `json:"email,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Password string     `json:"password,omitempty"`
	Role     model.Role `json:"role,omitempty"`
}

// Create submits a new user. The draft must carry username, email, phone and
// a password of at least six characters; role defaults to client. On success
// the directory is re-fetched (reconciliation by re-fetch, unlike Delete).
// A server rejection surfaces the server's message verbatim.
func (c *Controller) Create(ctx context.Context, draft model.UserDraft) (*model.User, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	if err := draft.ValidateForCreate(); err != nil {
		return nil, err
	}

	req := writeUserRequest{
		Username: draft.Username,
		Email:    draft.Email,
		Phone:    draft.Phone,
		Password: draft.Password,
		Role:     draft.Role,
	}
	var created model.User
	if err := c.client.Post(ctx, "/users", req, &created); err != nil {
		return nil, err
	}

	c.logger.Info("user created",
		slog.String("user_id", string(created.ID)),
		slog.String("role", string(created.Role)),
	)

	if _, err := c.List(ctx); err != nil {
		c.logger.Warn("directory refresh after create failed", slog.String("error", err.Error()))
	}
	return &created, nil
}

// Update submits changed fields for a user. An empty password in the draft is
// omitted from the request. On success the directory is re-fetched, and the
// open details view is refreshed when it shows the same user.
func (c *Controller) Update(ctx context.Context, id model.UserID, draft model.UserDraft) (*model.User, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}

	req := writeUserRequest{
		Username: draft.Username,
		Email:    draft.Email,
		Phone:    draft.Phone,
		Password: draft.Password,
		Role:     draft.Role,
	}
	var updated model.User
	if err := c.client.Put(ctx, fmt.Sprintf("/users/%s", id), req, &updated); err != nil {
		return nil, err
	}

	if _, err := c.List(ctx); err != nil {
		c.logger.Warn("directory refresh after update failed", slog.String("error", err.Error()))
	}
	c.refreshSelectedIf(ctx, id)
	return &updated, nil
}

// Delete removes a user. The caller must pass an explicit confirm signal;
// the controller never deletes without one. On success the user is removed
// from the cached directory locally instead of re-fetching, unlike the
// create and update paths.
func (c *Controller) Delete(ctx context.Context, id model.UserID, confirmed bool) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	if !confirmed {
		return model.ErrDeleteNotConfirmed
	}

	if err := c.client.Delete(ctx, fmt.Sprintf("/users/%s", id)); err != nil {
		return err
	}

	c.mu.Lock()
	kept := c.users[:0]
	for _, u := range c.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	c.users = kept
	if c.selected != nil && c.selected.ID == id {
		c.selected = nil
		if c.view == model.AdminViewUserDetails {
			c.view = model.AdminViewUsers
		}
	}
	c.mu.Unlock()

	c.history.Drop(model.UserScope(id))
	c.logger.Info("user deleted", slog.String("user_id", string(id)))
	return nil
}

// ToggleRole flips a user's role between client and admin. The new role is
// computed from the most recently loaded directory snapshot; if that snapshot
// is stale the last observed role flips. After the toggle the directory is
// re-fetched, and open details for the same user are refreshed so role badges
// stay consistent.
func (c *Controller) ToggleRole(ctx context.Context, id model.UserID) (model.Role, error) {
	if err := c.requireAdmin(); err != nil {
		return "", err
	}

	c.mu.RLock()
	var current model.Role
	found := false
	for _, u := range c.users {
		if u.ID == id {
			current = u.Role
			found = true
			break
		}
	}
	c.mu.RUnlock()
	if !found {
		return "", model.ErrUserNotFound
	}

	newRole := current.Opposite()
	req := writeUserRequest{Role: newRole}
	var updated model.User
	if err := c.client.Put(ctx, fmt.Sprintf("/users/%s", id), req, &updated); err != nil {
		return "", err
	}

	c.logger.Info("role toggled",
		slog.String("user_id", string(id)),
		slog.String("role", string(newRole)),
	)

	if _, err := c.List(ctx); err != nil {
		c.logger.Warn("directory refresh after role toggle failed", slog.String("error", err.Error()))
	}
	c.refreshSelectedIf(ctx, id)
	return newRole, nil
}

// FetchUserDetails fetches a single user's record with embedded history and
// makes it the active details selection. The embedded history also lands in
// the user-scoped cache.
func (c *Controller) FetchUserDetails(ctx context.Context, id model.UserID) (*model.UserDetails, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.loadingDetails = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loadingDetails = false
		c.mu.Unlock()
	}()

	var details model.UserDetails
	if err := c.client.Get(ctx, fmt.Sprintf("/users/%s", id), &details); err != nil {
		return nil, err
	}

	c.history.Replace(model.UserScope(id), details.GameHistory)

	c.mu.Lock()
	c.selected = &details
	c.view = model.AdminViewUserDetails
	c.mu.Unlock()

	return c.Selected(), nil
}

// FetchAllHistory fetches the global, cross-user history scope and replaces
// its cached list.
func (c *Controller) FetchAllHistory(ctx context.Context) ([]model.GameRecord, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}

	scope := model.AllScope()
	c.history.SetLoading(scope, true)
	defer c.history.SetLoading(scope, false)

	var records []model.GameRecord
	if err := c.client.Get(ctx, "/game/all-history", &records); err != nil {
		return nil, err
	}

	c.history.Replace(scope, records)
	return c.history.Records(scope), nil
}

// refreshSelectedIf re-fetches the open details view when it shows the given
// user. Best-effort: failure keeps the previous details.
func (c *Controller) refreshSelectedIf(ctx context.Context, id model.UserID) {
	c.mu.RLock()
	match := c.selected != nil && c.selected.ID == id
	c.mu.RUnlock()
	if !match {
		return
	}
	if _, err := c.FetchUserDetails(ctx, id); err != nil {
		c.logger.Warn("details refresh failed",
			slog.String("user_id", string(id)),
			slog.String("error", err.Error()),
		)
	}
}

// SelectView switches the active admin view. The details view is only
// reachable while a selection exists.
func (c *Controller) SelectView(view model.AdminView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch view {
	case model.AdminViewUsers, model.AdminViewHistory:
		c.view = view
		return nil
	case model.AdminViewUserDetails:
		if c.selected == nil {
			return model.ErrNoSelection
		}
		c.view = view
		return nil
	default:
		return fmt.Errorf("unknown admin view %q", view)
	}
}

// ActiveView returns the current admin view state.
func (c *Controller) ActiveView() model.AdminView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Users returns a copy of the cached directory.
func (c *Controller) Users() []model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	users := make([]model.User, len(c.users))
	copy(users, c.users)
	return users
}

// Selected returns a copy of the active details selection, or nil.
func (c *Controller) Selected() *model.UserDetails {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return nil
	}
	details := *c.selected
	details.GameHistory = make([]model.GameRecord, len(c.selected.GameHistory))
	copy(details.GameHistory, c.selected.GameHistory)
	return &details
}

// LoadingUsers reports whether a directory fetch is in flight (advisory).
func (c *Controller) LoadingUsers() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingUsers
}

// LoadingDetails reports whether a details fetch is in flight (advisory).
func (c *Controller) LoadingDetails() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingDetails
}
