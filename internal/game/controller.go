package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/truenumber/truenumber-cli/internal/apiclient"
	"github.com/truenumber/truenumber-cli/internal/history"
	"github.com/truenumber/truenumber-cli/internal/model"
	"github.com/truenumber/truenumber-cli/internal/session"
)

// Controller executes play actions and keeps the visible balance and
// self-history consistent with the server's authoritative outcome.
type Controller struct {
	client  *apiclient.Client
	session *session.Store
	history *history.Cache
	logger  *slog.Logger

	playInFlight atomic.Bool
}

// NewController creates a game controller.
func NewController(client *apiclient.Client, sess *session.Store, hist *history.Cache, logger *slog.Logger) *Controller {
	return &Controller{
		client:  client,
		session: sess,
		history: hist,
		logger:  logger,
	}
}

// playResponse is the play endpoint's success payload.
type playResponse struct {
	Result          model.GameResult `json:"result"`
	GeneratedNumber int              `json:"generatedNumber"`
	NewBalance      int              `json:"newBalance"`
}

// Play executes a single play. The outcome is entirely server-determined;
// no guess or seed is sent. At most one play may be in flight per session:
// a second call while one is pending returns ErrPlayInProgress.
//
// On success the session balance is set to the server's absolute newBalance
// and self-history is re-fetched wholesale, so both come from the same
// post-play server state. A response without a result tag is a protocol
// error, not a loss.
func (c *Controller) Play(ctx context.Context) (*model.PlayOutcome, error) {
	if c.session.State() != session.StateAuthenticated {
		return nil, model.ErrNotAuthenticated
	}
	if !c.playInFlight.CompareAndSwap(false, true) {
		return nil, model.ErrPlayInProgress
	}
	defer c.playInFlight.Store(false)

	var resp playResponse
	if err := c.client.Post(ctx, "/game/play-game", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Result == "" {
		return nil, fmt.Errorf("%w: play response missing result", model.ErrMalformedResponse)
	}

	c.session.UpdateUser(model.UserPatch{Balance: &resp.NewBalance})

	// Full re-fetch, not an append, so the displayed history and balance are
	// sourced from the same server state. The outcome stands even if this
	// refresh fails; the cache just keeps its previous list.
	if _, err := c.LoadHistory(ctx, model.SelfScope()); err != nil {
		c.logger.Warn("self-history refresh after play failed", slog.String("error", err.Error()))
	}

	c.logger.Info("play completed",
		slog.String("result", string(resp.Result)),
		slog.Int("generated_number", resp.GeneratedNumber),
		slog.Int("new_balance", resp.NewBalance),
	)

	return &model.PlayOutcome{
		Result:          resp.Result,
		GeneratedNumber: resp.GeneratedNumber,
		NewBalance:      resp.NewBalance,
	}, nil
}

// LoadHistory fetches the record list for a scope and replaces the cached
// list. Per-user history is not fetched here; it only arrives embedded in an
// admin user-details lookup.
func (c *Controller) LoadHistory(ctx context.Context, scope model.HistoryScope) ([]model.GameRecord, error) {
	var path string
	switch scope.Kind {
	case model.ScopeSelf:
		path = "/game/user-game-history"
	case model.ScopeAll:
		path = "/game/all-history"
	default:
		return nil, fmt.Errorf("history scope %q cannot be fetched directly", scope.Kind)
	}

	c.history.SetLoading(scope, true)
	defer c.history.SetLoading(scope, false)

	var records []model.GameRecord
	if err := c.client.Get(ctx, path, &records); err != nil {
		return nil, err
	}

	c.history.Replace(scope, records)
	return c.history.Records(scope), nil
}

// History returns the cached list for a scope without fetching.
func (c *Controller) History(scope model.HistoryScope) []model.GameRecord {
	return c.history.Records(scope)
}
