package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/nodeline/internal/application/usecases/activity"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
	"github.com/hilthontt/nodeline/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultAcquireRetries = 3

const (
	descLogin     = "logged in"
	descLogout    = "logged out"
	descDisplaced = "displaced by new login"
)

var tracer = tracing.GetTracer("nodeline/session")

// Identity is supplied by the authentication collaborator.
type Identity struct {
	ID     string
	Handle string
	Staff  bool
	Guest  bool
}

type AcquireResult struct {
	Node      domain.Node
	User      domain.User
	Displaced *ReleaseResult
	Audit     activity.Result
}

// ReleaseResult separates the registry mutation (Lease) from its audit outcome.
type ReleaseResult struct {
	Lease    domain.Lease
	Credited time.Duration
	Audit    activity.Result
}

type ReleaseRequest struct {
	Node        int
	UserID      string // when set, the node must still be held by this user
	Action      domain.Action
	Description string
	Origin      string
	Match       func(domain.Node) bool
}

type TouchResult struct {
	Node  domain.Node
	Audit activity.Result
}

// AutoReplyRemover drops per-user settings when a guest account is deleted.
type AutoReplyRemover interface {
	Remove(ctx context.Context, userID string) error
}

// LiveSessions closes live subscriptions a user opened on a node.
type LiveSessions interface {
	Evict(node int, userID string)
}

type UseCase interface {
	Acquire(ctx context.Context, identity Identity, origin string) (AcquireResult, error)
	Release(ctx context.Context, userID, origin string) (ReleaseResult, error)
	ReleaseNode(ctx context.Context, req ReleaseRequest) (ReleaseResult, error)
	Touch(ctx context.Context, userID, label string) (TouchResult, error)
	Who(ctx context.Context) ([]domain.Node, error)
	Node(ctx context.Context, ordinal int) (domain.Node, error)
	SetMaintenance(ctx context.Context, actor Identity, ordinal int) (domain.Node, error)
	SetOnline(ctx context.Context, actor Identity, ordinal int) (domain.Node, error)
	SetOffline(ctx context.Context, actor Identity, ordinal int) (domain.Node, error)
}

type Options struct {
	AcquireRetries int
	Live           LiveSessions
}

type sessionUseCase struct {
	registry  domain.NodeRegistry
	users     domain.UserRepository
	activity  activity.UseCase
	autoReply AutoReplyRemover
	live      LiveSessions
	metrics   *metrics.Metrics
	logger    logging.Logger
	clock     domain.Clock
	retries   int
	userLocks sync.Map // user id -> *sync.Mutex
}

func NewUseCase(
	registry domain.NodeRegistry,
	users domain.UserRepository,
	activity activity.UseCase,
	autoReply AutoReplyRemover,
	metrics *metrics.Metrics,
	logger logging.Logger,
	clock domain.Clock,
	opts Options,
) UseCase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if opts.AcquireRetries <= 0 {
		opts.AcquireRetries = DefaultAcquireRetries
	}
	return &sessionUseCase{
		registry:  registry,
		users:     users,
		activity:  activity,
		autoReply: autoReply,
		live:      opts.Live,
		metrics:   metrics,
		logger:    logger,
		clock:     clock,
		retries:   opts.AcquireRetries,
	}
}

func (uc *sessionUseCase) Acquire(ctx context.Context, identity Identity, origin string) (AcquireResult, error) {
	ctx, span := tracer.Start(ctx, "session.Acquire")
	defer span.End()

	user, err := domain.NewUser(identity.ID, identity.Handle, identity.Staff, identity.Guest)
	if err != nil {
		return AcquireResult{}, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	var result AcquireResult
	if displaced, ok, err := uc.displace(ctx, user.ID, origin); err != nil {
		return AcquireResult{}, err
	} else if ok {
		result.Displaced = &displaced
	}

	node, err := uc.assign(ctx, user.ID)
	if err != nil {
		uc.metrics.Acquired("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AcquireResult{}, err
	}
	span.SetAttributes(attribute.Int("node.ordinal", node.Ordinal))

	saved, err := uc.openSession(ctx, user, node)
	if err != nil {
		// Roll back only our own assignment.
		assignedAt := node.OccupiedSince
		if _, rbErr := uc.registry.MarkReleased(ctx, node.Ordinal, func(n domain.Node) bool {
			return n.Occupant == user.ID && n.OccupiedSince.Equal(assignedAt)
		}); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		uc.metrics.Acquired("failed")
		span.RecordError(err)
		return AcquireResult{}, fmt.Errorf("failed to open session: %w", err)
	}

	result.Node = node
	result.User = saved
	result.Audit = uc.activity.Log(ctx, activity.Entry{
		Node:        node.Ordinal,
		UserID:      user.ID,
		Action:      domain.ActionLogin,
		Description: descLogin,
		Origin:      origin,
	})

	uc.metrics.Acquired("ok")
	uc.observePool(ctx)
	uc.logger.Info(logging.Pool, logging.Acquire, "node acquired", map[logging.ExtraKey]any{
		logging.NodeOrdinal: node.Ordinal,
		logging.UserID:      user.ID,
	})

	return result, nil
}

// assign runs the bounded find-or-grow-then-claim loop. It never waits.
func (uc *sessionUseCase) assign(ctx context.Context, userID string) (domain.Node, error) {
	for attempt := 0; attempt < uc.retries; attempt++ {
		now := uc.clock.Now()

		candidate, found, err := uc.registry.FindFirstFree(ctx)
		if err != nil {
			return domain.Node{}, err
		}
		if !found {
			candidate, err = uc.registry.Grow(ctx, now)
			if errors.Is(err, domain.ErrPoolExhausted) {
				uc.logger.Warn(logging.Pool, logging.Growth, "pool at capacity", map[logging.ExtraKey]any{
					logging.UserID: userID,
				})
				return domain.Node{}, fmt.Errorf("%w: %v", domain.ErrNoNodeAvailable, err)
			}
			if err != nil {
				return domain.Node{}, err
			}
			uc.metrics.Grew()
			uc.logger.Info(logging.Pool, logging.Growth, "node minted", map[logging.ExtraKey]any{
				logging.NodeOrdinal: candidate.Ordinal,
			})
		}

		node, err := uc.registry.MarkAssigned(ctx, candidate.Ordinal, userID, now)
		switch {
		case err == nil:
			return node, nil
		case errors.Is(err, domain.ErrAlreadyOccupied):
			continue
		case errors.Is(err, domain.ErrAlreadyConnected):
			// A concurrent login for the same user won a node in between.
			if _, _, err := uc.displace(ctx, userID, ""); err != nil {
				return domain.Node{}, err
			}
			continue
		default:
			return domain.Node{}, err
		}
	}

	return domain.Node{}, fmt.Errorf("after %d attempts: %w", uc.retries, domain.ErrNoNodeAvailable)
}

func (uc *sessionUseCase) displace(ctx context.Context, userID, origin string) (ReleaseResult, bool, error) {
	node, ok, err := uc.registry.FindByOccupant(ctx, userID)
	if err != nil || !ok {
		return ReleaseResult{}, false, err
	}

	res, err := uc.ReleaseNode(ctx, ReleaseRequest{
		Node:        node.Ordinal,
		UserID:      userID,
		Action:      domain.ActionDisconnect,
		Description: descDisplaced,
		Origin:      origin,
	})
	if err != nil {
		return ReleaseResult{}, false, err
	}
	return res, res.Lease.Released, nil
}

func (uc *sessionUseCase) openSession(ctx context.Context, fresh domain.User, node domain.Node) (domain.User, error) {
	unlock := uc.lockUser(fresh.ID)
	defer unlock()

	user, err := uc.users.Get(ctx, fresh.ID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = fresh
	case err != nil:
		return domain.User{}, err
	default:
		user.Handle = fresh.Handle
		user.Staff = fresh.Staff
		user.Guest = fresh.Guest
	}

	if _, err := uc.syncSession(ctx, &user); err != nil {
		return domain.User{}, err
	}
	user.LastLogin = node.OccupiedSince

	if err := uc.users.Save(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (uc *sessionUseCase) Release(ctx context.Context, userID, origin string) (ReleaseResult, error) {
	if userID == "" {
		return ReleaseResult{}, domain.NewValidationError("userId", "this field is required")
	}

	node, ok, err := uc.registry.FindByOccupant(ctx, userID)
	if err != nil {
		return ReleaseResult{}, err
	}
	if !ok {
		return ReleaseResult{}, nil
	}

	return uc.ReleaseNode(ctx, ReleaseRequest{
		Node:        node.Ordinal,
		UserID:      userID,
		Action:      domain.ActionLogout,
		Description: descLogout,
		Origin:      origin,
	})
}

// ReleaseNode is the single release path for logout, timeout and displacement.
// A node that is already free, or fails the request's conditions, is a no-op.
func (uc *sessionUseCase) ReleaseNode(ctx context.Context, req ReleaseRequest) (ReleaseResult, error) {
	ctx, span := tracer.Start(ctx, "session.ReleaseNode")
	defer span.End()
	span.SetAttributes(
		attribute.Int("node.ordinal", req.Node),
		attribute.String("action", string(req.Action)),
	)

	lease, err := uc.registry.MarkReleased(ctx, req.Node, func(n domain.Node) bool {
		if req.UserID != "" && n.Occupant != req.UserID {
			return false
		}
		return req.Match == nil || req.Match(n)
	})
	if err != nil {
		span.RecordError(err)
		return ReleaseResult{}, err
	}
	if !lease.Released {
		return ReleaseResult{Lease: lease}, nil
	}

	credited := lease.Duration(uc.clock.Now())
	uc.closeSession(ctx, lease, credited)
	uc.dropLive(lease)

	audit := uc.activity.Log(ctx, activity.Entry{
		Node:        lease.Node,
		UserID:      lease.UserID,
		Action:      req.Action,
		Description: req.Description,
		Origin:      req.Origin,
	})

	uc.metrics.Released(string(req.Action))
	uc.observePool(ctx)
	uc.logger.Info(logging.Pool, logging.Release, "node released", map[logging.ExtraKey]any{
		logging.NodeOrdinal: lease.Node,
		logging.UserID:      lease.UserID,
		logging.Action:      string(req.Action),
		logging.Duration:    credited.String(),
	})

	return ReleaseResult{Lease: lease, Credited: credited, Audit: audit}, nil
}

// closeSession credits the lease and clears the session reference after the registry
// let go of the node. Failures here are logged; the registry already reflects the truth.
func (uc *sessionUseCase) closeSession(ctx context.Context, lease domain.Lease, credited time.Duration) {
	unlock := uc.lockUser(lease.UserID)
	defer unlock()

	user, err := uc.users.Get(ctx, lease.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return
	}
	if err != nil {
		uc.warnSession(lease, "failed to load session reference", err)
		return
	}

	online, err := uc.syncSession(ctx, &user)
	if err != nil {
		uc.warnSession(lease, "failed to read registry", err)
		return
	}

	if user.Guest && !online {
		if err := uc.users.Delete(ctx, user.ID); err != nil {
			uc.warnSession(lease, "failed to delete guest", err)
		}
		if uc.autoReply != nil {
			if err := uc.autoReply.Remove(ctx, user.ID); err != nil {
				uc.warnSession(lease, "failed to remove guest auto-reply", err)
			}
		}
		return
	}

	user.OnlineTime += credited
	if err := uc.users.Save(ctx, user); err != nil {
		uc.warnSession(lease, "failed to save session reference", err)
	}
}

// syncSession copies the registry's view of the user onto the reference. Callers hold
// the user's lock, so whichever save runs last reflects the latest registry state.
func (uc *sessionUseCase) syncSession(ctx context.Context, user *domain.User) (bool, error) {
	node, online, err := uc.registry.FindByOccupant(ctx, user.ID)
	if err != nil {
		return false, err
	}
	user.Connected = online
	user.Node = 0
	if online {
		user.Node = node.Ordinal
	}
	return online, nil
}

func (uc *sessionUseCase) lockUser(userID string) func() {
	l, _ := uc.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (uc *sessionUseCase) dropLive(lease domain.Lease) {
	if uc.live != nil {
		uc.live.Evict(lease.Node, lease.UserID)
	}
}

func (uc *sessionUseCase) warnSession(lease domain.Lease, msg string, err error) {
	uc.logger.Warn(logging.Pool, logging.Release, msg, map[logging.ExtraKey]any{
		logging.NodeOrdinal:  lease.Node,
		logging.UserID:       lease.UserID,
		logging.ErrorMessage: err.Error(),
	})
}

func (uc *sessionUseCase) Touch(ctx context.Context, userID, label string) (TouchResult, error) {
	if userID == "" {
		return TouchResult{}, domain.NewValidationError("userId", "this field is required")
	}

	node, ok, err := uc.registry.FindByOccupant(ctx, userID)
	if err != nil {
		return TouchResult{}, err
	}
	if !ok {
		return TouchResult{}, fmt.Errorf("user %s: %w", userID, domain.ErrSessionNotFound)
	}

	updated, err := uc.registry.UpdateActivity(ctx, node.Ordinal, label, uc.clock.Now())
	if err != nil {
		return TouchResult{}, err
	}

	audit := uc.activity.Log(ctx, activity.Entry{
		Node:        updated.Ordinal,
		UserID:      userID,
		Action:      domain.ActionActivity,
		Description: label,
	})

	return TouchResult{Node: updated, Audit: audit}, nil
}

func (uc *sessionUseCase) Who(ctx context.Context) ([]domain.Node, error) {
	return uc.registry.List(ctx)
}

func (uc *sessionUseCase) Node(ctx context.Context, ordinal int) (domain.Node, error) {
	return uc.registry.Get(ctx, ordinal)
}

func (uc *sessionUseCase) SetMaintenance(ctx context.Context, actor Identity, ordinal int) (domain.Node, error) {
	return uc.setStatus(ctx, actor, ordinal, domain.NodeMaintenance)
}

func (uc *sessionUseCase) SetOnline(ctx context.Context, actor Identity, ordinal int) (domain.Node, error) {
	return uc.setStatus(ctx, actor, ordinal, domain.NodeOnline)
}

func (uc *sessionUseCase) SetOffline(ctx context.Context, actor Identity, ordinal int) (domain.Node, error) {
	return uc.setStatus(ctx, actor, ordinal, domain.NodeOffline)
}

// setStatus drops any occupant without LOGOUT bookkeeping; only the session reference is cleared.
func (uc *sessionUseCase) setStatus(ctx context.Context, actor Identity, ordinal int, status domain.NodeStatus) (domain.Node, error) {
	if !actor.Staff {
		return domain.Node{}, domain.ErrForbidden
	}

	node, lease, err := uc.registry.SetStatus(ctx, ordinal, status)
	if err != nil {
		return domain.Node{}, err
	}

	if lease.Released {
		uc.closeSession(ctx, lease, 0)
		uc.dropLive(lease)
		uc.observePool(ctx)
	}

	uc.logger.Info(logging.Pool, logging.Status, "node status changed", map[logging.ExtraKey]any{
		logging.NodeOrdinal: ordinal,
		logging.UserID:      actor.ID,
		logging.Action:      string(status),
	})

	return node, nil
}

func (uc *sessionUseCase) observePool(ctx context.Context) {
	if uc.metrics == nil {
		return
	}
	nodes, err := uc.registry.List(ctx)
	if err != nil {
		return
	}
	occupied := 0
	for _, n := range nodes {
		if n.IsOccupied() {
			occupied++
		}
	}
	uc.metrics.ObservePool(len(nodes), occupied)
}
