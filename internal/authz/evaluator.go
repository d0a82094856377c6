package authz

import (
	"context"
	"log/slog"

	"go-fund-admin/internal/apperror"

	"github.com/google/uuid"
)

// SnapshotSource loads an actor's active roles and permissions in one call.
type SnapshotSource interface {
	AccessSnapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error)
}

type check struct {
	kind     string
	required []string
	// roles selects the role set of the snapshot instead of the permission set
	roles bool
	all   bool
}

func (c check) pass(have map[string]struct{}) bool {
	if c.all {
		for _, name := range c.required {
			if _, ok := have[name]; !ok {
				return false
			}
		}
		return true
	}
	for _, name := range c.required {
		if _, ok := have[name]; ok {
			return true
		}
	}
	return false
}

// checks lists the present requirement kinds in evaluation order.
func (r Requirements) checks() []check {
	all := []check{
		{kind: KindAllRoles, required: r.AllRoles, roles: true, all: true},
		{kind: KindAnyRole, required: r.AnyRoles, roles: true},
		{kind: KindAllPermissions, required: r.AllPermissions, all: true},
		{kind: KindAnyPermission, required: r.AnyPermissions},
	}
	present := all[:0]
	for _, c := range all {
		if len(c.required) > 0 {
			present = append(present, c)
		}
	}
	return present
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Evaluate checks every present requirement kind against the snapshot and
// returns Forbidden for the first one that fails.
func Evaluate(req Requirements, snap Snapshot) error {
	roles, perms := toSet(snap.Roles), toSet(snap.Permissions)
	for _, c := range req.checks() {
		have := perms
		if c.roles {
			have = roles
		}
		if c.pass(have) {
			continue
		}
		return apperror.Forbidden("access denied: %s %v not satisfied", c.kind, c.required).
			WithDetail("roles=%v permissions=%v", snap.Roles, snap.Permissions)
	}
	return nil
}

// Evaluator runs the full guard decision for a request.
type Evaluator struct {
	source SnapshotSource
	logger *slog.Logger
}

func NewEvaluator(source SnapshotSource, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{source: source, logger: logger}
}

// Authorize decides whether identity may pass req. identity is nil when the
// request carried no resolvable credential.
func (e *Evaluator) Authorize(ctx context.Context, identity *Identity, req Requirements) error {
	if req.Public {
		return nil
	}
	if identity == nil {
		return apperror.Unauthenticated("authentication required")
	}
	if req.IsEmpty() {
		return nil
	}

	snap, err := e.source.AccessSnapshot(ctx, identity.UserID)
	if err != nil {
		if apperror.IsAuthError(err) {
			return err
		}
		e.logger.WarnContext(ctx, "access lookup failed",
			slog.String("user_id", identity.UserID.String()),
			slog.Any("error", err))
		return apperror.Forbidden("access denied")
	}

	if err := Evaluate(req, snap); err != nil {
		var detail string
		if appErr, ok := err.(*apperror.Error); ok {
			detail = appErr.Detail
		}
		e.logger.InfoContext(ctx, "access denied",
			slog.String("user_id", identity.UserID.String()),
			slog.String("reason", err.Error()),
			slog.String("actual", detail))
		return err
	}
	return nil
}
