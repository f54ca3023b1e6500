package graph

import (
	"context"
	"log/slog"
)

// Observer receives side-effect-only notifications after successful
// association mutations. Implementations must not block; the manager calls
// them synchronously on the mutation path. Errors cannot be reported back;
// an observer failing must never fail the mutation.
type Observer interface {
	AssociationCreated(ctx context.Context, a *Association)
	AssociationUpdated(ctx context.Context, a *Association)
	AssociationRemoved(ctx context.Context, a *Association)
}

// LogObserver logs every mutation at info level. Useful as an audit trail
// and as the reference Observer implementation.
type LogObserver struct {
	Log *slog.Logger
}

func (o *LogObserver) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

func (o *LogObserver) AssociationCreated(ctx context.Context, a *Association) {
	o.logger().InfoContext(ctx, "association created",
		"id", a.ID, "parent", a.ParentID, "child", a.ChildID,
		"kind", string(a.Kind), "path", a.Path, "weight", a.Weight)
}

func (o *LogObserver) AssociationUpdated(ctx context.Context, a *Association) {
	o.logger().InfoContext(ctx, "association updated",
		"id", a.ID, "path", a.Path, "weight", a.Weight)
}

func (o *LogObserver) AssociationRemoved(ctx context.Context, a *Association) {
	o.logger().InfoContext(ctx, "association removed",
		"id", a.ID, "parent", a.ParentID, "child", a.ChildID, "path", a.Path)
}

var _ Observer = (*LogObserver)(nil)
