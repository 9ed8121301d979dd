package run

import "context"

type Repository interface {
	Create(ctx context.Context, r *Run) error
	Update(ctx context.Context, r *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, status Status, limit int) ([]Run, error)
	ClaimPending(ctx context.Context) (*Run, error)
	RecoverStale(ctx context.Context) (int64, error)
}
