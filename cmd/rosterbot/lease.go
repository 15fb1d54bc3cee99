package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rosterbot/internal/infrastructure/repositories"
	"rosterbot/pkg/distributed"
)

const (
	instanceLeaseKey = "rosterbot:lease:serve"
	instanceLeaseTTL = 30 * time.Second
)

var errLeaseLost = errors.New("another instance took over the roster lease")

// claimInstanceLease makes sure only one bot serves a shared Redis roster:
// each process keeps the whole roster in memory and would overwrite the
// other's snapshots. Other drivers are process-local and need no lease.
func claimInstanceLease(ctx context.Context, factory *repositories.RepositoryFactory) (*distributed.Lease, error) {
	client := factory.RedisClient()
	if client == nil {
		return nil, nil
	}

	lease := distributed.NewLease(client, instanceLeaseKey, instanceLeaseTTL)
	ok, err := lease.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		holder, _ := lease.Holder(ctx)
		return nil, fmt.Errorf("roster is served by another instance (lease holder %q)", holder)
	}
	return lease, nil
}

// leaseLost returns a channel that never fires when there is no lease.
func leaseLost(lease *distributed.Lease) <-chan struct{} {
	if lease == nil {
		return nil
	}
	return lease.Lost()
}
