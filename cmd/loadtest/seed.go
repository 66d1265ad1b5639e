package main

import (
	"context"
	"fmt"
	randv2 "math/rand/v2"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/config"
	"github.com/FrontGate/FrontGate/pkg/db"
	"golang.org/x/sync/errgroup"
)

const (
	maxParallel = 4
)

// seedIdentity keeps identities deterministic so the load targeter can emit
// known-face events without querying the database first.
func seedIdentity(i int) string {
	return fmt.Sprintf("loadtest-visitor-%06d", i)
}

func seed(visitorCount, authorizedPercent int, getenv func(string) string) error {
	ctx := context.TODO()
	cfg := config.New(getenv)

	cache, err := db.NewVisitorCache(5*time.Minute, visitorCount+1)
	if err != nil {
		return err
	}

	pool, clickhouse, dberr := db.Connect(ctx, cfg)
	if dberr != nil {
		return dberr
	}

	defer pool.Close()
	/*defer*/ clickhouse.Close()

	store := db.NewStore(pool, cache)

	semaphore := make(chan struct{}, maxParallel)
	errs, ctx := errgroup.WithContext(ctx)

	for i := 0; i < visitorCount; i++ {
		errs.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			return seedVisitor(ctx, i, authorizedPercent, store)
		})
	}

	return errs.Wait()
}

func seedVisitor(ctx context.Context, i, authorizedPercent int, store *db.Store) error {
	identity := seedIdentity(i)

	visitor := &common.VisitorRecord{
		Identity:       identity,
		Email:          "none",
		Authorized:     false,
		LastNotifiedAt: 0,
		Photos: []common.PhotoRef{{
			ObjectKey: fmt.Sprintf("%s.jpg", identity),
			Bucket:    "loadtest",
			CreatedAt: time.Now().UTC(),
		}},
	}

	if err := store.CreateVisitor(ctx, visitor); err != nil {
		return err
	}

	if authorizedPercent >= randv2.IntN(100) {
		name := fmt.Sprintf("Test Visitor %v", i)
		email := fmt.Sprintf("test.visitor.%v@example.com", i)
		if err := store.AuthorizeVisitor(ctx, identity, name, email); err != nil {
			return err
		}
	}

	return nil
}
