package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wander/config"
	dbt "wander/db/db"
	"wander/db/mem"
	"wander/db/pg"
	"wander/mq/gcppubsub"
	"wander/mq/goch"
	"wander/mq/mq"
	"wander/mq/rabbit"
	"wander/reaper"
	"wander/trip"
)

// bootstrap builds the service and its reaper from config: the configured
// store backend, the configured queue backend, and one expirable store per
// entity kind registered on a shared reaper.
func bootstrap(ctx context.Context, cfg *config.Config) (*trip.Service, *reaper.Reaper, error) {
	queueWrapper, err := buildMQ(ctx, mq.Mode(cfg.MQMode))
	if err != nil {
		return nil, nil, err
	}

	sweeper := reaper.New()
	sweeper.Interval = cfg.ReaperInterval
	sweeper.BootDelay = cfg.ReaperBootDelay

	switch cfg.Store {
	case "mem":
		nodes := mem.NewInMemoryTripNodeDBWrapper()
		users := mem.NewInMemoryUserDBWrapper()
		dests := mem.NewInMemoryDestinationDBWrapper()

		sweeper.Register(nodes.Expirable(nil))
		sweeper.Register(users.Expirable(reaper.PhotoCleanupHook(users, cfg.PhotoDir)))
		sweeper.Register(dests.Expirable(nil))

		return trip.NewService(nodes, users, dests, queueWrapper), sweeper, nil
	case "pg":
		gdb, err := pg.InitPostgresGORM(pg.CreateDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		nodes := pg.NewGORMTripNodeDBWrapper(gdb)
		users := pg.NewGORMUserDBWrapper(gdb)
		dests := pg.NewGORMDestinationDBWrapper(gdb)

		registerPgExpirables(sweeper, gdb, users, cfg.PhotoDir)

		return trip.NewService(nodes, users, dests, queueWrapper), sweeper, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

// registerPgExpirables puts every soft-deletable table on the sweep
// rotation. User purges also drop the users' photo rows, after the photo
// files are removed by the pre-purge hook.
func registerPgExpirables(sweeper *reaper.Reaper, gdb *gorm.DB, users dbt.UserDBWrapper, photoDir string) {
	sweeper.Register(pg.NewTripNodeExpirableStore(gdb))

	userStore := pg.NewGORMExpirableStore[pg.UserModel](gdb, "users", reaper.PhotoCleanupHook(users, photoDir))
	userStore.AfterPurge = func(tx *gorm.DB, ids []uuid.UUID) error {
		return tx.Where("owner_id IN ?", ids).Delete(&pg.PhotoModel{}).Error
	}
	sweeper.Register(userStore)

	sweeper.Register(pg.NewGORMExpirableStore[pg.DestinationModel](gdb, "destinations", nil))
	sweeper.Register(pg.NewGORMExpirableStore[pg.PhotoModel](gdb, "photos", nil))
}

func buildMQ(ctx context.Context, mode mq.Mode) (mq.TripMessageQueueWrapper, error) {
	switch mode {
	case mq.ModeGoChan:
		return goch.NewGoChanTripMessageQueueWrapper(), nil
	case mq.ModeRabbit:
		conn := rabbit.NewRabbitConnection(rabbit.CreateAmqpURL())
		return rabbit.NewRabbitTripMessageQueueWrapper(conn)
	case mq.ModeGCPPubSub:
		return gcppubsub.NewGCPTripMessageQueueWrapper(ctx, gcppubsub.GetGCPProjectID())
	default:
		return nil, fmt.Errorf("unknown mq mode %q", mode)
	}
}
