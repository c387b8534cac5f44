package hydrate

import (
	"strings"
	"time"

	"github.com/cppla/eventboard/board"
	"github.com/cppla/eventboard/config"
	"github.com/cppla/eventboard/utils"
)

// FromConfig picks the board seeder named by cfg.HydrateSource. The returned
// func releases whatever the seeder holds open. Misconfigured or unreachable
// sources degrade to the static seed.
func FromConfig(cfg config.AppConfig) (board.Seeder, func()) {
	static := board.SeederFunc(board.StaticSeed)
	noop := func() {}
	timeout := time.Duration(cfg.HydrateTimeoutSec) * time.Second

	switch strings.ToLower(cfg.HydrateSource) {
	case "http":
		if cfg.HydrateBaseURL == "" {
			utils.Sugar.Warn("hydrate source is http but no base URL is set, using static seed")
			return static, noop
		}
		utils.Sugar.Infof("hydrating boards from %s", cfg.HydrateBaseURL)
		return NewSeeder(NewHTTPSource(cfg.HydrateBaseURL, timeout), timeout), noop
	case "mysql":
		db, err := config.OpenBoardDatabase()
		if err != nil {
			utils.Sugar.Warnf("board database unavailable, using static seed: %v", err)
			return static, noop
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		utils.Sugar.Info("hydrating boards from the board database")
		return NewSeeder(NewSQLSource(db), timeout), closeDB
	default:
		return static, noop
	}
}
