package bootstrap

import (
	"github.com/eygwak/voice-quiz/internal/history"
	"github.com/eygwak/voice-quiz/internal/words"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideHistoryStore(db *gorm.DB) *history.Store {
	return history.NewStore(db)
}

func ProvideWordData(cfg *Config) (*words.Data, error) {
	return words.LoadFile(cfg.WordsFile)
}

func RunMigrations(historyStore *history.Store) error {
	return historyStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideHistoryStore,
		ProvideWordData,
	),
	fx.Invoke(RunMigrations),
)
