package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/zapcrmio/zapcrm/config"
	"github.com/zapcrmio/zapcrm/internal/billing"
	"github.com/zapcrmio/zapcrm/internal/campaigns"
	"github.com/zapcrmio/zapcrm/internal/docgen"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/importer"
	"github.com/zapcrmio/zapcrm/internal/kanban"
	"github.com/zapcrmio/zapcrm/internal/mailer"
	"github.com/zapcrmio/zapcrm/internal/ordering"
	"github.com/zapcrmio/zapcrm/internal/remarketing"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"github.com/zapcrmio/zapcrm/internal/whatsgw"
	"github.com/zapcrmio/zapcrm/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

const webhookTimeout = 15 * time.Second

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	configManager *ConfigManager

	notifier    *webhook.Notifier
	kanban      *kanban.Service
	ordering    *ordering.Service
	billing     *billing.Service
	remarketing *remarketing.Service
	dispatcher  *campaigns.Dispatcher
	importer    *importer.Importer
	docgen      *docgen.Generator
	whatsClient *whatsgw.Client
	mailer      *mailer.Mailer
}

// Ensure Application implements all interfaces
var (
	_ DBProvider            = (*Application)(nil)
	_ ConfigProvider        = (*Application)(nil)
	_ SettingsProvider      = (*Application)(nil)
	_ SchedulerProvider     = (*Application)(nil)
	_ ConfigManagerProvider = (*Application)(nil)
	_ AppContext            = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	// wait for database initialization to complete
	go func() {
		time.Sleep(3 * time.Second)
		a.checkSuper()
		a.checkSettings()
		a.checkPlans()
		a.checkSchedulers()
	}()

	a.configManager = NewConfigManager(a)
	a.initServices()
	a.initEvents()
	a.initJob()
}

func (a *Application) initServices() {
	a.notifier = webhook.NewNotifier(a.gormDB, webhook.NewClient(webhookTimeout))
	a.kanban = kanban.NewService(a.gormDB)
	a.ordering = ordering.NewService(a.gormDB)
	a.billing = billing.NewService(a.gormDB, a.notifier)
	a.remarketing = remarketing.NewService(a.gormDB)
	a.importer = importer.NewImporter(a.gormDB, a.kanban)
	a.whatsClient = whatsgw.NewClient(a.appConfig.Whatsapp)
	a.mailer = mailer.New(a.appConfig.Smtp)

	dispatcher, err := campaigns.NewDispatcher(a.gormDB, a.notifier,
		a.configManager.GetInt("campaign", "dispatch_pool_size"))
	if err != nil {
		zap.S().Errorf("campaign dispatcher init failed: %v", err)
	}
	a.dispatcher = dispatcher

	a.docgen = docgen.NewGenerator(docgen.CompanyHeader{
		Name:    a.GetSettingsStringValue("company", "name"),
		TaxId:   a.GetSettingsStringValue("company", "tax_id"),
		Address: a.GetSettingsStringValue("company", "address"),
		Phone:   a.GetSettingsStringValue("company", "phone"),
	})
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Notifier() *webhook.Notifier       { return a.notifier }
func (a *Application) Kanban() *kanban.Service           { return a.kanban }
func (a *Application) Ordering() *ordering.Service       { return a.ordering }
func (a *Application) Billing() *billing.Service         { return a.billing }
func (a *Application) Remarketing() *remarketing.Service { return a.remarketing }
func (a *Application) Dispatcher() *campaigns.Dispatcher { return a.dispatcher }
func (a *Application) Importer() *importer.Importer      { return a.importer }
func (a *Application) Docgen() *docgen.Generator         { return a.docgen }
func (a *Application) WhatsClient() *whatsgw.Client      { return a.whatsClient }
func (a *Application) Mailer() *mailer.Mailer            { return a.mailer }

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.configManager.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.configManager.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.configManager.GetBool(category, key)
}

// StartBackgroundJobs starts the scheduler service loop
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	a.StartSchedulerService(ctx)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Release()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
