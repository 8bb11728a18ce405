package app

import (
	"github.com/robfig/cron/v3"
	"github.com/zapcrmio/zapcrm/config"
	"github.com/zapcrmio/zapcrm/internal/mailer"
	"github.com/zapcrmio/zapcrm/internal/whatsgw"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ConfigManagerProvider provides configuration manager access
type ConfigManagerProvider interface {
	ConfigMgr() *ConfigManager
}

// AppContext combines all provider interfaces for full application context.
// Handlers should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	ConfigManagerProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// RunSchedulerNow triggers a scheduler execution immediately by ID
	RunSchedulerNow(id int64) error
	// RunInstanceRefresh probes a single WhatsApp instance's connection
	// state on the gateway and persists the result
	RunInstanceRefresh(instanceId int64) error
	// WhatsClient exposes the WhatsApp gateway client
	WhatsClient() *whatsgw.Client
	// Mailer exposes the SMTP mailer
	Mailer() *mailer.Mailer
}
