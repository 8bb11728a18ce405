package app

import (
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configCacheTTL = 30 * time.Second

// ConfigManager reads sys_config values with a short-lived in-memory cache.
// Values are stored as strings and cast on access.
type ConfigManager struct {
	app      *Application
	mu       sync.RWMutex
	cache    map[string]string
	loadedAt time.Time
}

func NewConfigManager(app *Application) *ConfigManager {
	return &ConfigManager{app: app, cache: map[string]string{}}
}

func (m *ConfigManager) reloadLocked() {
	var configs []domain.SysConfig
	if err := m.app.gormDB.Find(&configs).Error; err != nil {
		zap.S().Errorf("load sys_config failed: %v", err)
		return
	}
	m.cache = make(map[string]string, len(configs))
	for _, c := range configs {
		m.cache[c.Type+"."+c.Name] = c.Value
	}
	m.loadedAt = time.Now()
}

func (m *ConfigManager) getValue(category, name string) string {
	m.mu.RLock()
	fresh := time.Since(m.loadedAt) < configCacheTTL
	v, ok := m.cache[category+"."+name]
	m.mu.RUnlock()
	if fresh && ok {
		return v
	}

	m.mu.Lock()
	if time.Since(m.loadedAt) >= configCacheTTL {
		m.reloadLocked()
	}
	v = m.cache[category+"."+name]
	m.mu.Unlock()
	return v
}

func (m *ConfigManager) GetString(category, name string) string {
	return m.getValue(category, name)
}

func (m *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(m.getValue(category, name))
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.getValue(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.getValue(category, name))
}

func (m *ConfigManager) GetFloat64(category, name string) float64 {
	return cast.ToFloat64(m.getValue(category, name))
}

// SetValue upserts a configuration value and invalidates the cache.
func (m *ConfigManager) SetValue(category, name, value string) error {
	var cfg domain.SysConfig
	err := m.app.gormDB.Where("type = ? and name = ?", category, name).First(&cfg).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		err = m.app.gormDB.Create(&domain.SysConfig{
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	case err == nil:
		err = m.app.gormDB.Model(&domain.SysConfig{}).
			Where("id = ?", cfg.ID).Update("value", value).Error
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.cache[category+"."+name] = value
	m.mu.Unlock()
	return nil
}
