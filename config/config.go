package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// WhatsappConfig points at the external WhatsApp gateway (Evolution style API).
type WhatsappConfig struct {
	ApiURL string `yaml:"api_url" json:"api_url"`
	ApiKey string `yaml:"api_key" json:"api_key"`
}

type SmtpConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system" json:"system"`
	Web      WebConfig      `yaml:"web" json:"web"`
	Database DBConfig       `yaml:"database" json:"database"`
	Logger   LogConfig      `yaml:"logger" json:"logger"`
	Whatsapp WhatsappConfig `yaml:"whatsapp" json:"whatsapp"`
	Smtp     SmtpConfig     `yaml:"smtp" json:"smtp"`
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "zapcrm",
		Location: "America/Sao_Paulo",
		Workdir:  "/var/zapcrm",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1980,
		JwtSecret: "9b6bd6f8-0d0c-4e23-9bd2-0d035cc5bb13",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "zapcrm",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/zapcrm/zapcrm.log",
	},
	Whatsapp: WhatsappConfig{
		ApiURL: "http://127.0.0.1:8080",
	},
	Smtp: SmtpConfig{
		Host: "127.0.0.1",
		Port: 25,
		From: "no-reply@zapcrm.local",
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v == "true" || v == "1" || v == "on")
	}
}

// LoadConfig reads the YAML config file and applies environment overrides.
// A missing file yields the default config so the service can boot in dev.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			cfg = new(AppConfig)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		}
	}

	setEnvValue("ZAPCRM_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("ZAPCRM_SYSTEM_LOCATION", func(v string) { cfg.System.Location = v })
	setEnvBoolValue("ZAPCRM_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })

	setEnvValue("ZAPCRM_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvValue("ZAPCRM_WEB_JWT_SECRET", func(v string) { cfg.Web.JwtSecret = v })

	setEnvValue("ZAPCRM_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("ZAPCRM_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue("ZAPCRM_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("ZAPCRM_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("ZAPCRM_DB_PASSWD", func(v string) { cfg.Database.Passwd = v })

	setEnvValue("ZAPCRM_WHATSAPP_API_URL", func(v string) { cfg.Whatsapp.ApiURL = v })
	setEnvValue("ZAPCRM_WHATSAPP_API_KEY", func(v string) { cfg.Whatsapp.ApiKey = v })

	setEnvValue("ZAPCRM_SMTP_HOST", func(v string) { cfg.Smtp.Host = v })
	setEnvValue("ZAPCRM_SMTP_FROM", func(v string) { cfg.Smtp.From = v })

	return cfg
}
