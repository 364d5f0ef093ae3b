package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	NewRelic   NewRelicConfig
	WhatsApp   WhatsAppConfig
	Lark       LarkConfig
	Blitz      BlitzConfig
	Dispatch   DispatchConfig
	Projects   ProjectsConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// WhatsAppConfig holds the messaging gateway configuration
type WhatsAppConfig struct {
	BaseURL         string
	APIKey          string
	Session         string
	SendTimeout     time.Duration
	PresenceTimeout time.Duration
}

// LarkConfig holds the bitable API configuration
type LarkConfig struct {
	BaseURL         string
	AppID           string
	AppSecret       string
	AppToken        string
	ActiveTableID   string
	InactiveTableID string
	RefreshEvery    time.Duration
	RequestTimeout  time.Duration
}

// BlitzConfig holds the external dispatch service configuration
type BlitzConfig struct {
	BaseURL       string
	BatchTimeout  time.Duration
	CreateTimeout time.Duration
}

// DispatchConfig holds the outbound message dispatcher tuning
type DispatchConfig struct {
	BaseRetryDelay   time.Duration
	MessagesPerBatch int
	UnsafeMaxPending int
}

// ProjectsConfig holds the merchant-order project allow-list
type ProjectsConfig struct {
	Allowed []string
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/fleetops")
		viper.SetConfigName("config")
	}

	// Environment overrides, e.g. FLEETOPS_SERVER_PORT -> server.port
	viper.SetEnvPrefix("FLEETOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8095)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "fleetops")
	viper.SetDefault("database.password", "fleetops")
	viper.SetDefault("database.dbname", "fleetops_db")
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.queuename", "fleetops-audit")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "Fleetops Service Local")
	viper.SetDefault("newrelic.enabled", false)

	// WhatsApp gateway defaults
	viper.SetDefault("whatsapp.baseurl", "http://localhost:3000")
	viper.SetDefault("whatsapp.session", "default")
	viper.SetDefault("whatsapp.sendtimeout", "45s")
	viper.SetDefault("whatsapp.presencetimeout", "10s")

	// Lark bitable defaults
	viper.SetDefault("lark.baseurl", "https://open.larksuite.com")
	viper.SetDefault("lark.refreshevery", "90m")
	viper.SetDefault("lark.requesttimeout", "30s")

	// Blitz dispatch defaults
	viper.SetDefault("blitz.baseurl", "http://localhost:5000")
	viper.SetDefault("blitz.batchtimeout", "60s")
	viper.SetDefault("blitz.createtimeout", "180s")

	// Dispatcher defaults
	viper.SetDefault("dispatch.baseretrydelay", "5s")
	viper.SetDefault("dispatch.messagesperbatch", 20)
	viper.SetDefault("dispatch.unsafemaxpending", 50)

	// Merchant-order project allow-list
	viper.SetDefault("projects.allowed", []string{"pms"})
}

// Load loads the configuration
func Load() (*Config, error) {
	serverConfig := ServerConfig{
		Port: viper.GetInt("server.port"),
		Mode: viper.GetString("server.mode"),
	}

	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	}

	redisConfig := RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	serviceBusConfig := ServiceBusConfig{
		ConnectionString: viper.GetString("servicebus.connectionstring"),
		QueueName:        viper.GetString("servicebus.queuename"),
	}

	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	whatsAppConfig := WhatsAppConfig{
		BaseURL:         viper.GetString("whatsapp.baseurl"),
		APIKey:          viper.GetString("whatsapp.apikey"),
		Session:         viper.GetString("whatsapp.session"),
		SendTimeout:     viper.GetDuration("whatsapp.sendtimeout"),
		PresenceTimeout: viper.GetDuration("whatsapp.presencetimeout"),
	}

	larkConfig := LarkConfig{
		BaseURL:         viper.GetString("lark.baseurl"),
		AppID:           viper.GetString("lark.appid"),
		AppSecret:       viper.GetString("lark.appsecret"),
		AppToken:        viper.GetString("lark.apptoken"),
		ActiveTableID:   viper.GetString("lark.activetableid"),
		InactiveTableID: viper.GetString("lark.inactivetableid"),
		RefreshEvery:    viper.GetDuration("lark.refreshevery"),
		RequestTimeout:  viper.GetDuration("lark.requesttimeout"),
	}

	blitzConfig := BlitzConfig{
		BaseURL:       viper.GetString("blitz.baseurl"),
		BatchTimeout:  viper.GetDuration("blitz.batchtimeout"),
		CreateTimeout: viper.GetDuration("blitz.createtimeout"),
	}

	dispatchConfig := DispatchConfig{
		BaseRetryDelay:   viper.GetDuration("dispatch.baseretrydelay"),
		MessagesPerBatch: viper.GetInt("dispatch.messagesperbatch"),
		UnsafeMaxPending: viper.GetInt("dispatch.unsafemaxpending"),
	}

	projectsConfig := ProjectsConfig{
		Allowed: viper.GetStringSlice("projects.allowed"),
	}

	return &Config{
		Server:     serverConfig,
		Database:   dbConfig,
		Redis:      redisConfig,
		ServiceBus: serviceBusConfig,
		NewRelic:   newRelicConfig,
		WhatsApp:   whatsAppConfig,
		Lark:       larkConfig,
		Blitz:      blitzConfig,
		Dispatch:   dispatchConfig,
		Projects:   projectsConfig,
	}, nil
}
