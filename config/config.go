package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Booking       BookingConfig       `yaml:"booking"`
	Stripe        StripeConfig        `yaml:"stripe"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Worker        WorkerConfig        `yaml:"worker"`
}

type HTTPConfig struct {
	Address        string `yaml:"address"`
	CheckInBaseURL string `yaml:"check_in_base_url"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	CancelWindowHours     int `yaml:"cancel_window_hours"`
	RescheduleWindowHours int `yaml:"reschedule_window_hours"`
	ScanLockTTLSeconds    int `yaml:"scan_lock_ttl_seconds"`
}

type StripeConfig struct {
	APIKey string `yaml:"api_key"`
}

type NotificationsConfig struct {
	EmailEnabled bool   `yaml:"email_enabled"`
	SMSEnabled   bool   `yaml:"sms_enabled"`
	FromEmail    string `yaml:"from_email"`
}

type WorkerConfig struct {
	ReminderSweepMinutes int `yaml:"reminder_sweep_minutes"`
	ReminderLeadHours    int `yaml:"reminder_lead_hours"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
