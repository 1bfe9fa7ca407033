package conf

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var (
	Path string
	Port int
)

func LoadEnv(cli *cli.Context) error {
	path := cli.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = homeDir + "/.collab"
	}

	Path = path
	Port = cli.Int("port")
	return nil
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path + "/config.yaml")
	if err != nil {
		f, err = os.Open(path + "/config.example.yaml")
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	r := NewEnvExpandedReader(f)

	var cfg *Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.Collections.applyDefaults()

	if cfg.Sync.SaveDelay == 0 {
		cfg.Sync = DefaultSync()
	}

	if cfg.AI.Endpoint == "" {
		cfg.AI.Endpoint = DefaultAIEndpoint
		cfg.AI.Timeout = 30 * time.Second
	}

	return cfg, nil
}

type Config struct {
	Name        string      `yaml:"name"`
	BaseURL     string      `yaml:"baseUrl"`
	JWT         JWT         `yaml:"jwt"`
	Transports  Transports  `yaml:"transports"`
	Persistence Persistence `yaml:"persistence"`
	EventBus    EventBus    `yaml:"eventBus"`
	Collections Collections `yaml:"collections"`
	Sync        Sync        `yaml:"sync"`
	AI          AI          `yaml:"ai"`
}

type JWT struct {
	Secret []byte
	Leeway time.Duration
}

func (cfg *JWT) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Secret string `yaml:"secret"`
		Leeway string `yaml:"leeway"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	cfg.Secret = []byte(raw.Secret)

	if raw.Leeway == "" {
		cfg.Leeway = 10 * time.Second
	} else {
		leeway, err := time.ParseDuration(raw.Leeway)
		if err != nil {
			return err
		}

		cfg.Leeway = leeway
	}

	return nil
}

type Transports struct {
	HTTP RegisterHTTP `yaml:"http"`
}

type RegisterHTTP struct {
	Enabled  bool
	Internal Instance

	// host patterns allowed to open event streams from a browser; the
	// same host is always allowed
	AllowedOrigins []string
}

func (r *RegisterHTTP) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled        bool     `yaml:"enabled"`
		Internal       Instance `yaml:"internal"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.Enabled = raw.Enabled
	r.Internal = raw.Internal
	r.AllowedOrigins = raw.AllowedOrigins

	// default
	if r.Internal.Scheme == "" {
		r.Internal.Scheme = "http"
	}

	if r.Internal.Host == "" {
		r.Internal.Host = "localhost"
	}

	if r.Internal.Port == 0 {
		r.Internal.Port = Port
	}

	if r.Internal.Port == 0 {
		r.Internal.Port = 8080
	}

	return nil
}

type Instance struct {
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

func (i *Instance) URL() string {
	return i.Scheme + "://" + i.Host + ":" + strconv.Itoa(i.Port)
}

func (i *Instance) Addr() string {
	return ":" + strconv.Itoa(i.Port)
}

type PersistenceDriver int

const (
	SQLite PersistenceDriver = iota
	BadgerDB
	InMem
)

func ParsePersistenceDriver(driver string) (PersistenceDriver, error) {
	switch driver {
	case "sqlite":
		return SQLite, nil
	case "badger":
		return BadgerDB, nil
	case "inmem", "":
		return InMem, nil
	default:
		return -1, errors.New("driver not supported")
	}
}

func (driver PersistenceDriver) String() string {
	switch driver {
	case SQLite:
		return "sqlite"
	case BadgerDB:
		return "badger"
	case InMem:
		return "inmem"
	default:
		return "unknown"
	}
}

type Persistence struct {
	Driver PersistenceDriver
	Name   string
	Host   string
	InMem  bool
}

func (p *Persistence) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Driver string `yaml:"driver"`
		Name   string `yaml:"name"`
		Host   string `yaml:"host"`
		InMem  bool   `yaml:"inmem"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	driver, err := ParsePersistenceDriver(raw.Driver)
	if err != nil {
		return err
	}

	p.Driver = driver
	p.Name = raw.Name
	if p.Name == "" {
		p.Name = "collab"
	}

	p.Host = raw.Host
	if raw.Host == "" {
		p.Host = Path
	}

	p.InMem = raw.InMem

	return nil
}

type TransportProvider int

const (
	NATS TransportProvider = iota
	Redis
	InMemBus
)

func ParseTransportProvider(provider string) (TransportProvider, error) {
	switch provider {
	case "nats":
		return NATS, nil
	case "redis":
		return Redis, nil
	case "inmem", "":
		return InMemBus, nil
	default:
		return -1, errors.New("provider not supported")
	}
}

func (p TransportProvider) String() string {
	switch p {
	case NATS:
		return "nats"
	case Redis:
		return "redis"
	case InMemBus:
		return "inmem"
	default:
		return ""
	}
}

type EventBus struct {
	Provider TransportProvider
	URL      string
	Password string
	DB       int
}

func (e *EventBus) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Provider string `yaml:"provider"`
		URL      string `yaml:"url"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	provider, err := ParseTransportProvider(raw.Provider)
	if err != nil {
		return err
	}

	e.Provider = provider
	e.URL = raw.URL
	e.Password = raw.Password
	e.DB = raw.DB

	return nil
}

// Collections names the document collections each entity lives in.
type Collections struct {
	Workspaces    string `yaml:"workspaces"`
	Sessions      string `yaml:"sessions"`
	Messages      string `yaml:"messages"`
	MergeRequests string `yaml:"mergeRequests"`
}

func DefaultCollections() Collections {
	return Collections{
		Workspaces:    "workspaces",
		Sessions:      "sessions",
		Messages:      "messages",
		MergeRequests: "merge_requests",
	}
}

func (c *Collections) applyDefaults() {
	def := DefaultCollections()

	if c.Workspaces == "" {
		c.Workspaces = def.Workspaces
	}

	if c.Sessions == "" {
		c.Sessions = def.Sessions
	}

	if c.Messages == "" {
		c.Messages = def.Messages
	}

	if c.MergeRequests == "" {
		c.MergeRequests = def.MergeRequests
	}
}

type Sync struct {
	SaveDelay       time.Duration
	SuggestDelay    time.Duration
	CursorBroadcast bool
	MaxRetries      int
}

func DefaultSync() Sync {
	return Sync{
		SaveDelay:    1000 * time.Millisecond,
		SuggestDelay: 1500 * time.Millisecond,
		MaxRetries:   3,
	}
}

func (s *Sync) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SaveDelay       string `yaml:"saveDelay"`
		SuggestDelay    string `yaml:"suggestDelay"`
		CursorBroadcast bool   `yaml:"cursorBroadcast"`
		MaxRetries      int    `yaml:"maxRetries"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	*s = DefaultSync()
	s.CursorBroadcast = raw.CursorBroadcast

	if raw.SaveDelay != "" {
		delay, err := time.ParseDuration(raw.SaveDelay)
		if err != nil {
			return err
		}

		s.SaveDelay = delay
	}

	if raw.SuggestDelay != "" {
		delay, err := time.ParseDuration(raw.SuggestDelay)
		if err != nil {
			return err
		}

		s.SuggestDelay = delay
	}

	if raw.MaxRetries > 0 {
		s.MaxRetries = raw.MaxRetries
	}

	return nil
}

const DefaultAIEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

type AI struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

func (cfg *AI) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"apiKey"`
		Timeout  string `yaml:"timeout"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	cfg.Endpoint = raw.Endpoint
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultAIEndpoint
	}

	cfg.APIKey = raw.APIKey

	if raw.Timeout == "" {
		cfg.Timeout = 30 * time.Second
	} else {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return err
		}

		cfg.Timeout = timeout
	}

	return nil
}
