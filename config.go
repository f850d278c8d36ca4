package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/goccy/go-yaml"
)

const (
	DefaultHookTimeout = 5 * time.Second
	DefaultListenAddr  = ":8080"
)

type Config struct {
	Responder *ResponderConfig `yaml:"responder"`
	Crossing  *CrossingConfig  `yaml:"crossing"`
}

type ResponderConfig struct {
	Addr string `yaml:"addr"`
}

type CrossingConfig struct {
	Hooks       []*HookConfig `yaml:"hooks"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

type HookConfig struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`

	Command *CommandHookConfig `yaml:"command"`
	TCP     *TCPHookConfig     `yaml:"tcp"`
	HTTP    *HTTPHookConfig    `yaml:"http"`
	Console *ConsoleHookConfig `yaml:"console"`
}

func defaultConfig() *Config {
	return &Config{
		Responder: &ResponderConfig{
			Addr: DefaultListenAddr,
		},
		Crossing: &CrossingConfig{},
	}
}

// LoadConfig reads a YAML config from src. src may be a file path or a
// file, http, https or s3 URL. An empty src returns the defaults.
func LoadConfig(ctx context.Context, src string) (*Config, error) {
	config := defaultConfig()
	if src != "" {
		b, err := loadURL(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", src, err)
		}
		if err = yaml.Unmarshal(b, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", src, err)
		}
	}
	if config.Responder == nil {
		config.Responder = &ResponderConfig{}
	}
	if config.Responder.Addr == "" {
		config.Responder.Addr = DefaultListenAddr
	}
	if config.Crossing == nil {
		config.Crossing = &CrossingConfig{}
	}
	for i, h := range config.Crossing.Hooks {
		if h == nil {
			return nil, fmt.Errorf("hook %d is empty", i)
		}
		if h.Timeout == 0 {
			h.Timeout = DefaultHookTimeout
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("hook-%d", i)
		}
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("hook %d (%s): %w", i, h.Name, err)
		}
	}
	return config, nil
}

// Validate reports an error unless exactly one hook kind is set.
func (c *HookConfig) Validate() error {
	n := 0
	for _, set := range []bool{c.Command != nil, c.TCP != nil, c.HTTP != nil, c.Console != nil} {
		if set {
			n++
		}
	}
	switch n {
	case 0:
		return errors.New("one of command, tcp, http or console is required")
	case 1:
		return nil
	default:
		return errors.New("only one of command, tcp, http or console is allowed")
	}
}

func loadURL(ctx context.Context, s string) ([]byte, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", s, err)
	}
	switch u.Scheme {
	case "http", "https":
		return loadHTTP(ctx, u)
	case "file", "": // empty scheme is treated as file
		return os.ReadFile(u.Path)
	case "s3":
		return loadS3(ctx, u)
	default:
		return nil, fmt.Errorf("invalid url %s: scheme must be http, https, file, or s3", s)
	}
}

func loadHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http get failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func loadS3(ctx context.Context, u *url.URL) ([]byte, error) {
	awscfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	svc := s3.NewFromConfig(awscfg)
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	out, err := svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
