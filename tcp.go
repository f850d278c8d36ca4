package trafficlight

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"regexp"
	"time"
)

var (
	DefaultTCPMaxBytes = 32 * 1024
)

type TCPHookConfig struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	Send               string `yaml:"send"`
	Quit               string `yaml:"quit"`
	MaxBytes           int    `yaml:"max_bytes"`
	ExpectPattern      string `yaml:"expect_pattern"`
	TLS                bool   `yaml:"tls"`
	NoCheckCertificate bool   `yaml:"no_check_certificate"`
}

// TCPHook writes a line to a TCP endpoint. Without a configured payload it
// sends the observed phase followed by a newline.
type TCPHook struct {
	Address            string
	Send               string
	Quit               string
	MaxBytes           int
	ExpectPattern      *regexp.Regexp
	Timeout            time.Duration
	TLS                bool
	NoCheckCertificate bool

	name string
}

func NewTCPHook(cfg *HookConfig) (*TCPHook, error) {
	h := &TCPHook{
		name:               cfg.Name,
		Address:            net.JoinHostPort(cfg.TCP.Host, cfg.TCP.Port),
		Send:               cfg.TCP.Send,
		Quit:               cfg.TCP.Quit,
		MaxBytes:           cfg.TCP.MaxBytes,
		Timeout:            cfg.Timeout,
		TLS:                cfg.TCP.TLS,
		NoCheckCertificate: cfg.TCP.NoCheckCertificate,
	}
	if cfg.TCP.Port == "" {
		return nil, fmt.Errorf("tcp port is required")
	}
	if cfg.TCP.ExpectPattern != "" {
		pt, err := regexp.Compile(cfg.TCP.ExpectPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid expect_pattern: %w", err)
		}
		h.ExpectPattern = pt
	}
	if h.MaxBytes == 0 {
		h.MaxBytes = DefaultTCPMaxBytes
	}
	return h, nil
}

func (h *TCPHook) Name() string {
	return h.name
}

func (h *TCPHook) Run(ctx context.Context) error {
	logger := newLoggerFromContext(ctx).With("name", h.name, "module", "tcphook", "address", h.Address)
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	conn, err := dialTCP(ctx, h.Address, h.TLS, h.NoCheckCertificate, h.Timeout)
	if err != nil {
		return fmt.Errorf("tcp connect failed: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(h.Timeout))
	logger.Debug("connected")

	payload := h.Send
	if payload == "" {
		payload = newNotification(ctx).Phase.String() + "\n"
	}
	if _, err := io.WriteString(conn, payload); err != nil {
		return fmt.Errorf("tcp send failed: %w", err)
	}
	logger.Debug("sent", "payload", payload)

	if h.ExpectPattern != nil {
		buf := make([]byte, h.MaxBytes)
		n, err := conn.Read(buf)
		if err != nil {
			return fmt.Errorf("tcp read failed: %w", err)
		}
		logger.Debug("read", "response", string(buf[:n]))
		if !h.ExpectPattern.Match(buf[:n]) {
			return fmt.Errorf("tcp unexpected response: %s", string(buf[:n]))
		}
	}
	if h.Quit != "" {
		io.WriteString(conn, h.Quit)
	}
	return nil
}

func dialTCP(ctx context.Context, address string, useTLS bool, noCheckCertificate bool, timeout time.Duration) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout}
	if useTLS {
		td := &tls.Dialer{
			NetDialer: d,
			Config: &tls.Config{
				InsecureSkipVerify: noCheckCertificate,
			},
		}
		return td.DialContext(ctx, "tcp", address)
	}
	return d.DialContext(ctx, "tcp", address)
}
