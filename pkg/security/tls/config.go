package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"os"

	"mercator-hq/warden/pkg/config"
)

// ServerConfig builds the crypto/tls configuration of the API listener.
// Certificates come from getCert so that they can be rotated on disk.
func ServerConfig(cfg config.TLSConfig, getCert func(*tls.ClientHelloInfo) (*tls.Certificate, error)) (*tls.Config, error) {
	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is 1.2 or 1.3
	tlsConfig := &tls.Config{
		GetCertificate: getCert,
		MinVersion:     minVersion,
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadCertPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// NewListener wraps ln with TLS. The certificate files are re-read every
// reload interval until ctx is done.
func NewListener(ctx context.Context, ln net.Listener, cfg config.TLSConfig, logger *slog.Logger) (net.Listener, error) {
	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	if err := reloader.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	tlsConfig, err := ServerConfig(cfg, reloader.GetCertificateFunc())
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, tlsConfig), nil
}

// parseTLSVersion accepts "1.2" and "1.3". Older versions are refused.
func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "1.3", "":
		return tls.VersionTLS13, nil
	case "1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}

func loadCertPool(path string) (*x509.CertPool, error) {
	// #nosec G304 - CA path is operator configured.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates in client CA file %s", path)
	}
	return pool, nil
}
