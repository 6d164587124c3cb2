package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"
)

// writeCert writes a self-signed certificate for 127.0.0.1 valid between
// notBefore and notAfter and returns the cert and key paths.
func writeCert(t *testing.T, dir, cn string, notBefore, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certPath := filepath.Join(dir, cn+".crt")
	keyPath := filepath.Join(dir, cn+".key")
	writePEM(t, certPath, "CERTIFICATE", der)
	writePEM(t, keyPath, "EC PRIVATE KEY", keyDER)
	return certPath, keyPath
}

func writePEM(t *testing.T, path, typ string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestValidateCertificate(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	tests := []struct {
		name     string
		from, to time.Time
		wantErr  bool
		expiring bool
	}{
		{"valid", now.Add(-time.Hour), now.Add(365 * 24 * time.Hour), false, false},
		{"expiring", now.Add(-time.Hour), now.Add(24 * time.Hour), false, true},
		{"expired", now.Add(-48 * time.Hour), now.Add(-time.Hour), true, false},
		{"not yet valid", now.Add(time.Hour), now.Add(48 * time.Hour), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certPath, keyPath := writeCert(t, dir, "server", tt.from, tt.to)
			cert, err := tls.LoadX509KeyPair(certPath, keyPath)
			if err != nil {
				t.Fatal(err)
			}

			leaf, err := ValidateCertificate(&cert, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCertificate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && ExpiresSoon(leaf, now) != tt.expiring {
				t.Errorf("ExpiresSoon() = %v, want %v", !tt.expiring, tt.expiring)
			}
		})
	}

	if _, err := ValidateCertificate(&tls.Certificate{}, now); err == nil {
		t.Error("ValidateCertificate() accepted an empty chain")
	}
}

func TestServerConfig(t *testing.T) {
	dir := t.TempDir()
	caPath, _ := writeCert(t, dir, "clients", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	bogus := filepath.Join(dir, "bogus.pem")
	if err := os.WriteFile(bogus, []byte("not pem"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		cfg        config.TLSConfig
		wantErr    bool
		minVersion uint16
		mutual     bool
	}{
		{"tls 1.3", config.TLSConfig{MinVersion: "1.3"}, false, tls.VersionTLS13, false},
		{"tls 1.2", config.TLSConfig{MinVersion: "1.2"}, false, tls.VersionTLS12, false},
		{"default", config.TLSConfig{}, false, tls.VersionTLS13, false},
		{"tls 1.0", config.TLSConfig{MinVersion: "1.0"}, true, 0, false},
		{"mutual", config.TLSConfig{ClientCAFile: caPath}, false, tls.VersionTLS13, true},
		{"missing ca", config.TLSConfig{ClientCAFile: filepath.Join(dir, "none.pem")}, true, 0, false},
		{"bad ca", config.TLSConfig{ClientCAFile: bogus}, true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ServerConfig(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ServerConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.MinVersion != tt.minVersion {
				t.Errorf("MinVersion = %x, want %x", got.MinVersion, tt.minVersion)
			}
			if mutual := got.ClientAuth == tls.RequireAndVerifyClientCert; mutual != tt.mutual {
				t.Errorf("mutual TLS = %v, want %v", mutual, tt.mutual)
			}
		})
	}
}

func TestNewListener(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCert(t, dir, "server", time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour*90))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ln, err := NewListener(ctx, raw, config.TLSConfig{CertFile: certPath, KeyFile: keyPath, MinVersion: "1.3"}, nil)
	if err != nil {
		t.Fatalf("NewListener() failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("ok"))
	}()

	pemData, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatal(err)
	}
	roots := x509.NewCertPool()
	roots.AppendCertsFromPEM(pemData)

	conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS13})
	if err != nil {
		t.Fatalf("tls.Dial() failed: %v", err)
	}
	defer conn.Close()

	buf, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != "ok" {
		t.Errorf("read %q, want ok", buf)
	}
	if v := conn.ConnectionState().Version; v != tls.VersionTLS13 {
		t.Errorf("negotiated version %x, want TLS 1.3", v)
	}
}

func TestNewListener_MissingCertificate(t *testing.T) {
	raw, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()

	dir := t.TempDir()
	_, err = NewListener(context.Background(), raw, config.TLSConfig{
		CertFile: filepath.Join(dir, "none.crt"),
		KeyFile:  filepath.Join(dir, "none.key"),
	}, nil)
	if err == nil {
		t.Error("NewListener() accepted missing certificate files")
	}
}

func TestCertificateReloader(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certPath, keyPath := writeCert(t, dir, "server", now.Add(-time.Hour), now.Add(24*time.Hour*90))

	r := NewCertificateReloader(certPath, keyPath, time.Hour, nil)
	if _, err := r.GetCertificateFunc()(nil); err == nil {
		t.Error("GetCertificateFunc() returned a certificate before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	first := r.GetCertificate()
	if first == nil {
		t.Fatal("no certificate after Start")
	}
	if r.needsReload() {
		t.Error("needsReload() = true right after loading")
	}

	// Rotate the pair in place and move the modification times forward.
	rotated, rotatedKey := writeCert(t, t.TempDir(), "server", now.Add(-time.Hour), now.Add(24*time.Hour*180))
	for src, dst := range map[string]string{rotated: certPath, rotatedKey: keyPath} {
		data, err := os.ReadFile(src)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dst, data, 0600); err != nil {
			t.Fatal(err)
		}
		later := now.Add(time.Minute)
		if err := os.Chtimes(dst, later, later); err != nil {
			t.Fatal(err)
		}
	}

	if !r.needsReload() {
		t.Fatal("needsReload() = false after rotation")
	}
	if err := r.reload(); err != nil {
		t.Fatalf("reload() failed: %v", err)
	}
	if r.GetCertificate() == first {
		t.Error("certificate not replaced after reload")
	}

	// A broken rotation keeps the loaded certificate.
	if err := os.WriteFile(certPath, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	current := r.GetCertificate()
	if err := r.reload(); err == nil {
		t.Error("reload() accepted a corrupt certificate")
	}
	if r.GetCertificate() != current {
		t.Error("failed reload replaced the certificate")
	}
}
