package runtime

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	appconfig "github.com/saker-ai/realtime-assistant/internal/config"
)

const certValidity = 365 * 24 * time.Hour

// listen serves plain http when TLS is disabled, otherwise https with the
// configured key pair or a generated one.
func listen(server *http.Server, cfg appconfig.Config, logger *zap.Logger) error {
	if cfg.TLSDisable {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		return server.ListenAndServe()
	}

	certPath := filepath.Clean(cfg.TLSCertPath)
	keyPath := filepath.Clean(cfg.TLSKeyPath)
	var missing []string
	for _, p := range []string{certPath, keyPath} {
		if !fileExists(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		logger.Info("starting https server", zap.String("addr", cfg.HTTPAddr))
		return server.ListenAndServeTLS(certPath, keyPath)
	}
	if cfg.TLSRequired {
		logger.Warn("tls required but certs missing; using in-memory cert", zap.Strings("missing", missing))
	}

	cert, err := selfSignedCert(cfg.SystemConfig.Host, time.Now())
	if err != nil {
		return fmt.Errorf("generate tls cert: %w", err)
	}
	server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	logger.Info("starting https server with in-memory cert", zap.String("addr", cfg.HTTPAddr))
	return server.ListenAndServeTLS("", "")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// subjectAltNames collects localhost, the configured host and every local
// interface address.
type subjectAltNames struct {
	dns []string
	ips []net.IP
}

func (s *subjectAltNames) addHost(host string) {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return
	}
	if ip := net.ParseIP(host); ip != nil {
		s.addIP(ip)
		return
	}
	for _, existing := range s.dns {
		if existing == host {
			return
		}
	}
	s.dns = append(s.dns, host)
}

func (s *subjectAltNames) addIP(ip net.IP) {
	if ip == nil || ip.IsUnspecified() {
		return
	}
	for _, existing := range s.ips {
		if existing.Equal(ip) {
			return
		}
	}
	s.ips = append(s.ips, ip)
}

func localSubjectAltNames(host string) subjectAltNames {
	san := subjectAltNames{dns: []string{"localhost"}}
	san.addIP(net.ParseIP("127.0.0.1"))
	san.addIP(net.ParseIP("::1"))
	san.addHost(host)

	addrs, _ := net.InterfaceAddrs()
	for _, addr := range addrs {
		switch v := addr.(type) {
		case *net.IPNet:
			san.addIP(v.IP)
		case *net.IPAddr:
			san.addIP(v.IP)
		}
	}
	return san
}

func selfSignedCert(host string, now time.Time) (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	san := localSubjectAltNames(host)
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "realtime-assistant-local",
			Organization: []string{"realtime-assistant"},
		},
		NotBefore:   now.Add(-time.Minute),
		NotAfter:    now.Add(certValidity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    san.dns,
		IPAddresses: san.ips,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, nil
}
