// Package tlsutil builds the *tls.Config shared by the SMTP and POP3
// implicit-TLS listeners, loading a certificate from disk or generating a
// self-signed fallback.
package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/config"
)

// MinVersion is the minimum negotiated TLS version.
const MinVersion = tls.VersionTLS12

const (
	rsaKeyBits        = 2048
	certValidityHours = 365 * 24
)

// Build returns a *tls.Config for implicit-TLS listeners. It loads the
// certificate/key named in cfg if both paths are set and readable; failing
// that it generates a self-signed certificate on the first handshake, for
// the client's SNI name (cfg.Hostname when none is sent), and reuses that
// one certificate for every later handshake whatever name is requested.
func Build(cfg config.TLSConfig) (*tls.Config, error) {
	var cached *tls.Certificate

	loadOrGenerate := func(hostname string) (*tls.Certificate, error) {
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			if cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile); err == nil {
				return &cert, nil
			}
		}
		if cached != nil {
			return cached, nil
		}
		cert, err := GenerateSelfSigned(hostname)
		if err != nil {
			return nil, err
		}
		cached = &cert
		return cached, nil
	}

	return &tls.Config{
		MinVersion: MinVersion,
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			hostname := hello.ServerName
			if hostname == "" {
				hostname = cfg.Hostname
			}
			return loadOrGenerate(hostname)
		},
	}, nil
}

// GenerateSelfSigned creates an RSA-2048 self-signed certificate valid for
// 365 days with SAN "DNS:localhost, IP:127.0.0.1" plus the requested
// hostname.
func GenerateSelfSigned(hostname string) (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating serial number: %w", err)
	}

	dnsNames := []string{"localhost"}
	if hostname != "" && hostname != "localhost" {
		dnsNames = append(dnsNames, hostname)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"maild"},
			CommonName:   hostname,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(certValidityHours * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("creating certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        &template,
	}, nil
}
