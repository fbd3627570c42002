package wazuh

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// newTLSConfig builds the client TLS settings for the manager. A CA file
// implies verification against that CA only.
func newTLSConfig(config Config) (*tls.Config, error) {
	if config.CAFile == "" {
		// Managers usually run with self-signed certificates.
		return &tls.Config{InsecureSkipVerify: !config.VerifyTLS}, nil
	}

	ca, err := os.ReadFile(config.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("failed to append CA certificate")
	}
	return &tls.Config{RootCAs: caPool}, nil
}
