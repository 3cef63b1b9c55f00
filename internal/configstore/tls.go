package configstore

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/briarcliff/relaygate/internal/model"
)

// ValidateHTTPS checks invariant 4 (spec §3): an HTTPS ServiceConfig must
// carry a parseable certificate chain (at least one PEM block that decodes
// as an x509 certificate) and a parseable PKCS#8 private key. Used both
// when loading the YAML config file and by the (out-of-scope) control
// plane's POST /appConfig validation.
func ValidateHTTPS(cfg model.ServiceConfig) error {
	if cfg.ServerType != model.HTTPS {
		return nil
	}
	if err := validateCertChain(cfg.CertPEM); err != nil {
		return fmt.Errorf("configstore: cert_str: %w", err)
	}
	if err := validatePKCS8Key(cfg.KeyPEM); err != nil {
		return fmt.Errorf("configstore: key_str: %w", err)
	}
	return nil
}

func validateCertChain(certPEM string) error {
	if certPEM == "" {
		return fmt.Errorf("empty certificate")
	}
	rest := []byte(certPEM)
	count := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("no parseable certificate blocks")
	}
	return nil
}

func validatePKCS8Key(keyPEM string) error {
	if keyPEM == "" {
		return fmt.Errorf("empty key")
	}
	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return fmt.Errorf("no PEM block found")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		return fmt.Errorf("parse pkcs8 key: %w", err)
	}
	return nil
}
