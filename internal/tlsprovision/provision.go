// Package tlsprovision obtains a TLS certificate via ACME (Let's
// Encrypt) at startup, for deployments that set tls.autoCert instead of
// static tls.cert/tls.key paths. Certificate issuance happens once,
// before the server starts listening — there is no background renewal
// loop, matching a broker service with a single, rarely-changing domain.
package tlsprovision

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/vaulth-auth/vaulth/pkg/letsencrypt"
)

// Config is the tls.autoCert block of the JSON configuration file.
type Config struct {
	Domain   string `json:"domain" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	CacheDir string `json:"cacheDir" validate:"required"`
}

// Obtain runs the ACME HTTP-01 flow for cfg.Domain and returns a
// *tls.Config serving the resulting certificate.
func Obtain(ctx context.Context, cfg Config) (*tls.Config, error) {
	gen, err := letsencrypt.NewGenerator([]string{cfg.Domain}, cfg.Email, cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("tlsprovision: build generator: %w", err)
	}

	result, err := gen.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("tlsprovision: obtain certificate: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(result.CertificatePath, result.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("tlsprovision: load issued certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
