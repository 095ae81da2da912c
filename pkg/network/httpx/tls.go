package httpx

import "golang.org/x/crypto/acme/autocert"

type TLS struct {
	CertManager *autocert.Manager
}

// NewTLSConfig makes an ACME cert manager with a local cert cache.
// An empty host allows any domain the challenge succeeds for.
func NewTLSConfig(host string) *TLS {
	t := TLS{
		CertManager: &autocert.Manager{
			Prompt: autocert.AcceptTOS,
			Cache:  autocert.DirCache("var/acme"),
		},
	}
	if host != "" {
		t.CertManager.HostPolicy = autocert.HostWhitelist(host)
	}
	return &t
}
