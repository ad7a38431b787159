package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/security"
)

// generateTestCert creates a self-signed certificate for testing
func generateTestCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})

	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return certPEM, keyPEM
}

// setupTestFiles creates temporary cert/key files for testing
func setupTestFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()

	tmpDir := t.TempDir()

	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(tmpDir, "cert.pem")
	keyFile = filepath.Join(tmpDir, "key.pem")
	caFile = filepath.Join(tmpDir, "ca.pem")

	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0644)) // Use same cert as CA for testing

	return certFile, keyFile, caFile
}

func TestLoadServerTLSConfig(t *testing.T) {
	certFile, keyFile, _ := setupTestFiles(t)

	tests := []struct {
		name        string
		cfg         security.ServerTLSConfig
		wantNil     bool
		wantErr     bool
		wantMinVers uint16
	}{
		{
			name: "disabled",
			cfg: security.ServerTLSConfig{
				Enabled: false,
			},
			wantNil: true,
		},
		{
			name: "enabled with valid cert",
			cfg: security.ServerTLSConfig{
				Enabled:    true,
				CertFile:   certFile,
				KeyFile:    keyFile,
				MinVersion: "1.3",
			},
			wantMinVers: tls.VersionTLS13,
		},
		{
			name: "enabled with TLS 1.2",
			cfg: security.ServerTLSConfig{
				Enabled:    true,
				CertFile:   certFile,
				KeyFile:    keyFile,
				MinVersion: "1.2",
			},
			wantMinVers: tls.VersionTLS12,
		},
		{
			name: "enabled with missing cert file",
			cfg: security.ServerTLSConfig{
				Enabled:  true,
				CertFile: "/nonexistent/cert.pem",
				KeyFile:  keyFile,
			},
			wantErr: true,
		},
		{
			name: "enabled with missing key file",
			cfg: security.ServerTLSConfig{
				Enabled:  true,
				CertFile: certFile,
				KeyFile:  "/nonexistent/key.pem",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tlsConfig, err := LoadServerTLSConfig(tt.cfg)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, tlsConfig)
				return
			}
			require.NotNil(t, tlsConfig)
			assert.Len(t, tlsConfig.Certificates, 1)
			assert.Equal(t, tt.wantMinVers, tlsConfig.MinVersion)
		})
	}
}

func TestLoadClientTLSConfig(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)

	tests := []struct {
		name     string
		cfg      security.ClientTLSConfig
		wantErr  bool
		validate func(t *testing.T, tlsConfig *tls.Config)
	}{
		{
			name: "default config uses system pool",
			cfg:  security.ClientTLSConfig{},
			validate: func(t *testing.T, tlsConfig *tls.Config) {
				assert.NotNil(t, tlsConfig.RootCAs)
				assert.False(t, tlsConfig.InsecureSkipVerify)
				assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
			},
		},
		{
			name: "additional CA file",
			cfg: security.ClientTLSConfig{
				CAFiles: []string{caFile},
			},
			validate: func(t *testing.T, tlsConfig *tls.Config) {
				assert.NotNil(t, tlsConfig.RootCAs)
			},
		},
		{
			name: "insecure skip verify",
			cfg: security.ClientTLSConfig{
				InsecureSkipVerify: true,
			},
			validate: func(t *testing.T, tlsConfig *tls.Config) {
				assert.True(t, tlsConfig.InsecureSkipVerify)
			},
		},
		{
			name: "TLS 1.3 minimum",
			cfg: security.ClientTLSConfig{
				MinVersion: "1.3",
			},
			validate: func(t *testing.T, tlsConfig *tls.Config) {
				assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
			},
		},
		{
			name: "mTLS enabled with client certificate",
			cfg: security.ClientTLSConfig{
				MTLS: security.ClientMTLSConfig{
					Enabled:  true,
					CertFile: certFile,
					KeyFile:  keyFile,
				},
			},
			validate: func(t *testing.T, tlsConfig *tls.Config) {
				assert.Len(t, tlsConfig.Certificates, 1)
			},
		},
		{
			name: "mTLS disabled ignores cert files",
			cfg: security.ClientTLSConfig{
				MTLS: security.ClientMTLSConfig{
					Enabled:  false,
					CertFile: "/nonexistent/cert.pem",
					KeyFile:  "/nonexistent/key.pem",
				},
			},
			validate: func(t *testing.T, tlsConfig *tls.Config) {
				assert.Empty(t, tlsConfig.Certificates)
			},
		},
		{
			name: "missing CA file",
			cfg: security.ClientTLSConfig{
				CAFiles: []string{"/nonexistent/ca.pem"},
			},
			wantErr: true,
		},
		{
			name: "mTLS enabled with missing client cert",
			cfg: security.ClientTLSConfig{
				MTLS: security.ClientMTLSConfig{
					Enabled:  true,
					CertFile: "/nonexistent/cert.pem",
					KeyFile:  keyFile,
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tlsConfig, err := LoadClientTLSConfig(tt.cfg)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, tlsConfig)
			tt.validate(t, tlsConfig)
		})
	}
}

func TestLoadClientTLSConfigInvalidCAPEM(t *testing.T) {
	tmpDir := t.TempDir()
	badCA := filepath.Join(tmpDir, "bad-ca.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("not a certificate"), 0644))

	_, err := LoadClientTLSConfig(security.ClientTLSConfig{
		CAFiles: []string{badCA},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse CA certificate")
}

func TestParseTLSVersion(t *testing.T) {
	tests := []struct {
		version string
		want    uint16
	}{
		{"1.3", tls.VersionTLS13},
		{"1.2", tls.VersionTLS12},
		{"", tls.VersionTLS12},
		{"1.0", tls.VersionTLS12},
		{"invalid", tls.VersionTLS12},
	}

	for _, tt := range tests {
		t.Run("version_"+tt.version, func(t *testing.T) {
			got := parseTLSVersion(tt.version)
			assert.Equal(t, tt.want, got)
		})
	}
}
