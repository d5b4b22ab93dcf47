package spapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/oauth2"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/paths"
)

// lwaTokenURL is Amazon's Login-with-Amazon token endpoint used by the
// refresh-token grant.
const lwaTokenURL = "https://api.amazon.com/auth/o2/token"

// Credentials are the LWA secrets for a registered SP-API application
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RefreshToken string `json:"refreshToken"`
}

// sealedEnvelope is the on-disk form of credentials.json: the JSON
// payload sealed with nacl/secretbox under a local key file.
type sealedEnvelope struct {
	Version int    `json:"version"`
	Nonce   string `json:"nonce"`
	Sealed  string `json:"sealed"`
}

// TokenSource returns a refreshing LWA token source. Access tokens
// are cached and renewed automatically before expiry.
func (c *Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  lwaTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
}

// Validate checks that all three LWA fields are present
func (c *Credentials) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
		return sqperrors.NewSqpError(
			sqperrors.AuthError,
			"credentials need client id, client secret and refresh token",
			nil, nil,
		)
	}
	return nil
}

// SaveCredentials seals the credentials to .sqptrack/credentials.json.
// The sealing key is created on first use and never leaves the state
// directory.
func SaveCredentials(root string, creds *Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := paths.EnsureStateDir(root); err != nil {
		return err
	}

	key, err := loadOrCreateKey(root)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nil, payload, &nonce, key)

	envelope := sealedEnvelope{
		Version: 1,
		Nonce:   base64.StdEncoding.EncodeToString(nonce[:]),
		Sealed:  base64.StdEncoding.EncodeToString(sealed),
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.CredentialsPath(root), data, 0o600)
}

// LoadCredentials opens the sealed credentials file
func LoadCredentials(root string) (*Credentials, error) {
	data, err := os.ReadFile(paths.CredentialsPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sqperrors.NewSqpError(
				sqperrors.AuthError,
				"no SP-API credentials configured",
				nil,
				[]sqperrors.FixAction{
					{Type: sqperrors.RunCommand, Description: "Store your LWA credentials", Command: "sqptrack auth set"},
				},
			)
		}
		return nil, err
	}

	var envelope sealedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.AuthError, "credentials file is corrupt", err, nil,
		)
	}

	key, err := readKey(root)
	if err != nil {
		return nil, err
	}

	nonceBytes, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, sqperrors.NewSqpError(
			sqperrors.AuthError, "credentials file is corrupt", err, nil,
		)
	}
	sealed, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.AuthError, "credentials file is corrupt", err, nil,
		)
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	payload, ok := secretbox.Open(nil, sealed, &nonce, key)
	if !ok {
		return nil, sqperrors.NewSqpError(
			sqperrors.AuthError,
			"cannot unseal credentials; the key file may have been replaced",
			nil, nil,
		)
	}

	var creds Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// HasCredentials reports whether sealed credentials exist
func HasCredentials(root string) bool {
	_, err := os.Stat(paths.CredentialsPath(root))
	return err == nil
}

// Mask renders a secret for display: first four characters, the rest
// starred.
func Mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

func loadOrCreateKey(root string) (*[32]byte, error) {
	key, err := readKey(root)
	if err == nil {
		return key, nil
	}
	if !sqperrors.IsCode(err, sqperrors.AuthError) {
		return nil, err
	}

	var fresh [32]byte
	if _, err := rand.Read(fresh[:]); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	encoded := hex.EncodeToString(fresh[:])
	if err := os.WriteFile(paths.CredentialsKeyPath(root), []byte(encoded+"\n"), 0o600); err != nil {
		return nil, err
	}
	return &fresh, nil
}

func readKey(root string) (*[32]byte, error) {
	data, err := os.ReadFile(paths.CredentialsKeyPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sqperrors.NewSqpError(
				sqperrors.AuthError, "sealing key not found", err, nil,
			)
		}
		return nil, err
	}
	decoded, err := hex.DecodeString(string(trimNewline(data)))
	if err != nil || len(decoded) != 32 {
		return nil, sqperrors.NewSqpError(
			sqperrors.AuthError, "sealing key is corrupt", err, nil,
		)
	}
	var key [32]byte
	copy(key[:], decoded)
	return &key, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
