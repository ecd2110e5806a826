package domain

// MFASetup is returned exactly once from setup; the secret and backup code
// plaintexts are not retrievable afterwards.
type MFASetup struct {
	Secret          string   `json:"secret"`           // base32 TOTP secret
	ProvisioningURI string   `json:"provisioning_uri"` // otpauth:// URL for QR code generation
	BackupCodes     []string `json:"backup_codes"`
}

// MFARequired is returned from login when password validation succeeded but
// a second factor is still outstanding.
type MFARequired struct {
	MFARequired    bool     `json:"mfa_required"` // always true
	ElevationToken string   `json:"elevation_token"`
	ExpiresIn      int64    `json:"expires_in"` // seconds
	Methods        []string `json:"methods"`    // e.g. ["totp", "backup_code"]
}
