package systemd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// UnitFilePath is where the orderprint unit is installed.
var UnitFilePath = "/etc/systemd/system/orderprint.service"

// UnitHashPath is where the install-time hash of the unit file is stored.
var UnitHashPath = "/var/lib/orderprint/unit-file.sha256"

// Install writes the unit and records its hash as the baseline for
// CheckUnitFile.
func Install(unit string) error {
	if err := os.WriteFile(UnitFilePath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}
	h := sha256.Sum256([]byte(unit))
	if err := os.WriteFile(UnitHashPath, []byte(hex.EncodeToString(h[:])+"\n"), 0600); err != nil {
		return fmt.Errorf("record unit hash: %w", err)
	}
	return nil
}

// CheckUnitFile reports whether the installed unit drifted from the hash
// recorded by Install. It returns "" when the unit matches, or when there
// is no unit or no baseline to compare against.
func CheckUnitFile() string {
	data, err := os.ReadFile(UnitFilePath)
	if err != nil {
		return ""
	}
	stored, err := os.ReadFile(UnitHashPath)
	if err != nil {
		return ""
	}
	expected := strings.TrimSpace(string(stored))
	if len(expected) != 64 {
		return ""
	}

	h := sha256.Sum256(data)
	actual := hex.EncodeToString(h[:])
	if actual == expected {
		return ""
	}
	return fmt.Sprintf("unit file %s modified since install (expected %s, got %s)",
		UnitFilePath, expected[:16], actual[:16])
}
