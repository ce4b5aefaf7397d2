package model

import "strings"

// DeviceIdentity identifies a device by its catalog-canonical manufacturer
// and model strings. Replace the whole value to change it; fields are never
// edited independently.
type DeviceIdentity struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

// DisplayName renders "Manufacturer Model" for user-facing messages,
// degrading to the model alone when the manufacturer is unknown.
func (d DeviceIdentity) DisplayName() string {
	return strings.TrimSpace(d.Manufacturer + " " + d.Model)
}

// ManualRecord maps a device to its manual document. LocalPath is
// authoritative once the file exists on disk; RemoteURL is the download
// source for lazy resolution.
type ManualRecord struct {
	Device    DeviceIdentity `json:"device"`
	LocalPath string         `json:"local_path"`
	RemoteURL string         `json:"remote_url,omitempty"`
}

// DeviceType categorizes catalog entries for the devices-by-type listing.
type DeviceType string

const (
	DeviceTypeAnesthesiaMachine DeviceType = "anesthesia_machine"
	DeviceTypeInfusionPump      DeviceType = "infusion_pump"
	DeviceTypePatientMonitor    DeviceType = "patient_monitor"
	DeviceTypeOther             DeviceType = "other"
)

// CatalogEntry is one device as listed by type, with manual availability.
type CatalogEntry struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	HasManual    bool   `json:"has_manual"`
}
