package sensor

// LookupManufacturer returns a human-readable name for a Bluetooth SIG company ID.
// See: https://www.bluetooth.com/specifications/assigned-numbers/
func LookupManufacturer(companyID uint16) string {
	return companyNames[companyID]
}

// Vendors commonly found on wearables and the radio modules inside
// research-grade sensors.
var companyNames = map[uint16]string{
	0x004C: "Apple",
	0x0006: "Microsoft",
	0x00E0: "Google",
	0x0075: "Samsung",
	0x0310: "Xiaomi",
	0x0157: "Huawei",
	0x038F: "Garmin",
	0x006B: "Polar",
	0x03DA: "Fitbit",
	0x0269: "Oura",
	0x0473: "Withings",
	0x0059: "Nordic",
	0x000D: "Texas Inst.",
	0x015D: "Espressif",
	0x000F: "Broadcom",
	0x000A: "Qualcomm",
	0x0002: "Intel",
	0x00AA: "Realtek",
}
