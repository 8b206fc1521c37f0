package enrich

import "github.com/mssola/useragent"

// Device summarizes a raw User-Agent header.
type Device struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

// ParseUserAgent summarizes a raw User-Agent string. An empty input yields
// an empty summary rather than an error.
func ParseUserAgent(raw string) Device {
	if raw == "" {
		return Device{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return Device{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}
