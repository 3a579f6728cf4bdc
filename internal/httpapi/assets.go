package httpapi

import "encoding/base64"

// faviconPNGBase64 is a 1x1 transparent PNG, embedded directly since
// the packaged web assets (favicon included) are Non-goals of the
// core per spec §1 but /favicon.png/.ico must still resolve per
// spec §4.J rather than 404.
const faviconPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAAAAAA6fptVAAAACklEQVR4nGMAAQAABQABDQottAAAAABJRU5ErkJggg=="

var faviconPNG = mustDecodeBase64(faviconPNGBase64)

func mustDecodeBase64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
