package utils

import (
	"fmt"
	"net/url"
)

// QRCodeURL encodes a repair identifier into the external code-rendering
// endpoint.  No rendering happens locally; clients fetch the image.
func QRCodeURL(base, repairID string) string {
	return fmt.Sprintf("%s?text=%s&size=200", base, url.QueryEscape(repairID))
}

// TrackingURL builds the customer-facing tracking link for a repair.
func TrackingURL(base, repairID string) string {
	return fmt.Sprintf("%s?id=%s", base, url.QueryEscape(repairID))
}
