// Package utils provides helper functions shared by the presentation
// layer, currently QR code rendering for client connect links.
package utils

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"ghostlayer/internal/state"
)

// QRCodeGenerator renders connect links as QR codes so users can import
// them on mobile clients.
type QRCodeGenerator struct {
	Size          int                  // Pixel dimensions of the generated image
	RecoveryLevel qrcode.RecoveryLevel // Error correction level
}

// NewQRCodeGenerator creates a generator with defaults suited to mobile
// scanning.
func NewQRCodeGenerator() *QRCodeGenerator {
	return &QRCodeGenerator{
		Size:          256,
		RecoveryLevel: qrcode.Medium,
	}
}

// BuildConnectLink returns the per-user connection descriptor: the
// node's opaque connect link with the username appended as a fragment,
// so client apps label the imported profile.
func BuildConnectLink(node state.ServerNode, username string) string {
	return fmt.Sprintf("%s#%s", node.ConnectLink, username)
}

// GeneratePNG renders the content as PNG image data.
func (qr *QRCodeGenerator) GeneratePNG(content string) ([]byte, error) {
	pngData, err := qrcode.Encode(content, qr.RecoveryLevel, qr.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return pngData, nil
}

// GenerateBase64 renders the content as a base64 data URI, useful for
// embedding directly in JSON responses.
func (qr *QRCodeGenerator) GenerateBase64(content string) (string, error) {
	pngData, err := qr.GeneratePNG(content)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG for base64 encoding: %w", err)
	}
	return fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(pngData)), nil
}
