package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostlayer/internal/state"
)

func TestBuildConnectLink(t *testing.T) {
	t.Run("should append the username as a fragment", func(t *testing.T) {
		node := state.ServerNode{ConnectLink: "vless://uuid@cdn.example.com:443"}
		link := BuildConnectLink(node, "@alice")

		assert.Equal(t, "vless://uuid@cdn.example.com:443#@alice", link)
	})
}

func TestQRCodeGenerator(t *testing.T) {
	t.Run("should generate PNG data", func(t *testing.T) {
		qr := NewQRCodeGenerator()
		png, err := qr.GeneratePNG("vless://uuid@cdn.example.com:443#@alice")

		require.NoError(t, err)
		assert.NotEmpty(t, png)
		// PNG magic bytes.
		assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, png[:4])
	})

	t.Run("should generate a data URI", func(t *testing.T) {
		qr := NewQRCodeGenerator()
		uri, err := qr.GenerateBase64("vless://uuid@cdn.example.com:443")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	})

	t.Run("should fail on empty content", func(t *testing.T) {
		qr := NewQRCodeGenerator()
		_, err := qr.GeneratePNG("")

		assert.Error(t, err)
	})
}
