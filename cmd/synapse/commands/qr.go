package commands

import (
	"io"

	"github.com/katzenpost/qrterminal"

	"synapse/internal/codec"
)

// renderQR draws the compacted envelope as a terminal QR code.
func renderQR(w io.Writer, envelope string) error {
	compact, err := codec.Compact(envelope)
	if err != nil {
		return err
	}
	qrterminal.GenerateWithConfig(compact, qrterminal.Config{
		Level:      qrterminal.L,
		Writer:     w,
		HalfBlocks: true,
		QuietZone:  1,
	})
	return nil
}
