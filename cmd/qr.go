package cmd

import (
	"fmt"
	"os"

	"shollu-partner/internal/config"
	"shollu-partner/internal/qrscan"

	"github.com/spf13/cobra"
)

var (
	qrSize int
	qrOut  string
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Encode and decode member card QR codes",
}

var qrEncodeCmd = &cobra.Command{
	Use:   "encode CODE",
	Short: "Write a card code as a PNG QR image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initCLILogger()
		png, err := qrscan.EncodePNG(args[0], qrSize)
		if err != nil {
			fail("Failed to encode %q: %v", args[0], err)
		}
		out := qrOut
		if out == "" {
			out = args[0] + ".png"
		}
		if err := os.WriteFile(out, png, 0644); err != nil {
			fail("Failed to write %s: %v", out, err)
		}
		fmt.Printf("Wrote %s\n", out)
	},
}

var qrDecodeCmd = &cobra.Command{
	Use:   "decode IMAGE",
	Short: "Read the QR code in a PNG or JPEG image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initCLILogger()
		data, err := os.ReadFile(args[0])
		if err != nil {
			fail("Failed to read %s: %v", args[0], err)
		}
		code, err := qrscan.DecodeImage(data)
		if err != nil {
			fail("No QR code found in %s: %v", args[0], err)
		}
		fmt.Println(code)
	},
}

func init() {
	qrEncodeCmd.Flags().IntVar(&qrSize, "size", config.QR_IMAGE_SIZE, "image size in pixels")
	qrEncodeCmd.Flags().StringVarP(&qrOut, "output", "o", "", "output file (default CODE.png)")
	qrCmd.AddCommand(qrEncodeCmd, qrDecodeCmd)
	rootCmd.AddCommand(qrCmd)
}
