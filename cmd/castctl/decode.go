package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/muurk/castcore/internal/protocol"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode captured CASTV2 frames from a hex dump",
	Long: `Reads a hex dump of one or more length-prefixed frames (from a file or
stdin) and prints each envelope with its payload. Whitespace, colons and
"0x" prefixes are ignored, so dumps from packet captures or the debug log
can be pasted directly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open capture: %w", err)
			}
			defer f.Close()
			in = f
		}

		text, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read capture: %w", err)
		}
		data, err := parseHexDump(string(text))
		if err != nil {
			return err
		}
		return decodeFrames(cmd.OutOrStdout(), data)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

// parseHexDump strips separators and decodes the remaining hex digits
func parseHexDump(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "0x", "")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == ':' || r == ',' {
			continue
		}
		b.WriteRune(r)
	}
	data, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex dump: %w", err)
	}
	return data, nil
}

// decodeFrames prints every complete frame in data
func decodeFrames(w io.Writer, data []byte) error {
	reader := protocol.NewFrameReader()
	reader.Feed(data)

	count := 0
	for {
		frame, ok := reader.Next()
		if !ok {
			break
		}
		count++

		msg, err := protocol.DecodeMessage(frame)
		if err != nil {
			fmt.Fprintf(w, "#%d: undecodable frame (%d bytes): %v\n", count, len(frame), err)
			continue
		}
		fmt.Fprintf(w, "#%d: %s\n", count, msg)

		if msg.PayloadType == protocol.PayloadString {
			fmt.Fprintf(w, "    %s\n", msg.PayloadUTF8)
			continue
		}
		if msg.Namespace != protocol.NamespaceDeviceAuth {
			fmt.Fprintf(w, "    %s\n", hex.EncodeToString(msg.PayloadBinary))
			continue
		}
		auth, err := protocol.DecodeDeviceAuth(msg.PayloadBinary)
		if err != nil {
			fmt.Fprintf(w, "    device auth: %v\n", err)
			continue
		}
		switch {
		case auth.Challenge != nil:
			fmt.Fprintf(w, "    auth challenge: nonce %d bytes\n", len(auth.Challenge.SenderNonce))
		case auth.Response != nil:
			fmt.Fprintf(w, "    auth response: cert %d bytes, %d intermediates, signature %d bytes\n",
				len(auth.Response.ClientAuthCertificate), len(auth.Response.IntermediateCertificates),
				len(auth.Response.Signature))
		case auth.Error != nil:
			fmt.Fprintf(w, "    auth error: %s\n", auth.Error.ErrorType)
		}
	}

	if err := reader.Err(); err != nil {
		return fmt.Errorf("after %d frame(s): %w", count, err)
	}
	if n := reader.Buffered(); n > 0 {
		fmt.Fprintf(w, "%d trailing byte(s) do not form a complete frame\n", n)
	}
	return nil
}
