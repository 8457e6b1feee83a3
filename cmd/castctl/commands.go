package main

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/cast"
	"github.com/muurk/castcore/internal/discovery"
	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
	"github.com/muurk/castcore/internal/relay"
)

var scanWait int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover receivers on the local network",
	Long: `Browses mDNS for _googlecast._tcp services and lists every receiver
that answers. Found receivers are remembered so later commands can address
them by name.`,
	RunE: runScan,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show receiver volume and running apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			status, err := c.RequestStatus(ctx)
			if err != nil {
				return err
			}
			return printStatus(status)
		})
	},
}

var launchCmd = &cobra.Command{
	Use:   "launch [app-id]",
	Short: "Launch an app and join its session",
	Long: `Launches the given app on the receiver, or the default app from the
configuration file (the default media receiver, CC1AD845) when none is named.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := loadRegistry().Preferences.DefaultApp
		if len(args) == 1 {
			appID = args[0]
		}
		if appID == "" {
			appID = protocol.DefaultMediaReceiverAppID
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			app, err := c.Launch(ctx, appID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(app)
			}
			fmt.Printf("Launched %s (session %s)\n", app.DisplayName, app.SessionID)
			return nil
		})
	},
}

var joinCmd = &cobra.Command{
	Use:   "join [session-id]",
	Short: "Join a running app session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			var target *protocol.App
			if len(args) == 1 {
				target = &protocol.App{SessionID: args[0]}
			}
			app, err := c.Join(ctx, target)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(app)
			}
			fmt.Printf("Joined %s (session %s)\n", app.DisplayName, app.SessionID)
			return nil
		})
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit [session-id]",
	Short: "Stop a running app",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			var target *protocol.App
			if len(args) == 1 {
				target = &protocol.App{SessionID: args[0]}
			}
			if err := c.StopApp(ctx, target); err != nil {
				return err
			}
			fmt.Println("App stopped")
			return nil
		})
	},
}

var availabilityCmd = &cobra.Command{
	Use:   "availability <app-id>...",
	Short: "Check which apps the receiver can run",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			avail, err := c.GetAppAvailability(ctx, args...)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(avail)
			}
			for _, id := range args {
				state := "unavailable"
				if avail[id] {
					state = "available"
				}
				fmt.Printf("%-12s %s\n", id, state)
			}
			return nil
		})
	},
}

var infoAuth bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show receiver information, settings and groups",
	RunE:  runInfo,
}

func init() {
	scanCmd.Flags().IntVar(&scanWait, "wait", 0, "Seconds to browse (default from config, 5)")
	infoCmd.Flags().BoolVar(&infoAuth, "auth", false, "Also run a device authentication challenge")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(quitCmd)
	rootCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(infoCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	reg := loadRegistry()
	scanner := discovery.NewScanner()
	scanner.Timeout = reg.Preferences.DiscoverTimeoutDuration()
	if scanWait > 0 {
		scanner.Timeout = time.Duration(scanWait) * time.Second
	}

	fmt.Fprintf(os.Stderr, "Scanning for %s...\n", scanner.Timeout)
	devices, err := scanner.ScanForDevicesWithContext(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	for _, d := range devices {
		reg.RememberDevice(d.ID, d.Name, d.IP, d.Port)
	}
	if len(devices) > 0 {
		if err := reg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save config: %v\n", err)
		}
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	if jsonOutput {
		return printJSON(devices)
	}
	if len(devices) == 0 {
		fmt.Println("No receivers found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tADDRESS\tSTATUS\tID")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Model, d.Addr(), d.Status(), d.ID)
	}
	return w.Flush()
}

func printStatus(s *protocol.DeviceStatus) error {
	if jsonOutput {
		return printJSON(relay.NewStatus(s))
	}

	muted := ""
	if s.Muted {
		muted = " (muted)"
	}
	fmt.Printf("Volume: %.0f%%%s\n", s.Volume*100, muted)
	if len(s.Apps) == 0 {
		fmt.Println("Apps:   none")
		return nil
	}
	fmt.Println("Apps:")
	for _, app := range s.Apps {
		line := fmt.Sprintf("  %s [%s] session %s", app.DisplayName, app.AppID, app.SessionID)
		if app.StatusText != "" {
			line += " - " + app.StatusText
		}
		if app.IsIdleScreen {
			line += " (idle screen)"
		}
		fmt.Println(line)
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
		out := map[string]any{}

		info, err := c.RequestDeviceInfo(ctx)
		if err != nil {
			return err
		}
		out["info"] = info

		// Older firmware does not answer the setup namespace
		if settings, err := c.RequestDeviceConfig(ctx); err == nil {
			out["config"] = settings
		} else {
			logging.Warn("Device config unavailable", zap.Error(err))
		}

		zones, err := c.RequestMultizoneStatus(ctx)
		if err != nil {
			return err
		}
		out["multizone"] = zones

		if infoAuth {
			resp, err := c.AuthChallenge(ctx)
			if err != nil {
				return err
			}
			out["auth"] = describeAuth(resp)
		}

		if jsonOutput {
			return printJSON(out)
		}
		printInfo(info, out["config"], zones, out["auth"])
		return nil
	})
}

// authSummary is the printable part of a device auth response
type authSummary struct {
	Subject       string    `json:"subject,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	NotAfter      time.Time `json:"notAfter,omitempty"`
	Intermediates int       `json:"intermediates"`
	SignatureLen  int       `json:"signatureLength"`
	ParseError    string    `json:"parseError,omitempty"`
}

func describeAuth(resp *protocol.AuthResponse) authSummary {
	s := authSummary{
		Intermediates: len(resp.IntermediateCertificates),
		SignatureLen:  len(resp.Signature),
	}
	cert, err := x509.ParseCertificate(resp.ClientAuthCertificate)
	if err != nil {
		s.ParseError = err.Error()
		return s
	}
	s.Subject = cert.Subject.String()
	s.Issuer = cert.Issuer.String()
	s.NotAfter = cert.NotAfter
	return s
}

func printInfo(info protocol.Document, settings any, zones *protocol.MultizoneStatus, auth any) {
	for _, key := range []string{"name", "ssdp_udn", "build_info.cast_build_revision", "device_info.model_name", "device_info.manufacturer"} {
		if v, ok := info.String(key); ok {
			fmt.Printf("%-32s %s\n", key+":", v)
		}
	}

	if doc, ok := settings.(protocol.Document); ok {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("\nSettings:")
		for _, k := range keys {
			fmt.Printf("  %s: %v\n", k, doc[k])
		}
	}

	fmt.Println("\nGroup members:")
	if zones == nil || len(zones.Devices) == 0 {
		fmt.Println("  none")
	} else {
		for _, d := range zones.Devices {
			fmt.Printf("  %s (%s) volume %.0f%%\n", d.Name, d.DeviceID, d.Volume*100)
		}
	}

	if a, ok := auth.(authSummary); ok {
		fmt.Println("\nDevice authentication:")
		if a.ParseError != "" {
			fmt.Printf("  certificate: unreadable (%s)\n", a.ParseError)
		} else {
			fmt.Printf("  subject:  %s\n  issuer:   %s\n  expires:  %s\n",
				a.Subject, a.Issuer, a.NotAfter.Format(time.RFC3339))
		}
		fmt.Printf("  %d intermediate certificate(s), %d byte signature\n",
			a.Intermediates, a.SignatureLen)
	}
}
