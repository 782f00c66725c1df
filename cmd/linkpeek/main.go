// Package main implements linkpeek, a link previewer for the terminal and a
// local bridge for the browser extension.
//
// In the terminal it renders a page and opens linked pages in floating
// preview windows when a trigger gesture fires: dragging a link, hovering,
// long-pressing or clicking with a modifier held.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/theme"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// Global flags
var (
	debugMode   bool
	configFile  string
	triggerMode string
	modifier    string
	position    string
	size        string
	maxWindows  int
	themeMode   string
	paletteName string
	nerdFont    bool
	listThemes  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkpeek [url|file]",
		Short: "Preview links in floating windows",
		Long: `linkpeek - preview links without leaving the page

Renders a web page or local file in the terminal. Links open in floating,
draggable preview windows when the configured trigger fires, so you can
peek at a destination and go back to reading.`,
		Example: `  # Read a page, previewing links by dragging them
  linkpeek https://go.dev/doc/

  # Preview on hover instead
  linkpeek --trigger hover https://go.dev/doc/

  # Open a local file
  linkpeek notes.html

  # Serve the browser extension
  linkpeek serve

  # Run as SSH server
  linkpeek ssh --port 2222

  # List palettes usable with --palette
  linkpeek --list-themes

  # Edit configuration
  linkpeek config edit`,
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if listThemes {
				theme.Initialize(logging.Noop())
				for _, id := range theme.IDs() {
					fmt.Println(id)
				}
				return nil
			}
			source := ""
			if len(args) > 0 {
				source = args[0]
			}
			return runLocal(source)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the log file")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file to use (default: $XDG_CONFIG_HOME/linkpeek/config.toml)")
	rootCmd.PersistentFlags().StringVar(&triggerMode, "trigger", "", "Trigger mode: drag, hover, long-press, click-modifier, hover-modifier, disabled")
	rootCmd.PersistentFlags().StringVar(&modifier, "modifier", "", "Modifier key for click-modifier and hover-modifier: alt, ctrl, shift")
	rootCmd.PersistentFlags().StringVar(&position, "position", "", "Window position: center, top-left, top-right, bottom-left, bottom-right, follow, last")
	rootCmd.PersistentFlags().StringVar(&size, "size", "", "Window size: small, medium, large, last")
	rootCmd.PersistentFlags().IntVar(&maxWindows, "max-windows", 0, "Maximum number of open previews (1-6, default: from config or 3)")
	rootCmd.PersistentFlags().StringVar(&themeMode, "theme", "", "Theme: system, light, dark")
	rootCmd.PersistentFlags().StringVar(&paletteName, "palette", "", "Named color palette (see --list-themes)")
	rootCmd.PersistentFlags().BoolVar(&nerdFont, "nerd-font", false, "Draw window buttons with Nerd Font icons")
	rootCmd.Flags().BoolVar(&listThemes, "list-themes", false, "List all available palettes and exit")

	var serveAddr string
	var serveOrigins []string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser extension bridge",
		Long: `Serve the browser extension bridge

The extension's content script connects over a websocket on localhost and
forwards page events. linkpeek decides when a preview opens and where its
window goes; the extension draws it. Only extension origins may connect.`,
		Example: `  # Listen on the configured address (default 127.0.0.1:19191)
  linkpeek serve

  # Listen elsewhere
  linkpeek serve --addr 127.0.0.1:9000

  # Only accept one extension
  linkpeek serve --origin abcdefghijklmnopabcdefghijklmnop`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(serveAddr, serveOrigins)
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: from config or "+defaultAddr()+")")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", nil, "Extension IDs allowed to connect, as glob patterns (default: any)")

	var sshPort, sshHost, sshKeyPath, sshSource string
	sshCmd := &cobra.Command{
		Use:   "ssh",
		Short: "Run linkpeek as SSH server",
		Long: `Run linkpeek as an SSH server

Each SSH session gets its own viewer. A client may name the first page as the
SSH command; only http(s) URLs are accepted so files on the server stay
private. Links opened "in a new tab" are copied to the client's clipboard.`,
		Example: `  # Start SSH server on default port
  linkpeek ssh

  # Listen on all interfaces
  linkpeek ssh --host 0.0.0.0 --port 2222

  # Connect and open a page
  ssh -p 2222 localhost https://go.dev/doc/`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSSHServer(sshHost, sshPort, sshKeyPath, sshSource)
		},
	}
	sshCmd.Flags().StringVar(&sshPort, "port", config.DefaultSSHPort, "SSH server port")
	sshCmd.Flags().StringVar(&sshHost, "host", config.DefaultSSHHost, "SSH server host")
	sshCmd.Flags().StringVar(&sshKeyPath, "key-path", "", "Path to SSH host key (auto-generated if not specified)")
	sshCmd.Flags().StringVar(&sshSource, "source", "", "Page shown when the client names none")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage linkpeek configuration",
		Long:  `Manage the linkpeek configuration file`,
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		RunE: func(_ *cobra.Command, _ []string) error {
			return printConfigPath()
		},
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and command line flags are
applied, with any validation warnings.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfig()
		},
	}

	configEditCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		Long: `Open the linkpeek configuration file in your default editor

The editor is determined by checking $EDITOR, $VISUAL, or common editors
like vim, vi and nano in that order. A running linkpeek picks up the
change within a second.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return editConfigFile()
		},
	}

	var resetYes bool
	configResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		Long: `Reset the linkpeek configuration file to default settings

This will overwrite your existing configuration after confirmation.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return resetConfigToDefaults(resetYes)
		},
	}
	configResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")

	configCmd.AddCommand(configPathCmd, configShowCmd, configEditCmd, configResetCmd)

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect remembered window geometry",
		Long: `Inspect the state database, where linkpeek remembers the size and
position of the last preview window for the "last" size and position
settings.`,
	}

	stateShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print remembered values",
		RunE: func(_ *cobra.Command, _ []string) error {
			return showState()
		},
	}

	stateResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget remembered values",
		RunE: func(_ *cobra.Command, _ []string) error {
			return resetState()
		},
	}

	stateCmd.AddCommand(stateShowCmd, stateResetCmd)

	rootCmd.AddCommand(serveCmd, sshCmd, configCmd, stateCmd)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s\nBy: %s", version, commit, date, builtBy)),
	); err != nil {
		os.Exit(1)
	}
}
