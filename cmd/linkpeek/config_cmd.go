package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/pelletier/go-toml/v2"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func printConfigPath() error {
	path, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("locate config: %w", err)
	}
	fmt.Println(path)
	return nil
}

func showConfig() error {
	path, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("locate config: %w", err)
	}
	cfg, validation, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	config.ApplyOverrides(flagOverrides(), cfg)

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	lipgloss.Println(mutedStyle.Render("# " + path))
	fmt.Print(string(data))

	if validation != nil && validation.HasWarnings() {
		fmt.Println()
		for _, w := range validation.Warnings {
			lipgloss.Println(warnStyle.Render("warning: ") + w.String())
		}
	}
	return nil
}

// findEditor returns the first usable editor from $EDITOR, $VISUAL and a
// short list of common ones.
func findEditor(getenv func(string) string, lookPath func(string) (string, error)) (string, []string, error) {
	for _, env := range []string{"EDITOR", "VISUAL"} {
		if fields := strings.Fields(getenv(env)); len(fields) > 0 {
			return fields[0], fields[1:], nil
		}
	}
	for _, name := range []string{"vim", "vi", "nano"} {
		if _, err := lookPath(name); err == nil {
			return name, nil, nil
		}
	}
	return "", nil, errors.New("no editor found; set $EDITOR")
}

func editConfigFile() error {
	path, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("locate config: %w", err)
	}
	// Creates the file with defaults when it does not exist yet.
	if _, _, err := config.LoadFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	editor, args, err := findEditor(os.Getenv, exec.LookPath)
	if err != nil {
		return err
	}
	// #nosec G204 - the editor is the user's own choice
	cmd := exec.Command(editor, append(args, path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", editor, err)
	}

	if _, validation, err := config.LoadFile(path); err != nil {
		return fmt.Errorf("config saved but invalid: %w", err)
	} else if validation.HasWarnings() {
		for _, w := range validation.Warnings {
			lipgloss.Println(warnStyle.Render("warning: ") + w.String())
		}
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func resetConfigToDefaults(yes bool) error {
	path, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("locate config: %w", err)
	}
	if !yes && !confirm(os.Stdin, os.Stdout, "Overwrite "+path+" with defaults?") {
		fmt.Println("Cancelled.")
		return nil
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write defaults: %w", err)
	}
	fmt.Println("Configuration reset:", path)
	return nil
}

func openStateDB() (*store.SQLite, error) {
	path, err := store.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("locate state database: %w", err)
	}
	return store.Open(path)
}

func showState() error {
	db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		lipgloss.Println(mutedStyle.Render("Nothing remembered yet."))
		return nil
	}
	lipgloss.Println(headingStyle.Render("Remembered values"))
	for _, e := range entries {
		lipgloss.Printf("  %s = %s %s\n",
			keyStyle.Render(e.Key), e.Value,
			mutedStyle.Render(e.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

func resetState() error {
	db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Reset(); err != nil {
		return err
	}
	fmt.Println("State cleared.")
	return nil
}
