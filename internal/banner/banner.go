// Package banner renders the CLI start-up banner.
package banner

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	versionStyle = lipgloss.NewStyle().Faint(true)
)

const art = `   __        _
  / _| _ _  (_)_ _   __ _ _ _ / _|
 | (_| ' \/ _' | | ' \/ _| '_|  _|
  \__|_||_\__,_|_|_||_\__|_| |_|`

// Banner returns the banner text for the given version, ending in a blank line.
func Banner(version string) string {
	return fmt.Sprintf("%s\n%s\n\n",
		titleStyle.Render(art),
		versionStyle.Render("  linear-chain CRF tagger "+version))
}
