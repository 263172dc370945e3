package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Help styles using lipgloss
var (
	// Professional and modern color palette
	lightGreen  = lipgloss.Color("#90EE90") // Soft light green
	gray        = lipgloss.Color("#A9A9A9") // Medium gray
	darkGray    = lipgloss.Color("#5A5A5A") // Dark gray for details
	brightGreen = lipgloss.Color("#00FF7F") // Bright green for highlights
	blue        = lipgloss.Color("#6366F1") // Modern blue (matches logger prefix)

	// Text styles
	titleStyle = lipgloss.NewStyle().
			Foreground(blue). // Title in blue (matching the logger prefix)
			Bold(true).
			PaddingBottom(1).
			MarginLeft(2)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true).
			PaddingBottom(1).
			MarginLeft(2)

	sectionTitleStyle = lipgloss.NewStyle().
				Foreground(lightGreen). // Section titles in light green
				Bold(true).
				PaddingLeft(2)

	commandStyle = lipgloss.NewStyle().
			Foreground(brightGreen). // Commands in bright green
			Bold(true).
			PaddingLeft(4)

	optionStyle = lipgloss.NewStyle().
			Foreground(brightGreen). // Options in bright green
			Bold(true).
			PaddingLeft(4)

	parameterStyle = lipgloss.NewStyle().
			Foreground(gray). // Parameters in gray to differentiate
			Italic(true)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(gray). // Descriptions in gray
				PaddingLeft(6).
				Width(80 - 6) // Adjust width for line wrapping

	exampleStyle = lipgloss.NewStyle().
			Foreground(darkGray). // Examples in dark gray
			Italic(true).
			PaddingLeft(8)

	separatorStyle = lipgloss.NewStyle().
			Foreground(darkGray) // Separators in dark gray
)

// ShowBeautifulHelp prints the command reference
func ShowBeautifulHelp() {
	fmt.Print(HelpText())
}

// HelpText renders the command reference
func HelpText() string {
	var helpContent strings.Builder

	helpContent.WriteString(titleStyle.Render("hianime - HiAnime in your terminal"))
	helpContent.WriteString("\n")
	helpContent.WriteString(subtitleStyle.Render("Browse, search and track anime from the command line."))
	helpContent.WriteString("\n\n")

	helpContent.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
	helpContent.WriteString("\n")
	helpContent.WriteString(sectionTitleStyle.Render("Usage:"))
	helpContent.WriteString("\n")
	helpContent.WriteString(commandStyle.Render("  hianime ") + parameterStyle.Render("[options] <command> [arguments]"))
	helpContent.WriteString("\n")
	helpContent.WriteString(descriptionStyle.Render("    Without a command, hianime shows the home feed"))
	helpContent.WriteString("\n\n")

	helpContent.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
	helpContent.WriteString("\n")
	helpContent.WriteString(sectionTitleStyle.Render("Options:"))
	helpContent.WriteString("\n")
	addOption(&helpContent, "-debug", "Enable debug logging and detailed error output.")
	addOption(&helpContent, "-help / -h", "Display this help message.")
	addOption(&helpContent, "-version", "Show version information.")
	addOption(&helpContent, "-config <file>", "Read configuration from this YAML file.")
	addOption(&helpContent, "-page <n>", "Result page for search and genre listings. Default: 1.")
	helpContent.WriteString("\n")

	helpContent.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
	helpContent.WriteString("\n")
	helpContent.WriteString(sectionTitleStyle.Render("Commands:"))
	helpContent.WriteString("\n")
	addFeature(&helpContent, "home", "Trending, new releases and ongoing, loaded together.")
	addFeature(&helpContent, "trending | new | ongoing", "One home listing.")
	addFeature(&helpContent, "search [query]", "Search titles; prompts when no query is given, then lets you pick a result.")
	addFeature(&helpContent, "details <id>", "Synopsis, metadata and episode list of one title.")
	addFeature(&helpContent, "sources <episode id>", "Video sources and subtitles of one episode.")
	addFeature(&helpContent, "genres | genre <name>", "The genre index, or the titles of one genre.")
	addFeature(&helpContent, "calendar", "The weekly airing schedule.")
	addFeature(&helpContent, "favorites [add|remove <id>]", "List or edit favorites.")
	addFeature(&helpContent, "history [clear] | continue", "Watch history and partially watched titles.")
	addFeature(&helpContent, "download <id> <episode>", "Save one episode to the download directory.")
	addFeature(&helpContent, "downloads | searches [clear]", "Download records and past searches.")
	addFeature(&helpContent, "settings [edit|reset|set <key> <value>]", "Show or change preferences.")
	addFeature(&helpContent, "stats | export <file> | import <file>", "Library statistics, backup and restore.")
	addFeature(&helpContent, "watch", "Stay running: sweep the cache and check favorites for new episodes.")
	helpContent.WriteString("\n")

	helpContent.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
	helpContent.WriteString("\n")
	helpContent.WriteString(sectionTitleStyle.Render("Examples:"))
	helpContent.WriteString("\n")
	addExample(&helpContent, "hianime search \"one piece\"", "Search directly for One Piece")
	addExample(&helpContent, "hianime -page 2 genre action", "Second page of the action genre")
	addExample(&helpContent, "hianime -debug details frieren-18542", "Details with debug logging")
	addExample(&helpContent, "hianime export backup.json", "Save the library to a file")
	helpContent.WriteString("\n")

	return helpContent.String()
}

// Helper functions for building help content
func addOption(builder *strings.Builder, opt, desc string) {
	builder.WriteString(optionStyle.Render("  " + opt))
	builder.WriteString("\n")
	builder.WriteString(descriptionStyle.Render("    " + desc))
	builder.WriteString("\n")
}

func addFeature(builder *strings.Builder, feature, desc string) {
	builder.WriteString(commandStyle.Render("  " + feature))
	builder.WriteString("\n")
	builder.WriteString(descriptionStyle.Render("    " + desc))
	builder.WriteString("\n")
}

func addExample(builder *strings.Builder, cmd, desc string) {
	builder.WriteString(commandStyle.Render("  " + cmd))
	builder.WriteString("\n")
	builder.WriteString(descriptionStyle.Render("    " + desc))
	builder.WriteString("\n")
}
