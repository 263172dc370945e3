package util

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
)

var (
	IsDebug bool

	// Error styling
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	debugErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF4757")).
			Padding(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA726")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF69B4")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// SetDebugMode sets the debug mode
func SetDebugMode(debug bool) {
	IsDebug = debug
}

// GetSearchQuery returns the query given after the command or asks the user for one
func GetSearchQuery(args []string) (string, error) {
	if query := strings.TrimSpace(strings.Join(args, " ")); query != "" {
		return query, nil
	}

	fmt.Println(promptStyle.Render("🔍 Search for Anime"))
	return getUserInput("Enter anime name")
}

// ErrorHandler returns a stylized error message.
// In debug mode the full %+v chain is shown, including pkg/errors stack traces.
func ErrorHandler(err error) string {
	if IsDebug {
		styledHeader := errorStyle.Render("🚨 DEBUG ERROR 🔍")
		styledError := debugErrorStyle.Render(fmt.Sprintf("%+v", err))
		return fmt.Sprintf("%s\n%s", styledHeader, styledError)
	}

	styledError := errorStyle.Render(fmt.Sprintf("❌ %v", err))
	styledHint := warningStyle.Render("💡 run the program with -debug to see details")
	return fmt.Sprintf("%s\n%s", styledError, styledHint)
}

// getUserInput prompts the user for a line of input
func getUserInput(label string) (string, error) {
	// Use simpler input method on Windows to avoid readline ANSI issues
	if runtime.GOOS == "windows" {
		return getSimpleInput(label)
	}

	prompt := promptui.Prompt{
		Label: promptStyle.Render("🎮 " + label),
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("query cannot be empty")
			}
			return nil
		},
	}

	input, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// getSimpleInput provides a fallback input method for Windows
func getSimpleInput(label string) (string, error) {
	fmt.Print(promptStyle.Render("🎮 " + label + ": "))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// SelectMenuItem provides a cross-platform way to select from a menu
func SelectMenuItem(label string, items []string) (int, string, error) {
	if len(items) == 0 {
		return -1, "", fmt.Errorf("nothing to select")
	}
	if runtime.GOOS == "windows" {
		return simpleSelectMenu(label, items)
	}

	prompt := promptui.Select{
		Label: promptStyle.Render(label),
		Items: items,
		Size:  15,
	}

	index, result, err := prompt.Run()
	if err != nil {
		return -1, "", err
	}

	fmt.Println(successStyle.Render("✓ Selected: " + result))
	return index, result, nil
}

// simpleSelectMenu provides a simple menu selection for Windows systems
func simpleSelectMenu(label string, items []string) (int, string, error) {
	fmt.Println(promptStyle.Render(label))
	for i, item := range items {
		fmt.Printf("%d. %s\n", i+1, item)
	}

	fmt.Print(promptStyle.Render(fmt.Sprintf("Enter selection (1-%d): ", len(items))))
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return -1, "", err
	}

	input = strings.TrimSpace(input)
	var selection int
	if _, err := fmt.Sscanf(input, "%d", &selection); err != nil || selection < 1 || selection > len(items) {
		return -1, "", fmt.Errorf("invalid selection: %s", input)
	}
	selection--

	fmt.Println(successStyle.Render("✓ Selected: " + items[selection]))
	return selection, items[selection], nil
}

// CommandArgs splits the positional arguments into a command and its arguments
func CommandArgs(fs *flag.FlagSet) (string, []string) {
	args := fs.Args()
	if len(args) == 0 {
		return "", nil
	}
	return strings.ToLower(args[0]), args[1:]
}
