package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mmcdole/librovault/internal/domain"
)

// Color palette
var (
	Accent    = lipgloss.Color("#B45309")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Accent)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	SelectedCellStyle = CellStyle.
				Foreground(White).
				Background(Accent)
)

const selectedMarker = "▸"

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(DimGray))
}

// renderLibraries lists libraries, marking the selected one
func renderLibraries(libs []domain.Library, selectedKey string) string {
	if len(libs) == 0 {
		return DimStyle.Render("No libraries yet. Create one with: mklib <name>")
	}

	selectedRow := -1
	t := newTable().Headers("#", "", "Library", "Books")
	for i := range libs {
		marker := ""
		if libs[i].Key() == selectedKey {
			marker = selectedMarker
			selectedRow = i
		}
		t.Row(fmt.Sprint(i+1), marker, libs[i].Name, fmt.Sprint(libs[i].BookCount()))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return HeaderStyle
		case row == selectedRow:
			return SelectedCellStyle
		default:
			return CellStyle
		}
	})
	return t.Render()
}

// renderBooks lists the derived book view of a library
func renderBooks(lib domain.Library, books []*domain.Book, term, sort, editingKey string) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(lib.Name))
	status := fmt.Sprintf("  %d books · sort: %s", lib.BookCount(), sort)
	if term != "" {
		status += fmt.Sprintf(" · search: %q (%d shown)", term, len(books))
	}
	b.WriteString(DimStyle.Render(status))
	b.WriteString("\n")

	if len(books) == 0 {
		b.WriteString(DimStyle.Render("No books to show."))
		return b.String()
	}

	editingRow := -1
	t := newTable().Headers("#", "Title", "Author", "Genre", "Edition", "ISBN")
	for i, book := range books {
		if book.Key() == editingKey {
			editingRow = i
		}
		t.Row(fmt.Sprint(i+1), book.Title, book.Author, book.Genre, book.Edition, book.ISBN)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return HeaderStyle
		case row == editingRow:
			return SelectedCellStyle
		default:
			return CellStyle
		}
	})
	b.WriteString(t.Render())
	return b.String()
}

// renderForm shows the editor fields, required ones first
func renderForm(f domain.BookFields, editing *domain.Book) string {
	mode := "New book"
	if editing != nil {
		mode = "Editing " + editing.Title
	}

	rows := [][2]string{
		{"title*", f.Title},
		{"author*", f.Author},
		{"genre*", f.Genre},
		{"translator", f.Translator},
		{"date", f.PublicationDate},
		{"edition", f.Edition},
		{"volume", f.VolumeNumber},
		{"subgenre", f.Subgenre},
		{"isbn", f.ISBN},
	}

	t := newTable().Headers("Field", "Value")
	for _, r := range rows {
		t.Row(r[0], r[1])
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return HeaderStyle
		}
		return CellStyle
	})
	return AccentStyle.Render(mode) + "\n" + t.Render()
}

func renderError(err error) string {
	return ErrorStyle.Render("✗ " + err.Error())
}

func renderSuccess(msg string) string {
	return SuccessStyle.Render("✓ " + msg)
}

func renderHelp() string {
	cmds := [][2]string{
		{"login <user> [password]", "sign in"},
		{"signup <user>", "create an account"},
		{"logout", "sign out"},
		{"libs", "list libraries"},
		{"reload", "fetch libraries from the server"},
		{"clearcache", "drop cached library snapshots"},
		{"mklib <name>", "create a library"},
		{"select <name|#>", "select a library"},
		{"rename <name>", "rename the selected library"},
		{"rmlib", "delete the selected library"},
		{"books", "show books of the selected library"},
		{"search [term]", "filter books by title"},
		{"sort <method>", "default, alphabetical, byAuthor, byGenre"},
		{"set <field> <value>", "fill a form field"},
		{"form", "show the form"},
		{"add", "create a book from the form"},
		{"edit <#>", "load a book into the form"},
		{"save", "save the edited book"},
		{"cancel", "clear the form"},
		{"rm <#>", "delete a book"},
		{"unlink <#>", "remove a book from the library"},
		{"quit", "exit"},
	}

	var b strings.Builder
	for _, c := range cmds {
		b.WriteString(fmt.Sprintf("  %s %s\n", AccentStyle.Render(fmt.Sprintf("%-24s", c[0])), DimStyle.Render(c[1])))
	}
	return b.String()
}
