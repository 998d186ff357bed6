package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mmcdole/librovault/internal/app"
	"github.com/mmcdole/librovault/internal/books"
	"github.com/mmcdole/librovault/internal/config"
	"github.com/mmcdole/librovault/internal/dispatch"
	"github.com/mmcdole/librovault/internal/domain"
)

// shell is a line-oriented front end. Commands start operations on the
// app and return; completions are printed as they arrive.
type shell struct {
	app *app.App
	cfg *config.Config
	in  *bufio.Scanner
	out io.Writer

	lines chan string
	ack   chan struct{}
}

func newShell(a *app.App, cfg *config.Config, in *bufio.Scanner, out io.Writer) *shell {
	return &shell{
		app:   a,
		cfg:   cfg,
		in:    in,
		out:   out,
		lines: make(chan string),
		ack:   make(chan struct{}),
	}
}

func (s *shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *shell) prompt() {
	fmt.Fprint(s.out, AccentStyle.Render("librovault")+"> ")
}

// readLines feeds stdin to the loop one line at a time. It waits for an
// ack after each line so a command may read the terminal directly.
func (s *shell) readLines() {
	defer close(s.lines)
	for s.in.Scan() {
		s.lines <- strings.TrimSpace(s.in.Text())
		if _, ok := <-s.ack; !ok {
			return
		}
	}
}

func (s *shell) run() {
	s.println(TitleStyle.Render("LibroVault") + DimStyle.Render(" · "+s.cfg.API.BaseURL))
	if s.cfg.Auth.Username != "" {
		s.println(DimStyle.Render("Sign in with: login " + s.cfg.Auth.Username))
	} else {
		s.println(DimStyle.Render("Sign in with: login <user>, or create an account with: signup <user>"))
	}
	s.println(DimStyle.Render("Type help for commands."))

	go s.readLines()
	defer close(s.ack)

	s.prompt()
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			if quit := s.handle(line); quit {
				return
			}
			s.prompt()
			s.ack <- struct{}{}

		case res, ok := <-s.app.Results():
			if !ok {
				return
			}
			fmt.Fprint(s.out, "\r")
			s.report(res)
			s.prompt()
		}
	}
}

// handle runs one command. Returns true to exit.
func (s *shell) handle(line string) bool {
	if line == "" {
		return false
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "help", "?":
		s.println(renderHelp())
	case "quit", "exit":
		s.println("Goodbye!")
		return true

	case "login":
		s.login(rest)
	case "signup":
		s.signup(rest)
	case "logout":
		s.app.SignOut()
		s.println(renderSuccess("Signed out"))

	case "libs":
		s.showLibraries()
	case "reload":
		s.app.LoadLibraries()
	case "clearcache":
		s.app.ClearCache()
		s.println(renderSuccess("Cache cleared"))
	case "mklib":
		s.app.AddLibrary(rest)
	case "select":
		s.selectLibrary(rest)
	case "rename":
		s.app.RenameLibrary(rest)
	case "rmlib":
		s.app.DeleteLibrary()

	case "books":
		s.showBooks()
	case "search":
		s.app.Books.Search(rest)
		s.showBooks()
	case "sort":
		method, err := books.ParseSortMethod(rest)
		if err != nil {
			s.println(renderError(err))
			return false
		}
		s.app.Books.SetSortMethod(method)
		s.showBooks()

	case "set":
		field, value, _ := strings.Cut(rest, " ")
		if err := s.app.Books.SetField(field, strings.TrimSpace(value)); err != nil {
			s.println(renderError(err))
		}
	case "form":
		s.showForm()
	case "add":
		s.app.AddBook()
	case "edit":
		if book, ok := s.bookAt(rest); ok {
			s.app.Books.EditButton(book)
			s.showForm()
		}
	case "save":
		s.app.EditBook()
	case "cancel":
		s.app.Books.CancelEdit()
		s.println(renderSuccess("Form cleared"))
	case "rm":
		if book, ok := s.bookAt(rest); ok {
			s.app.DeleteBook(book)
		}
	case "unlink":
		if book, ok := s.bookAt(rest); ok {
			s.app.RemoveFromLibrary(book)
		}

	default:
		s.println(renderError(fmt.Errorf("unknown command %q, type help", cmd)))
	}
	return false
}

// --- Commands ---

func (s *shell) login(args string) {
	username, password, _ := strings.Cut(args, " ")
	if username == "" {
		username = s.cfg.Auth.Username
	}
	if password == "" {
		var err error
		if password, err = readPassword("Password: "); err != nil {
			s.println(renderError(err))
			return
		}
	}
	s.app.SignIn(username, password)
}

func (s *shell) signup(username string) {
	password, err := readPassword("Password: ")
	if err != nil {
		s.println(renderError(err))
		return
	}
	confirm, err := readPassword("Re-enter password: ")
	if err != nil {
		s.println(renderError(err))
		return
	}
	s.app.CreateAccount(username, password, confirm)
}

func (s *shell) selectLibrary(arg string) {
	libs := s.app.Libraries.Libraries()

	var target *domain.Library
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(libs) {
			target = &libs[n-1]
		}
	} else if found := s.app.Libraries.FindByName(arg); len(found) > 0 {
		target = &found[0]
	}
	if target == nil {
		s.println(renderError(fmt.Errorf("no library matches %q", arg)))
		return
	}

	if err := s.app.SelectLibrary(*target); err != nil {
		s.println(renderError(err))
		return
	}
	s.showBooks()
}

func (s *shell) bookAt(arg string) (*domain.Book, bool) {
	view := s.app.Books.Books()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(view) {
		s.println(renderError(fmt.Errorf("no book #%s in the current view", arg)))
		return nil, false
	}
	return view[n-1], true
}

// --- Views ---

func (s *shell) showLibraries() {
	libs := s.app.Libraries.Libraries()
	if len(libs) == 0 && s.app.Session.SignedIn() {
		// Show the last known snapshot while the network catches up
		if cached, ok := s.app.Libraries.CachedLibraries(); ok && len(cached) > 0 {
			s.println(DimStyle.Render("(cached)"))
			s.println(renderLibraries(cached, ""))
			return
		}
	}

	selectedKey := ""
	if sel, ok := s.app.Libraries.Selected(); ok {
		selectedKey = sel.Key()
	}
	s.println(renderLibraries(libs, selectedKey))
}

func (s *shell) showBooks() {
	lib, ok := s.app.Libraries.Selected()
	if !ok {
		s.println(renderError(domain.ErrNoSelection))
		return
	}
	editingKey := ""
	if editing, ok := s.app.Books.Editing(); ok {
		editingKey = editing.Key()
	}
	s.println(renderBooks(lib, s.app.Books.Books(), s.app.Books.SearchTerm(),
		string(s.app.Books.SortMethod()), editingKey))
}

func (s *shell) showForm() {
	editing, _ := s.app.Books.Editing()
	s.println(renderForm(s.app.Books.Form(), editing))
}

// report prints the outcome of a completed operation and refreshes the affected view
func (s *shell) report(res dispatch.Result) {
	if res.Err != nil {
		s.println(renderError(describe(res.Name, res.Err)))
		return
	}

	switch res.Name {
	case app.OpSignIn, app.OpCreateAccount:
		if user, ok := res.Value.(*domain.User); ok {
			s.println(renderSuccess("Signed in as " + user.Username))
		}
	case app.OpLoadLibraries:
		s.showLibraries()
	case app.OpAddLibrary:
		if lib, ok := res.Value.(domain.Library); ok {
			s.println(renderSuccess("Created library " + lib.Name))
		}
		s.showLibraries()
	case app.OpRenameLibrary:
		s.println(renderSuccess("Renamed library"))
		s.showLibraries()
	case app.OpDeleteLibrary:
		s.println(renderSuccess("Deleted library"))
		s.showLibraries()
	case app.OpAddBook:
		s.println(renderSuccess("Added book"))
		s.showBooks()
	case app.OpEditBook:
		s.println(renderSuccess("Saved book"))
		s.showBooks()
	case app.OpDeleteBook:
		s.println(renderSuccess("Deleted book"))
		s.showBooks()
	case app.OpRemoveFromLibrary:
		s.println(renderSuccess("Removed book from library"))
		s.showBooks()
	}
}

// describe turns an operation error into a message for the user
func describe(op string, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return errors.New(verr.Message)
	case errors.Is(err, domain.ErrNoSession):
		return errors.New("sign in first")
	case errors.Is(err, domain.ErrMissingID):
		return fmt.Errorf("%s: not saved on the server yet", op)
	case errors.Is(err, domain.ErrServerOffline):
		return fmt.Errorf("%s: the library server is unreachable, try again", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// readPassword reads a password with masking
func readPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("password prompt needs a terminal, pass it as: login <user> <password>")
	}
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println() // Add newline after password input
	return string(bytePassword), nil
}
