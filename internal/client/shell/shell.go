// Package shell implements the local interactive mode: a REPL that talks to
// the services directly over a local store.
package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"

	"github.com/hackbridge/hackbridge/internal/app"
	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
	"github.com/hackbridge/hackbridge/internal/service"
)

const helpText = `Available commands:
  help                          show this message
  register                      create an account (prompts for fields)
  login <email> <password>      start a session
  logout                        end the session
  whoami                        show the current user
  courses [category]            list courses
  course <id>                   show a course
  tasks [category]              list tasks
  cart                          show the cart
  add <courseId>                add a course to the cart
  remove <id>                   remove an item from the cart
  checkout                      buy everything in the cart
  quiz <score> <total> <title>  record a quiz result
  exit                          leave the shell`

// Shell is a line-oriented command loop. The session token is kept in the
// store so a login survives restarts.
type Shell struct {
	app     *app.App
	scanner *bufio.Scanner
	out     io.Writer
}

func New(a *app.App, in io.Reader, out io.Writer) *Shell {
	return &Shell{app: a, scanner: bufio.NewScanner(in), out: out}
}

// Run reads commands until exit or end of input.
func (s *Shell) Run(ctx context.Context) {
	for {
		fmt.Fprint(s.out, "hackbridge> ")
		if !s.scanner.Scan() {
			fmt.Fprintln(s.out)
			return
		}
		args := strings.Fields(strings.TrimSpace(s.scanner.Text()))
		if len(args) == 0 {
			continue
		}
		if s.Exec(ctx, args) {
			return
		}
	}
}

// Exec runs one command and reports whether the shell should stop.
func (s *Shell) Exec(ctx context.Context, args []string) bool {
	var err error
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "register":
		err = s.register(ctx)
	case "login":
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: login <email> <password>")
			return false
		}
		err = s.login(ctx, args[1], args[2])
	case "logout":
		err = s.logout(ctx)
	case "whoami":
		err = s.whoami(ctx)
	case "courses":
		err = s.courses(ctx, optArg(args))
	case "course":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: course <id>")
			return false
		}
		err = s.course(ctx, args[1])
	case "tasks":
		err = s.tasks(ctx, optArg(args))
	case "cart":
		err = s.cart(ctx)
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: add <courseId>")
			return false
		}
		err = s.add(ctx, args[1])
	case "remove":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: remove <id>")
			return false
		}
		err = s.remove(ctx, args[1])
	case "checkout":
		err = s.checkout(ctx)
	case "quiz":
		if len(args) < 4 {
			fmt.Fprintln(s.out, "Usage: quiz <score> <total> <title>")
			return false
		}
		err = s.quiz(ctx, args[1], args[2], strings.Join(args[3:], " "))
	case "exit":
		fmt.Fprintln(s.out, "Bye")
		return true
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func optArg(args []string) models.Category {
	if len(args) > 1 {
		return models.Category(args[1])
	}
	return ""
}

func (s *Shell) prompt(label string) string {
	fmt.Fprint(s.out, label)
	if !s.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(s.scanner.Text())
}

// currentUser resolves the stored token. A stale token is discarded.
func (s *Shell) currentUser(ctx context.Context) (*models.User, error) {
	token, err := s.app.Pointer.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errors.New("not logged in")
	}
	if err != nil {
		return nil, err
	}
	u, err := s.app.Auth.CurrentUser(ctx, token)
	if errors.Is(err, service.ErrNotAuthenticated) || errors.Is(err, service.ErrUserBanned) {
		_ = s.app.Pointer.Clear(ctx)
		return nil, errors.Wrap(err, "session ended")
	}
	return u, err
}

func (s *Shell) startSession(ctx context.Context, u *models.User, token string) error {
	if err := s.app.Pointer.Set(ctx, token); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Logged in as %s (%s)\n", u.Username, u.Role)
	return nil
}

func (s *Shell) register(ctx context.Context) error {
	in := service.RegisterInput{
		Username: s.prompt("Username: "),
		Email:    s.prompt("Email: "),
		Password: s.prompt("Password: "),
		Role:     models.Role(s.prompt("Role (hacker/company): ")),
	}
	u, token, err := s.app.Auth.Register(ctx, in)
	if err != nil {
		return err
	}
	return s.startSession(ctx, u, token)
}

func (s *Shell) login(ctx context.Context, email, password string) error {
	u, token, err := s.app.Auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.startSession(ctx, u, token)
}

func (s *Shell) logout(ctx context.Context) error {
	token, err := s.app.Pointer.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		fmt.Fprintln(s.out, "Not logged in")
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.app.Auth.Logout(ctx, token); err != nil && !errors.Is(err, service.ErrNotAuthenticated) {
		return err
	}
	if err := s.app.Pointer.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Logged out")
	return nil
}

func (s *Shell) whoami(ctx context.Context) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	return s.printJSON(u)
}

func (s *Shell) courses(ctx context.Context, category models.Category) error {
	list, err := s.app.CourseService.List(ctx, category)
	if err != nil {
		return err
	}
	w := s.table()
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%.0f ₽\t%s / %s\n", c.ID, c.Title, c.Price, c.Category, c.Difficulty)
	}
	return w.Flush()
}

func (s *Shell) course(ctx context.Context, id string) error {
	c, err := s.app.CourseService.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.printJSON(c)
}

func (s *Shell) tasks(ctx context.Context, category models.Category) error {
	list, err := s.app.TaskService.List(ctx, category)
	if err != nil {
		return err
	}
	w := s.table()
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%.0f ₽\t%s\t[%s]\n", t.ID, t.Title, t.Reward, t.CompanyName, t.Status)
	}
	return w.Flush()
}

func (s *Shell) cart(ctx context.Context) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	c, err := s.app.CartService.Items(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(c.Items) == 0 {
		fmt.Fprintln(s.out, "Cart is empty")
		return nil
	}
	w := s.table()
	for _, it := range c.Items {
		fmt.Fprintf(w, "%s\t%s\t%.0f ₽\n", it.ID, it.Title, it.Price)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Total: %.0f ₽\n", c.Total())
	return nil
}

func (s *Shell) add(ctx context.Context, courseID string) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.app.CartService.Add(ctx, u.ID, courseID); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Added to cart")
	return nil
}

func (s *Shell) remove(ctx context.Context, id string) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.app.CartService.Remove(ctx, u.ID, id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Removed from cart")
	return nil
}

func (s *Shell) checkout(ctx context.Context) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	updated, err := s.app.CartService.Checkout(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Purchase complete. Balance: %.0f ₽\n", updated.Balance)
	return nil
}

func (s *Shell) quiz(ctx context.Context, scoreArg, totalArg, title string) error {
	score, err := strconv.Atoi(scoreArg)
	if err != nil {
		return errors.Wrap(err, "score")
	}
	total, err := strconv.Atoi(totalArg)
	if err != nil {
		return errors.Wrap(err, "total")
	}
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	updated, err := s.app.QuizService.ApplyResult(ctx, u.ID, service.QuizResult{Title: title, Score: score, Total: total})
	if err != nil {
		return err
	}
	w := s.table()
	for _, sk := range updated.Skills {
		fmt.Fprintf(w, "%s\t%d\n", sk.Name, sk.Level)
	}
	return w.Flush()
}

// table pads tab-separated cells by rune count, so Cyrillic titles line up.
func (s *Shell) table() *tabwriter.Writer {
	return tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
}

func (s *Shell) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(b))
	return nil
}
