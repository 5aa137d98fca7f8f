package shell

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackbridge/hackbridge/internal/app"
	"github.com/hackbridge/hackbridge/internal/config"
	"github.com/hackbridge/hackbridge/internal/kv"
)

func newApp(t *testing.T, store kv.Store) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), store, &config.Options{
		JWTSecret:  "shell-test",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
		Seed:       true,
	}, zap.NewNop())
	require.NoError(t, err)
	return a
}

func run(t *testing.T, a *app.App, input string) string {
	t.Helper()
	var out bytes.Buffer
	New(a, strings.NewReader(input), &out).Run(context.Background())
	return out.String()
}

// outputLines splits shell output into lines with the prompt removed.
func outputLines(out string) []string {
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		for strings.HasPrefix(l, "hackbridge> ") {
			l = strings.TrimPrefix(l, "hackbridge> ")
		}
		lines[i] = l
	}
	return lines
}

// row returns the fields of the first line whose first field is first.
func row(out, first string) []string {
	for _, l := range outputLines(out) {
		if f := strings.Fields(l); len(f) > 0 && f[0] == first {
			return f
		}
	}
	return nil
}

func TestShell_HelpAndUnknown(t *testing.T) {
	out := run(t, newApp(t, kv.NewMemoryStore()), "help\nfrobnicate\nexit\n")
	assert.Contains(t, out, "Available commands")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "Bye")
}

func TestShell_RequiresLogin(t *testing.T) {
	out := run(t, newApp(t, kv.NewMemoryStore()), "cart\nwhoami\n")
	assert.Contains(t, out, "Error: not logged in")
}

func TestShell_PurchaseFlow(t *testing.T) {
	a := newApp(t, kv.NewMemoryStore())
	out := run(t, a, strings.Join([]string{
		"login hacker@example.com user123",
		"courses",
		"add 2",
		"add 2",
		"cart",
		"checkout",
		"quiz 5 5 Web basics",
		"exit",
	}, "\n"))

	assert.Contains(t, out, "Logged in as hacker123 (hacker)")
	assert.Contains(t, out, "Added to cart")
	assert.Contains(t, out, "Error: item already in cart")
	assert.Contains(t, out, "Total: 5200 ₽")
	assert.Contains(t, out, "Purchase complete. Balance: 39800 ₽")
	assert.Equal(t, []string{"Web", "10"}, row(out, "Web"))

	u, err := a.Users.GetByID(context.Background(), "hacker-1")
	require.NoError(t, err)
	assert.True(t, u.HasPurchased("2"))
}

func TestShell_CourseColumnsAlignWithCyrillicTitles(t *testing.T) {
	a := newApp(t, kv.NewMemoryStore())
	out := run(t, a, "courses\n")
	courses, err := a.CourseService.List(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, courses)

	lines := outputLines(out)
	priceColumn := -1
	for _, c := range courses {
		var line string
		for _, l := range lines {
			if strings.Contains(l, c.Title) {
				line = l
				break
			}
		}
		require.NotEmpty(t, line, "no line for course %s", c.ID)
		afterTitle := strings.Index(line, c.Title) + len(c.Title)
		at := strings.Index(line[afterTitle:], fmt.Sprintf("%.0f ₽", c.Price))
		require.GreaterOrEqual(t, at, 0, "no price for course %s", c.ID)
		col := utf8.RuneCountInString(line[:afterTitle+at])
		if priceColumn < 0 {
			priceColumn = col
		}
		assert.Equal(t, priceColumn, col, "price of course %s is misaligned", c.ID)
	}
}

func TestShell_RegisterPrompts(t *testing.T) {
	a := newApp(t, kv.NewMemoryStore())
	out := run(t, a, "register\nneo\nneo@matrix.io\nredpill\nhacker\nwhoami\n")
	assert.Contains(t, out, "Logged in as neo (hacker)")
	assert.Contains(t, out, `"email": "neo@matrix.io"`)
}

func TestShell_SessionSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	store, err := kv.OpenFile(path)
	require.NoError(t, err)
	out := run(t, newApp(t, store), "login admin@hackbridge.ru admin123\n")
	require.Contains(t, out, "Logged in as")

	store, err = kv.OpenFile(path)
	require.NoError(t, err)
	a := newApp(t, store)
	out = run(t, a, "whoami\nlogout\nwhoami\n")
	assert.Contains(t, out, `"id": "1"`)
	assert.Contains(t, out, "Logged out")
	assert.Contains(t, out, "Error: not logged in")
}
