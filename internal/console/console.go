// Package console implements a line-oriented chat transport for local use.
// One terminal session acts as a single fixed user: lines starting with "/"
// are commands, "#N" presses the N-th button of the last keyboard, and
// everything else is a plain text message.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/mpetrov/cardkeeper/internal/chat"
)

// Test seams for terminal handling; tests replace these to avoid touching a
// real terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// Console reads updates line by line and prints replies. Buttons are numbered
// across rows as they are rendered; the numbering always refers to the most
// recently shown keyboard.
type Console struct {
	userID int64
	buf    *bufio.Reader
	out    io.Writer

	// fd is the input file descriptor, or -1 when the input is not a file.
	// Masked reads need a descriptor term.ReadPassword can work with.
	fd int

	buttons []chat.Button
	secret  bool
}

// New builds a Console for the given user over the given streams. Pass
// os.Stdin and os.Stdout for interactive use.
func New(userID int64, in io.Reader, out io.Writer) *Console {
	c := &Console{userID: userID, buf: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		c.fd = int(f.Fd())
	}
	return c
}

// Run reads updates until EOF or context cancellation, dispatching each to
// handle and rendering the reply.
func (c *Console) Run(ctx context.Context, handle chat.HandleFunc) error {
	fmt.Fprintln(c.out, "Card Keeper console. Type /start for the command list; Ctrl-D quits.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := c.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out, "Bye!")
				return nil
			}
			return fmt.Errorf("reading console input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		up, ok := c.parse(line)
		if !ok {
			continue
		}
		c.render(handle(ctx, up))
	}
}

// readLine reads the next input line. When the previous reply marked the
// input sensitive and the input is a real terminal, the line is read without
// echo.
func (c *Console) readLine() (string, error) {
	fmt.Fprint(c.out, "> ")
	secret := c.secret
	c.secret = false
	if secret && c.fd >= 0 && isTerminal(c.fd) {
		b, err := readPassword(c.fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := c.buf.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (c *Console) parse(line string) (chat.Update, bool) {
	up := chat.Update{ID: uuid.New(), UserID: c.userID}
	switch {
	case strings.HasPrefix(line, "/"):
		name, args, _ := strings.Cut(line[1:], " ")
		if name == "" {
			return up, false
		}
		up.Command = name
		up.Args = strings.TrimSpace(args)
	case strings.HasPrefix(line, "#"):
		n, err := strconv.Atoi(line[1:])
		if err != nil || n < 1 || n > len(c.buttons) {
			if len(c.buttons) == 0 {
				fmt.Fprintln(c.out, "No buttons to press.")
			} else {
				fmt.Fprintf(c.out, "No such button. Pick #1 to #%d.\n", len(c.buttons))
			}
			return up, false
		}
		up.Callback = c.buttons[n-1].Data
	default:
		up.Text = line
	}
	return up, true
}

// render prints the reply. A reply with a keyboard replaces the button
// numbering; an edit without one clears it, since the message it belonged to
// is gone.
func (c *Console) render(msg *chat.Message) {
	if msg == nil {
		return
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, msg.Text)
	switch {
	case len(msg.Keyboard) > 0:
		c.buttons = c.buttons[:0]
		for _, row := range msg.Keyboard {
			parts := make([]string, 0, len(row))
			for _, b := range row {
				c.buttons = append(c.buttons, b)
				parts = append(parts, fmt.Sprintf("[%d] %s", len(c.buttons), b.Label))
			}
			fmt.Fprintln(c.out, "  "+strings.Join(parts, "  "))
		}
		fmt.Fprintln(c.out, "Press a button with #<number>.")
	case msg.Edit:
		c.buttons = nil
	}
	c.secret = msg.Sensitive
	fmt.Fprintln(c.out)
}
