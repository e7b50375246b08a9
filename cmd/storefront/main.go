package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mateoromerocontreras/django-bookstore/internal/apiclient"
	"github.com/mateoromerocontreras/django-bookstore/internal/app"
	"github.com/mateoromerocontreras/django-bookstore/internal/config"
	"github.com/mateoromerocontreras/django-bookstore/internal/observability"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  login [username]           start a session (password is prompted)
  logout [-forget]           end the session
  register <username> <email>
                             create an account
  whoami                     show the logged in user
  books [-page n] [-search text] [-author id] [-condition c]
  book <id>                  show one book
  authors                    list authors
  cart                       show the cart
  add <book-id> [qty]        add copies to the cart
  update <book-id> <qty>     set the copies of a cart line
  remove <book-id>           remove a cart line
  clear                      empty the cart
  checkout                   place the order

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", "", "API base URL (default from STOREFRONT_API_URL or the origin)")
	origin := fs.String("origin", "", "frontend origin used to pick the API when -api is unset")
	cookies := fs.String("cookies", "", "cookie file (default $XDG_CONFIG_HOME/storefront/cookies.json)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	name, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if _, ok := commands[name]; !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *origin != "" {
		cfg.Origin = *origin
	}
	if *cookies != "" {
		cfg.CookieFile = *cookies
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := observability.InitLogger(stderr, cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("could not save cookies", slog.String("error", err.Error()))
		}
	}()

	if err := a.Start(ctx); err != nil {
		logger.Debug("cart not loaded", slog.String("error", err.Error()))
	}

	c := newCLI(a, stdin, stdout)
	if err := c.dispatch(ctx, name, cmdArgs); err != nil {
		fmt.Fprintln(stderr, "error:", errorText(err))
		return 1
	}
	return 0
}

// errorText prefers the server's message for API failures.
func errorText(err error) string {
	var rejected *apiclient.ServerRejectedError
	var fault *apiclient.ClientFaultError
	if errors.As(err, &rejected) || errors.As(err, &fault) || errors.Is(err, apiclient.ErrNetworkUnavailable) {
		return apiclient.Message(err)
	}
	return err.Error()
}
