package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mateoromerocontreras/django-bookstore/internal/apiclient"
	"github.com/mateoromerocontreras/django-bookstore/internal/app"
	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
	"github.com/mateoromerocontreras/django-bookstore/internal/service"
	"github.com/mateoromerocontreras/django-bookstore/internal/store"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// usageError is reported as the command's usage line.
type usageError string

func (e usageError) Error() string { return "usage: storefront " + string(e) }

type command func(c *cli, ctx context.Context, args []string) error

var commands = map[string]command{
	"login":    (*cli).login,
	"logout":   (*cli).logout,
	"register": (*cli).register,
	"whoami":   (*cli).whoami,
	"books":    (*cli).books,
	"book":     (*cli).book,
	"authors":  (*cli).authors,
	"cart":     (*cli).cart,
	"add":      (*cli).add,
	"update":   (*cli).update,
	"remove":   (*cli).remove,
	"clear":    (*cli).clear,
	"checkout": (*cli).checkout,
}

type cli struct {
	app *app.App
	in  *bufio.Reader
	out io.Writer

	// password reads a secret without echo when stdin is a terminal.
	password func() (string, error)
}

func newCLI(a *app.App, stdin io.Reader, stdout io.Writer) *cli {
	c := &cli{app: a, in: bufio.NewReader(stdin), out: stdout}
	c.password = func() (string, error) {
		fmt.Fprint(c.out, "Password: ")
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			pw, err := readPassword(int(f.Fd()))
			fmt.Fprintln(c.out)
			return string(pw), err
		}
		return c.line()
	}
	return c
}

func (c *cli) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd(c, ctx, args)
}

func (c *cli) line() (string, error) {
	s, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label+": ")
	return c.line()
}

func (c *cli) login(ctx context.Context, args []string) error {
	var username string
	switch len(args) {
	case 0:
		u, err := c.prompt("Username")
		if err != nil {
			return err
		}
		username = u
	case 1:
		username = args[0]
	default:
		return usageError("login [username]")
	}

	password, err := c.password()
	if err != nil {
		return err
	}

	user, err := c.app.Auth.Login(ctx, domain.LoginCredentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", user.Username)
	return nil
}

func (c *cli) logout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.out)
	forget := fs.Bool("forget", false, "also delete saved cookies")
	if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
		return usageError("logout [-forget]")
	}

	if err := c.app.Auth.Logout(ctx); err != nil && !errors.Is(err, apiclient.ErrNetworkUnavailable) {
		return err
	}
	if *forget {
		if err := c.app.ForgetCookies(); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.out, "Logged out")
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("register <username> <email>")
	}
	password, err := c.password()
	if err != nil {
		return err
	}

	user, err := c.app.Auth.Register(ctx, domain.RegisterData{Username: args[0], Email: args[1], Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created account %s. Log in with: storefront login %s\n", user.Username, user.Username)
	return nil
}

func (c *cli) whoami(ctx context.Context, args []string) error {
	st := c.app.Auth.Snapshot()
	if !st.Authenticated {
		fmt.Fprintln(c.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s>\n", st.User.Username, st.User.Email)
	return nil
}

func (c *cli) books(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("books", flag.ContinueOnError)
	fs.SetOutput(c.out)
	var q service.BookQuery
	fs.IntVar(&q.Page, "page", 0, "page number")
	fs.StringVar(&q.Search, "search", "", "title, isbn or author")
	fs.Int64Var(&q.Author, "author", 0, "author id")
	fs.StringVar((*string)(&q.Condition), "condition", "", "new, like_new, good, fair or poor")
	if err := fs.Parse(args); err != nil {
		return usageError("books [-page n] [-search text] [-author id] [-condition c]")
	}
	if q.Search == "" && fs.NArg() > 0 {
		q.Search = strings.Join(fs.Args(), " ")
	}

	page, err := c.app.Books.List(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tPRICE\tSTOCK")
	for _, b := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", b.ID, b.Title, b.AuthorName, b.Price, b.Quantity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d of %d books\n", len(page.Results), page.Count)
	return nil
}

func (c *cli) book(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("book <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	b, err := c.app.Books.Get(ctx, id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Title:\t%s\n", b.Title)
	fmt.Fprintf(tw, "Author:\t%s\n", b.Author.Name)
	fmt.Fprintf(tw, "Publisher:\t%s\n", b.Editorial.Name)
	fmt.Fprintf(tw, "ISBN:\t%s\n", b.ISBN)
	fmt.Fprintf(tw, "Condition:\t%s\n", b.Condition)
	fmt.Fprintf(tw, "Price:\t%s\n", b.Price)
	fmt.Fprintf(tw, "In stock:\t%d\n", b.Quantity)
	fmt.Fprintf(tw, "Seller:\t%s\n", b.Seller.Username)
	return tw.Flush()
}

func (c *cli) authors(ctx context.Context, args []string) error {
	authors, err := c.app.Authors.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNATIONALITY")
	for _, a := range authors {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID, a.Name, a.Nationality)
	}
	return tw.Flush()
}

func (c *cli) cart(ctx context.Context, args []string) error {
	if err := c.app.Cart.FetchCart(ctx); err != nil {
		return err
	}
	return c.printCart(c.app.Cart.Snapshot())
}

func (c *cli) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("add <book-id> [qty]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
	}

	qty, err = c.boundedQuantity(ctx, id, qty)
	if err != nil {
		return err
	}
	if err := c.app.Cart.AddToCart(ctx, id, qty); err != nil {
		return err
	}
	return c.printCart(c.app.Cart.Snapshot())
}

func (c *cli) update(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("update <book-id> <qty>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}

	qty, err = c.boundedQuantity(ctx, id, qty)
	if err != nil {
		return err
	}
	if err := c.app.Cart.UpdateCartItem(ctx, id, qty); err != nil {
		return err
	}
	return c.printCart(c.app.Cart.Snapshot())
}

func (c *cli) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("remove <book-id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Cart.RemoveFromCart(ctx, id); err != nil {
		return err
	}
	return c.printCart(c.app.Cart.Snapshot())
}

func (c *cli) clear(ctx context.Context, args []string) error {
	if err := c.app.Cart.ClearCart(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Cart cleared")
	return nil
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	receipt, err := c.app.Cart.Checkout(ctx)
	if err != nil && (receipt == nil || !errors.Is(err, store.ErrRefetch)) {
		return err
	}

	fmt.Fprintln(c.out, receipt.Message)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BOOK\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range receipt.PurchasedItems {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", item.Book, item.Quantity, item.Price, item.Subtotal)
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\n", receipt.Total)
	if ferr := tw.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		fmt.Fprintf(c.out, "The order was placed, but the cart could not be reloaded: %s\n", errorText(err))
	}
	return nil
}

// boundedQuantity pulls qty into the range the book's stock allows. The
// server applies the same rule; clamping here only saves a rejected request.
func (c *cli) boundedQuantity(ctx context.Context, bookID int64, qty int) (int, error) {
	b, err := c.app.Books.Get(ctx, bookID)
	if err != nil {
		return 0, err
	}
	bounded := domain.ClampQuantity(qty, b.Quantity)
	if bounded == 0 {
		return 0, fmt.Errorf("%q is out of stock", b.Title)
	}
	if bounded != qty {
		fmt.Fprintf(c.out, "Quantity adjusted to %d (%d in stock)\n", bounded, b.Quantity)
	}
	return bounded, nil
}

func (c *cli) printCart(st store.CartState) error {
	if st.Cart == nil || len(st.Cart.Items) == 0 {
		fmt.Fprintln(c.out, "Your cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range st.Cart.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", item.Book.ID, item.Book.Title, item.Quantity, item.Book.Price, item.Subtotal)
	}
	fmt.Fprintf(tw, "\t\t%d\tTOTAL\t%s\n", st.ItemCount(), st.Cart.Total)
	return tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
