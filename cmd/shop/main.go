package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: shop [flags] <command> [args]

commands:
  products [category]             list the catalog
  categories                      list categories
  add <product-id> [quantity]     add to cart (quantity defaults to 1)
  qty <product-id> <quantity>     set a line's quantity
  remove <product-id>             remove a line
  clear                           empty the cart
  cart                            show the cart with totals
  login <email> <password>
  register <name> <email> <password>
  logout
  whoami
`

var errUsage = errors.New("invalid arguments")

// shop runs one command against a persisted client session
type shop struct {
	api     *client.Client
	session *client.Session
	out     io.Writer
}

func (s *shop) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		query := client.ProductQuery{}
		if len(rest) > 0 {
			query.Category = rest[0]
		}
		token := ""
		if user, ok := s.session.User(); ok {
			token = user.Token
		}
		products, err := s.api.ListProducts(ctx, query, token)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
		for _, p := range products {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Stock)
		}
		return tw.Flush()

	case "categories":
		categories, err := s.api.Categories(ctx)
		if err != nil {
			return err
		}
		for _, c := range categories {
			fmt.Fprintln(s.out, c)
		}
		return nil

	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		quantity := 1
		if len(rest) == 2 {
			n, err := strconv.Atoi(rest[1])
			if err != nil {
				return errUsage
			}
			quantity = n
		}
		outcome, err := s.session.AddToCart(ctx, rest[0], quantity)
		if err != nil {
			return err
		}
		s.printNotice(outcome)
		return nil

	case "qty":
		if len(rest) != 2 {
			return errUsage
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return errUsage
		}
		outcome, err := s.session.UpdateQuantity(ctx, rest[0], n)
		if err != nil {
			return err
		}
		s.printNotice(outcome)
		return nil

	case "remove":
		if len(rest) != 1 {
			return errUsage
		}
		outcome, err := s.session.RemoveFromCart(ctx, rest[0])
		if err != nil {
			return err
		}
		s.printNotice(outcome)
		return nil

	case "clear":
		outcome, err := s.session.ClearCart(ctx)
		if err != nil {
			return err
		}
		s.printNotice(outcome)
		return nil

	case "cart":
		s.printCart()
		return nil

	case "login":
		if len(rest) != 2 {
			return errUsage
		}
		if err := s.session.Login(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		return s.printUser()

	case "register":
		if len(rest) != 3 {
			return errUsage
		}
		if err := s.session.Register(ctx, rest[0], rest[1], rest[2]); err != nil {
			return err
		}
		return s.printUser()

	case "logout":
		if err := s.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Signed out")
		return nil

	case "whoami":
		return s.printUser()
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (s *shop) printNotice(outcome cart.Outcome) {
	if outcome.Notice != nil {
		fmt.Fprintln(s.out, outcome.Notice.Message)
	}
}

func (s *shop) printUser() error {
	user, ok := s.session.User()
	if !ok {
		return client.ErrNotSignedIn
	}
	role := "customer"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(s.out, "%s <%s> (%s)\n", user.Name, user.Email, role)
	return nil
}

func (s *shop) printCart() {
	lines := s.session.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "Your cart is empty")
		return
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.ProductID, l.Name, l.Quantity, l.Price.StringFixed(2))
	}
	tw.Flush()

	totals := s.session.Totals()
	fmt.Fprintf(s.out, "Items:    %d\n", s.session.Count())
	fmt.Fprintf(s.out, "Subtotal: %s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(s.out, "Shipping: %s\n", totals.Shipping.StringFixed(2))
	fmt.Fprintf(s.out, "Tax:      %s\n", totals.Tax.StringFixed(2))
	fmt.Fprintf(s.out, "Total:    %s\n", totals.Total.StringFixed(2))
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	apiURL := flag.String("api", "http://localhost:"+cfg.Server.Port, "storefront API base URL")
	statePath := flag.String("state", ".storefront.json", "file holding the signed-in user and cart")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := logger.New(cfg.Server.Env, "")
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(*apiURL)
	policy := checkout.Policy{
		ShippingFee:           cfg.Pricing.ShippingFee,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		TaxRate:               cfg.Pricing.TaxRate,
	}
	session, err := client.NewSession(ctx, api, storage.NewFileKV(*statePath), policy)
	if err != nil {
		log.Fatal("Failed to restore session", zap.String("state", *statePath), zap.Error(err))
	}

	s := &shop{api: api, session: session, out: os.Stdout}
	if err := s.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, apiErr.Message)
			os.Exit(1)
		}
		log.Error("Command failed", zap.Strings("args", flag.Args()), zap.Error(err))
		os.Exit(1)
	}
}
