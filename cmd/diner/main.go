package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/joho/godotenv"

	"github.com/momomagic/momo/pkg/diner"
)

const (
	appName    = "momo-diner"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	command := os.Args[1]
	args, flags := splitArgs(os.Args[2:])

	config, err := apt.LoadConfig("DINER", flags)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "error"
	}
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cfg := diner.ConfigFrom(config)
	storage, err := diner.NewFileStorage(cfg.StateDir)
	if err != nil {
		log.Fatalf("Cannot open state: %v", err)
	}

	identity := diner.NewIdentity(storage, logger)
	client := diner.NewHTTPClient(cfg.BaseURL, cfg.RequestTimeout)

	app := diner.New(diner.Deps{
		Config:  cfg,
		Storage: storage,
		API:     client,
		Catalog: client,
		Logger:  logger,
	})
	defer app.Close()

	cli := &cli{app: app, client: client, identity: identity}
	if err := cli.run(ctx, command, args); err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

type cli struct {
	app      *diner.App
	client   *diner.HTTPClient
	identity *diner.Identity
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		if len(args) < 1 {
			return errors.New("usage: add <menu-item-id> [qty]")
		}
		return c.add(ctx, args[0], intArg(args, 1, 1))
	case "remove":
		if len(args) < 1 {
			return errors.New("usage: remove <menu-item-id>")
		}
		c.app.Cart.Decrement(args[0])
		return c.printCart()
	case "delete":
		if len(args) < 1 {
			return errors.New("usage: delete <menu-item-id>")
		}
		c.app.Cart.Delete(args[0])
		return c.printCart()
	case "cart":
		_ = c.app.Cart.Bootstrap(ctx, c.client)
		return c.printCart()
	case "order":
		return c.order(ctx, args)
	case "history":
		return c.history(ctx)
	case "bill":
		return c.bill(ctx)
	case "pay":
		if err := c.app.Payments.RequestPayment(ctx); err != nil {
			return err
		}
		fmt.Printf("Payment requested, billing status: %s\n", c.app.History.BillingState().Status)
		return nil
	case "watch":
		return c.watch(ctx)
	case "login":
		if len(args) < 1 {
			return errors.New("usage: login <phone>")
		}
		phone, err := c.client.SendCode(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Code sent to %s\n", phone)
		return nil
	case "verify":
		if len(args) < 2 {
			return errors.New("usage: verify <phone> <code> [name] [email]")
		}
		customer, token, err := c.client.VerifyCode(ctx, args[0], args[1], strArg(args, 2), strArg(args, 3))
		if err != nil {
			return err
		}
		c.identity.Set(*customer, token)
		fmt.Printf("Signed in as %s (%s)\n", customer.Name, customer.Phone)
		return nil
	case "logout":
		c.identity.Clear()
		return nil
	case "end":
		c.app.EndSession()
		fmt.Println("Session ended")
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (c *cli) add(ctx context.Context, id string, qty int) error {
	_ = c.app.Cart.Bootstrap(ctx, c.client)

	item, err := c.client.MenuItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("menu item %s not found", id)
	}
	if !item.Available {
		return fmt.Errorf("%s is not available", item.Name)
	}

	c.app.Cart.Add(diner.CartItem{
		ProductID:   item.ID,
		Name:        item.Name,
		UnitPrice:   item.Price,
		Description: item.Description,
		ImageRef:    item.ImageLink,
		IsVeg:       item.IsVeg,
	}, qty)
	return c.printCart()
}

func (c *cli) order(ctx context.Context, args []string) error {
	table := intArg(args, 0, 0)
	if s, ok := c.app.Sessions.Current(); ok {
		table = s.TableNumber
	}
	summary, err := c.app.PlaceOrder(ctx, diner.OrderDetails{
		TableNumber:  table,
		CustomerName: strArg(args, 1),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s\nOrder %s  table %d  %s %s\n", summary.Barcode, summary.OrderNumber, summary.TableNumber, summary.Date, summary.Time)
	for _, it := range summary.Items {
		fmt.Printf("  %2d x %-32s %8.2f\n", it.Quantity, it.Name, it.Price)
	}
	fmt.Printf("  subtotal %.2f  tax %.2f  total %.2f\n", summary.Subtotal, summary.Tax, summary.Total)
	return nil
}

func (c *cli) history(ctx context.Context) error {
	if _, err := c.app.History.Refresh(ctx); err != nil {
		fmt.Printf("showing cached orders: %v\n", err)
	}
	fmt.Println("In progress:")
	for _, o := range c.app.History.InProgress() {
		fmt.Printf("  %s  %-10s %8.2f\n", o.OrderNumber, o.Status, o.Total)
	}
	fmt.Println("Completed:")
	for _, o := range c.app.History.Completed() {
		fmt.Printf("  %s  %-10s %8.2f\n", o.OrderNumber, o.Status, o.Total)
	}
	fmt.Printf("Billing: %s\n", billingLabel(c.app.History.BillingState()))
	return nil
}

func (c *cli) bill(ctx context.Context) error {
	_, _ = c.app.History.Refresh(ctx)
	view, err := c.app.Bills.GetConsolidatedBill(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Bill %s  table %d  %s %s\n", view.ReferenceNumber, view.TableNumber, view.Date, view.Time)
	for _, it := range view.Items {
		fmt.Printf("  %2d x %-32s %8.2f\n", it.Quantity, it.Name, it.Price)
	}
	fmt.Printf("  orders %d  subtotal %.2f  tax %.2f  total %.2f\n", view.OrderCount, view.Subtotal, view.Tax, view.Total)
	fmt.Printf("  billing: %s\n", billingLabel(view.Billing))
	return nil
}

func (c *cli) watch(ctx context.Context) error {
	c.app.Channel.OnStateChange(func(s diner.ChannelState) {
		fmt.Printf("[channel] %s\n", s)
	})
	c.app.Channel.OnOrderStatus(func(e diner.OrderStatusEvent) {
		fmt.Printf("[order] %s -> %s\n", e.OrderID, e.Status)
	})
	c.app.Channel.OnBillingStatus(func(e diner.BillingStatusEvent) {
		fmt.Printf("[billing] %s -> %s\n", e.SessionID, e.Status)
	})

	if err := c.app.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (c *cli) printCart() error {
	items := c.app.Cart.Items()
	if len(items) == 0 {
		fmt.Println("Cart is empty")
		return nil
	}
	for _, it := range items {
		marker := ""
		if it.SystemAdded {
			marker = " (complimentary)"
		}
		fmt.Printf("  %2d x %-32s %8.2f%s\n", it.Quantity, it.Name, it.EffectivePrice(), marker)
	}
	t := c.app.Cart.Totals().Rounded()
	fmt.Printf("  subtotal %.2f  tax %.2f  total %.2f\n", t.Subtotal, t.Tax, t.Total)
	return nil
}

func billingLabel(b diner.BillingState) string {
	if b.Optimistic {
		return b.Status + " (awaiting confirmation)"
	}
	return b.Status
}

// splitArgs separates positional arguments from --key=value config flags.
func splitArgs(in []string) (args, flags []string) {
	for _, a := range in {
		if strings.HasPrefix(a, "--") {
			flags = append(flags, a)
			continue
		}
		args = append(args, a)
	}
	return args, flags
}

func intArg(args []string, i, def int) int {
	if i >= len(args) {
		return def
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return def
	}
	return n
}

func strArg(args []string, i int) string {
	if i >= len(args) {
		return ""
	}
	return args[i]
}

func printUsage() {
	fmt.Printf(`%s - Momo Magic diner client

Usage:
  %s <command> [args] [--key=value]

Commands:
  add <id> [qty]               Add a menu item to the cart
  remove <id>                  Decrement a cart line
  delete <id>                  Remove a cart line
  cart                         Show the cart and totals
  order <table> [name]         Place the cart as an order
  history                      Show the session's orders
  bill                         Show the consolidated bill
  pay                          Ask staff to settle the bill
  watch                        Follow live order and billing updates
  login <phone>                Text a sign in code
  verify <phone> <code> [name] [email]
  logout                       Forget the signed in customer
  end                          End the dining session
  version                      Print version information

Environment Variables:
  DINER_DINER_API_URL          Order service URL (default: http://localhost:8080)
  DINER_DINER_WS_URL           Push channel URL (default: ws://localhost:8080/ws)
  DINER_DINER_STATE_DIR        Local state directory (default: .momo)
  DINER_LOG_LEVEL              Log level (default: error)

`, appName, appName)
}
