package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/calibworks/calibtrack/internal/config"
	"github.com/calibworks/calibtrack/internal/dataservice"
	"github.com/calibworks/calibtrack/internal/drift"
	"github.com/calibworks/calibtrack/internal/kvstore"
	"github.com/calibworks/calibtrack/internal/migrate"
	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/pkg/models"
)

type app struct {
	cfg    config.Config
	logger *logrus.Logger
	store  kvstore.KV
	svc    *dataservice.Service
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	store, err := kvstore.OpenFile(cfg.DataFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open data file")
	}

	local := transport.NewLocalClient(store, logger)
	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		svc: dataservice.New(dataservice.Config{
			Env:      dataservice.StaticEnvironment{Endpoint: cfg.APIEndpoint},
			Local:    local,
			Logger:   logger,
			CacheTTL: cfg.CacheTTL,
		}),
	}

	cliApp := &cli.App{
		Name:  "calibtrack",
		Usage: "calibration order tracking from the command line",
		Commands: []*cli.Command{
			a.ordersCommand(),
			a.productsCommand(),
			a.customersCommand(),
			a.techniciansCommand(),
			a.passwordCommand(),
			a.driftCommand(),
			a.migrateCommand(),
		},
		// Order mutations run in the background; wait for them before
		// the process exits.
		After: func(*cli.Context) error {
			a.svc.Flush()
			return nil
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func (a *app) ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "list and mutate calibration orders",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "show all order lines",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh", Usage: "bypass the cache"},
				},
				Action: func(c *cli.Context) error {
					lines, err := a.svc.GetOrders(c.Context, c.Bool("refresh"))
					if err != nil {
						return err
					}
					return printJSON(lines)
				},
			},
			{
				Name:  "create",
				Usage: "create a single-line order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "number", Required: true},
					&cli.StringFlag{Name: "customer", Required: true},
					&cli.StringFlag{Name: "product", Required: true},
					&cli.IntFlag{Name: "quantity", Value: 1},
					&cli.Float64Flag{Name: "price", Required: true},
					&cli.IntFlag{Name: "discount", Value: 100, Usage: "discount rate percent, 100 = no discount"},
					&cli.TimestampFlag{Name: "target", Layout: "2006-01-02"},
					&cli.StringFlag{Name: "type", Value: string(models.CalibrationInternal)},
				},
				Action: func(c *cli.Context) error {
					line := models.NewOrderLine{
						OrderNumber:     c.String("number"),
						CustomerName:    c.String("customer"),
						ProductName:     c.String("product"),
						Quantity:        c.Int("quantity"),
						UnitPrice:       c.Float64("price"),
						DiscountRate:    c.Int("discount"),
						CalibrationType: models.CalibrationType(c.String("type")),
					}
					if t := c.Timestamp("target"); t != nil {
						line.TargetDate = *t
					}
					created, err := a.svc.CreateOrder(c.Context, []models.NewOrderLine{line})
					if err != nil {
						return err
					}
					return printJSON(created)
				},
			},
			{
				Name:      "status",
				Usage:     "set the status of every line of an order",
				ArgsUsage: "<orderNumber> <Pending|Calibrating|Completed>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected order number and status")
					}
					return a.svc.UpdateOrderStatusByNo(c.Context, c.Args().Get(0), models.OrderStatus(c.Args().Get(1)))
				},
			},
			{
				Name:      "target",
				Usage:     "set the target date of an order",
				ArgsUsage: "<orderNumber> <YYYY-MM-DD>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected order number and date")
					}
					date, err := time.Parse("2006-01-02", c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("invalid date: %w", err)
					}
					return a.svc.UpdateOrderTargetDateByNo(c.Context, c.Args().Get(0), date)
				},
			},
			{
				Name:      "notes",
				Usage:     "append a note to an order",
				ArgsUsage: "<orderNumber> <note>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected order number and note text")
					}
					return a.svc.AppendOrderNotesByNo(c.Context, c.Args().Get(0), c.Args().Get(1))
				},
			},
			{
				Name:      "restore",
				Usage:     "bring an archived order back to Pending",
				ArgsUsage: "<orderNumber> <reason>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected order number and reason")
					}
					return a.svc.RestoreOrderByNo(c.Context, c.Args().Get(0), c.Args().Get(1))
				},
			},
			{
				Name:      "delete",
				Usage:     "delete every line of an order",
				ArgsUsage: "<orderNumber>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected an order number")
					}
					return a.svc.DeleteOrderByNo(c.Context, c.Args().Get(0))
				},
			},
		},
	}
}

func (a *app) productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "manage the product catalog",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh"},
				},
				Action: func(c *cli.Context) error {
					products, err := a.svc.GetProducts(c.Context, c.Bool("refresh"))
					if err != nil {
						return err
					}
					return printJSON(products)
				},
			},
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "spec"},
					&cli.StringFlag{Name: "category"},
					&cli.Float64Flag{Name: "price"},
				},
				Action: func(c *cli.Context) error {
					created, err := a.svc.AddProduct(c.Context, models.Product{
						Name:          c.String("name"),
						Specification: c.String("spec"),
						Category:      c.String("category"),
						StandardPrice: c.Float64("price"),
					})
					if err != nil {
						return err
					}
					return printJSON(created)
				},
			},
		},
	}
}

func (a *app) customersCommand() *cli.Command {
	return &cli.Command{
		Name:  "customers",
		Usage: "manage customers",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh"},
				},
				Action: func(c *cli.Context) error {
					customers, err := a.svc.GetCustomers(c.Context, c.Bool("refresh"))
					if err != nil {
						return err
					}
					return printJSON(customers)
				},
			},
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "contact"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: func(c *cli.Context) error {
					created, err := a.svc.AddCustomer(c.Context, models.Customer{
						Name:          c.String("name"),
						ContactPerson: c.String("contact"),
						Phone:         c.String("phone"),
					})
					if err != nil {
						return err
					}
					return printJSON(created)
				},
			},
		},
	}
}

func (a *app) techniciansCommand() *cli.Command {
	return &cli.Command{
		Name:  "technicians",
		Usage: "manage technicians",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh"},
				},
				Action: func(c *cli.Context) error {
					technicians, err := a.svc.GetTechnicians(c.Context, c.Bool("refresh"))
					if err != nil {
						return err
					}
					return printJSON(technicians)
				},
			},
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
				},
				Action: func(c *cli.Context) error {
					created, err := a.svc.AddTechnician(c.Context, models.Technician{Name: c.String("name")})
					if err != nil {
						return err
					}
					return printJSON(created)
				},
			},
			{
				Name:      "delete",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected a technician id")
					}
					return a.svc.DeleteTechnician(c.Context, c.Args().Get(0))
				},
			},
		},
	}
}

func (a *app) passwordCommand() *cli.Command {
	return &cli.Command{
		Name:  "password",
		Usage: "admin password operations",
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				ArgsUsage: "<password>",
				Action: func(c *cli.Context) error {
					ok, err := a.svc.CheckAdminPassword(c.Context, c.Args().Get(0))
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("password rejected")
					}
					fmt.Println("password accepted")
					return nil
				},
			},
			{
				Name:      "change",
				ArgsUsage: "<old> <new>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected old and new password")
					}
					ok, err := a.svc.ChangeAdminPassword(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("old password rejected")
					}
					fmt.Println("password changed")
					return nil
				},
			},
		},
	}
}

// driftCommand compares the local file's orders with the hosted server's.
// A CLI process starts with a cold cache, so the local data file stands in
// for the long-running client's cached view; the analyzer itself is the same
// one that compares a cached view against a fresh transport read.
// Requires a configured API endpoint.
func (a *app) driftCommand() *cli.Command {
	return &cli.Command{
		Name:  "drift",
		Usage: "diagnose divergence between the local data file and the hosted server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "summary", Usage: "summary or json"},
		},
		Action: func(c *cli.Context) error {
			if a.cfg.APIEndpoint == "" {
				return fmt.Errorf("drift needs CALIBTRACK_API_URL to be set")
			}

			var localLines []models.OrderLine
			if _, err := a.store.Get(kvstore.KeyOrders, &localLines); err != nil {
				return err
			}

			hosted, err := a.svc.FetchOrders(c.Context)
			if err != nil {
				return err
			}

			analyzer := drift.NewAnalyzer(a.logger)
			report := analyzer.Compare(localLines, hosted)
			out, err := analyzer.GenerateReport(report, c.String("format"))
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func (a *app) migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "push the local dataset to the hosted server",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "report what would move without writing"},
			&cli.BoolFlag{Name: "verify", Usage: "verify order coverage after migrating"},
			&cli.IntFlag{Name: "batch-size", Value: migrate.DefaultConfig().BatchSize},
			&cli.IntFlag{Name: "concurrency", Value: migrate.DefaultConfig().Concurrency},
		},
		Action: func(c *cli.Context) error {
			if a.cfg.APIEndpoint == "" {
				return fmt.Errorf("migrate needs CALIBTRACK_API_URL to be set")
			}

			target := transport.NewHTTPClient(a.cfg.APIEndpoint, a.logger)
			cfg := migrate.DefaultConfig()
			cfg.DryRun = c.Bool("dry-run")
			cfg.BatchSize = c.Int("batch-size")
			cfg.Concurrency = c.Int("concurrency")

			m := migrate.New(a.store, target, cfg, a.logger)
			result, err := m.Run(c.Context)
			if err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}

			if c.Bool("verify") && !cfg.DryRun {
				verification, err := m.Verify(context.Background())
				if err != nil {
					return err
				}
				return printJSON(verification)
			}
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
